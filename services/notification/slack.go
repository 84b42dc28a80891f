package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/logger"
)

// SlackNotifier posts system alerts and settled deposits to a Slack
// incoming webhook. Payment creation and raw webhook events stay on
// Telegram only.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	retryStep  time.Duration
	wg         sync.WaitGroup
}

// NewSlackNotifier creates a Slack notifier. An empty webhook URL disables it.
func NewSlackNotifier(webhookURL string, client *http.Client) *SlackNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &SlackNotifier{webhookURL: webhookURL, client: client, retryStep: time.Second}
}

// Enabled reports whether messages are delivered
func (s *SlackNotifier) Enabled() bool {
	return s.webhookURL != ""
}

// Wait blocks until every queued message was sent or given up on
func (s *SlackNotifier) Wait() {
	s.wg.Wait()
}

func section(text string) map[string]interface{} {
	return map[string]interface{}{
		"type": "section",
		"text": map[string]interface{}{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

func (s *SlackNotifier) post(blocks []map[string]interface{}) error {
	jsonPayload, err := json.Marshal(map[string]interface{}{"blocks": blocks})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack notification failed with status: %d", resp.StatusCode)
	}
	return nil
}

func (s *SlackNotifier) send(blocks []map[string]interface{}) {
	if !s.Enabled() {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := utils.RetryLinear(sendAttempts, s.retryStep, func() error {
			return s.post(blocks)
		})
		if err != nil {
			logger.WithFields(logger.Fields{
				"Error": fmt.Sprintf("%v", err),
			}).Errorf("Failed to send Slack notification")
		}
	}()
}

// PaymentCreated implements types.Notifier
func (s *SlackNotifier) PaymentCreated(ctx context.Context, payment *types.Payment) {}

// WebhookReceived implements types.Notifier
func (s *SlackNotifier) WebhookReceived(ctx context.Context, provider types.PaymentProvider, event *types.DepositEvent, status types.PaymentStatus) {
}

// DepositProcessed implements types.Notifier
func (s *SlackNotifier) DepositProcessed(ctx context.Context, payment *types.Payment) {
	s.send([]map[string]interface{}{
		section("*Deposit processed*"),
		section(fmt.Sprintf("*Payment ID:* %s", payment.ID)),
		section(fmt.Sprintf("*Status:* %s", payment.Status)),
		section(fmt.Sprintf("*Paid:* %s %s", payment.PaidAmount.StringFixed(2), payment.Currency)),
		section(fmt.Sprintf("*Credited:* %s (bonus %s)", payment.FinalAmount.StringFixed(2), payment.Bonus.StringFixed(2))),
	})
}

// SystemAlert implements types.Notifier
func (s *SlackNotifier) SystemAlert(ctx context.Context, alert types.SystemAlert) {
	blocks := []map[string]interface{}{
		section(fmt.Sprintf("%s *%s*", alertIcons[alert.Type], alert.Title)),
		section(alert.Message),
	}

	if len(alert.Metadata) > 0 {
		keys := make([]string, 0, len(alert.Metadata))
		for key := range alert.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fields := make([]map[string]interface{}, 0, len(keys))
		for _, key := range keys {
			fields = append(fields, map[string]interface{}{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*%s:* %v", key, alert.Metadata[key]),
			})
		}
		// Slack caps a section at ten fields
		for len(fields) > 0 {
			n := len(fields)
			if n > 10 {
				n = 10
			}
			blocks = append(blocks, map[string]interface{}{"type": "section", "fields": fields[:n]})
			fields = fields[n:]
		}
	}

	timestamp := alert.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	blocks = append(blocks, map[string]interface{}{
		"type": "context",
		"elements": []map[string]interface{}{
			{"type": "mrkdwn", "text": formatTime(timestamp)},
		},
	})

	s.send(blocks)
}
