package notification

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/logger"
)

const sendAttempts = 3

var alertIcons = map[types.AlertType]string{
	types.AlertInfo:    "ℹ️",
	types.AlertWarning: "⚠️",
	types.AlertError:   "🚨",
	types.AlertSuccess: "✅",
}

// TelegramNotifier posts operator notifications to a Telegram chat. Sends
// run in the background and never fail the caller.
type TelegramNotifier struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	retryStep time.Duration
	wg        sync.WaitGroup
}

// NewTelegramNotifier creates a notifier. Without a bot token it returns a
// notifier that drops every message.
func NewTelegramNotifier(conf *config.NotificationConfiguration, client *http.Client) (*TelegramNotifier, error) {
	n := &TelegramNotifier{chatID: conf.TelegramChatID, retryStep: time.Second}
	if conf.TelegramBotToken == "" {
		logger.Warnf("TELEGRAM_BOT_TOKEN is not set, operator notifications are disabled")
		return n, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(conf.TelegramBotToken, conf.TelegramAPIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot initialization failed: %w", err)
	}
	n.bot = bot
	return n, nil
}

// Enabled reports whether messages are delivered
func (n *TelegramNotifier) Enabled() bool {
	return n.bot != nil
}

// Wait blocks until every queued message was sent or given up on
func (n *TelegramNotifier) Wait() {
	n.wg.Wait()
}

func (n *TelegramNotifier) send(text string) {
	if n.bot == nil {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		msg := tgbotapi.NewMessage(n.chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		err := utils.RetryLinear(sendAttempts, n.retryStep, func() error {
			_, err := n.bot.Send(msg)
			return err
		})
		if err != nil {
			logger.WithFields(logger.Fields{
				"Error": fmt.Sprintf("%v", err),
			}).Errorf("Failed to send Telegram notification")
		}
	}()
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// PaymentCreated implements types.Notifier
func (n *TelegramNotifier) PaymentCreated(ctx context.Context, payment *types.Payment) {
	n.send(fmt.Sprintf(
		"💳 <b>New payment</b>\n\n<b>ID:</b> <code>%s</code>\n<b>Amount:</b> %s %s\n<b>Provider:</b> %s\n<b>Status:</b> %s\n<b>Account:</b> %s\n<b>Time:</b> %s",
		html.EscapeString(payment.ID),
		payment.Amount.StringFixed(2), html.EscapeString(payment.Currency),
		html.EscapeString(string(payment.Provider)),
		html.EscapeString(string(payment.Status)),
		html.EscapeString(payment.Account),
		formatTime(payment.CreatedAt),
	))
}

// DepositProcessed implements types.Notifier
func (n *TelegramNotifier) DepositProcessed(ctx context.Context, payment *types.Payment) {
	n.send(fmt.Sprintf(
		"💰 <b>Deposit processed</b>\n\n<b>ID:</b> <code>%s</code>\n<b>Status:</b> %s\n<b>Paid:</b> %s %s\n<b>Credited:</b> %s\n<b>Bonus:</b> %s",
		html.EscapeString(payment.ID),
		html.EscapeString(string(payment.Status)),
		payment.PaidAmount.StringFixed(2), html.EscapeString(payment.Currency),
		payment.FinalAmount.StringFixed(2),
		payment.Bonus.StringFixed(2),
	))
}

// WebhookReceived implements types.Notifier
func (n *TelegramNotifier) WebhookReceived(ctx context.Context, provider types.PaymentProvider, event *types.DepositEvent, status types.PaymentStatus) {
	n.send(fmt.Sprintf(
		"🔔 <b>Webhook received</b>\n\n<b>Provider:</b> %s\n<b>Payment:</b> <code>%s</code>\n<b>Amount:</b> %s %s\n<b>Status:</b> %s",
		html.EscapeString(string(provider)),
		html.EscapeString(event.PaymentID),
		event.Amount.StringFixed(2), html.EscapeString(event.Currency),
		html.EscapeString(string(status)),
	))
}

// SystemAlert implements types.Notifier
func (n *TelegramNotifier) SystemAlert(ctx context.Context, alert types.SystemAlert) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n%s", alertIcons[alert.Type], html.EscapeString(alert.Title), html.EscapeString(alert.Message))

	if len(alert.Metadata) > 0 {
		keys := make([]string, 0, len(alert.Metadata))
		for key := range alert.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		b.WriteString("\n")
		for _, key := range keys {
			fmt.Fprintf(&b, "\n<b>%s:</b> %s", html.EscapeString(key), html.EscapeString(fmt.Sprintf("%v", alert.Metadata[key])))
		}
	}

	timestamp := alert.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	fmt.Fprintf(&b, "\n\n<i>%s</i>", formatTime(timestamp))

	n.send(b.String())
}
