package email

import (
	"context"
	"errors"
	"fmt"

	mailgunv3 "github.com/mailgun/mailgun-go/v3"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/logger"
)

// MailgunProvider implements EmailProvider for Mailgun
type MailgunProvider struct {
	client mailgunv3.Mailgun
}

// NewMailgunProvider creates a new Mailgun provider
func NewMailgunProvider(config *config.NotificationConfiguration) (*MailgunProvider, error) {
	if config == nil || config.EmailDomain == "" || config.EmailAPIKey == "" {
		return nil, errors.New("mailgun provider requires EmailDomain and EmailAPIKey")
	}
	return &MailgunProvider{
		client: mailgunv3.NewMailgun(config.EmailDomain, config.EmailAPIKey),
	}, nil
}

// SendEmail sends an email via Mailgun
func (m *MailgunProvider) SendEmail(ctx context.Context, payload types.SendEmailPayload) (types.SendEmailResponse, error) {
	message := m.client.NewMessage(
		payload.FromAddress,
		payload.Subject,
		payload.Body,
		payload.ToAddress,
	)
	if payload.HTMLBody != "" {
		message.SetHtml(payload.HTMLBody)
	}

	response, id, err := m.client.Send(ctx, message)
	if err != nil {
		logger.Errorf("Failed to send email via Mailgun: %v", err)
		return types.SendEmailResponse{}, fmt.Errorf("mailgun send error: %w", err)
	}

	return types.SendEmailResponse{
		Id:       id,
		Response: response,
	}, nil
}

// GetName returns the provider name
func (m *MailgunProvider) GetName() string {
	return "mailgun"
}
