package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/logger"
)

const senderName = "SteamTrust"

// SendGridProvider implements EmailProvider for SendGrid
type SendGridProvider struct {
	apiKey string
	host   string
}

// NewSendGridProvider creates a new SendGrid provider
func NewSendGridProvider(config *config.NotificationConfiguration) (*SendGridProvider, error) {
	if config == nil || config.EmailAPIKey == "" {
		return nil, errors.New("sendgrid provider requires EmailAPIKey")
	}
	return &SendGridProvider{
		apiKey: config.EmailAPIKey,
		host:   "https://api.sendgrid.com",
	}, nil
}

// SendEmail sends an email via SendGrid
func (s *SendGridProvider) SendEmail(ctx context.Context, payload types.SendEmailPayload) (types.SendEmailResponse, error) {
	m := mail.NewV3Mail()
	m.Subject = payload.Subject
	m.SetFrom(mail.NewEmail(senderName, payload.FromAddress))
	m.AddContent(mail.NewContent("text/plain", payload.Body))
	if payload.HTMLBody != "" {
		m.AddContent(mail.NewContent("text/html", payload.HTMLBody))
	}

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", payload.ToAddress))
	m.AddPersonalizations(p)

	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(m)
	response, err := sendgrid.API(request)
	if err != nil {
		logger.Errorf("Failed to send email via SendGrid: %v", err)
		return types.SendEmailResponse{}, fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		logger.Errorf("SendGrid API error: %d", response.StatusCode)
		return types.SendEmailResponse{}, fmt.Errorf("sendgrid API error: %d", response.StatusCode)
	}

	var messageID string
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}

	return types.SendEmailResponse{
		Id:       messageID,
		Response: messageID,
	}, nil
}

// GetName returns the provider name
func (s *SendGridProvider) GetName() string {
	return "sendgrid"
}
