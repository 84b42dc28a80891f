package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/logger"
)

// BrevoProvider implements EmailProvider for Brevo
type BrevoProvider struct {
	config *config.NotificationConfiguration
}

// NewBrevoProvider creates a new Brevo provider
func NewBrevoProvider(config *config.NotificationConfiguration) (*BrevoProvider, error) {
	if config == nil || config.EmailAPIKey == "" {
		return nil, errors.New("brevo provider requires EmailAPIKey")
	}
	return &BrevoProvider{
		config: config,
	}, nil
}

// SendEmail sends an email via Brevo
func (b *BrevoProvider) SendEmail(ctx context.Context, payload types.SendEmailPayload) (types.SendEmailResponse, error) {
	reqBody := map[string]interface{}{
		"sender": map[string]string{
			"email": payload.FromAddress,
			"name":  senderName,
		},
		"to": []map[string]string{
			{"email": payload.ToAddress},
		},
		"subject":     payload.Subject,
		"textContent": payload.Body,
	}
	if payload.HTMLBody != "" {
		reqBody["htmlContent"] = payload.HTMLBody
	}

	res, err := fastshot.NewClient(fmt.Sprintf("https://%s", b.config.EmailDomain)).
		Config().SetTimeout(30*time.Second).
		Header().Add("Content-Type", "application/json").
		Header().Add("api-key", b.config.EmailAPIKey).
		Build().POST("/v3/smtp/email").
		Context().Set(ctx).
		Body().AsJSON(reqBody).
		Send()
	if err != nil {
		logger.Errorf("Failed to send Brevo request: %v", err)
		return types.SendEmailResponse{}, fmt.Errorf("brevo request error: %w", err)
	}
	defer res.RawResponse.Body.Close()

	if res.RawResponse.StatusCode >= 400 {
		logger.Errorf("Brevo API error: %d", res.RawResponse.StatusCode)
		return types.SendEmailResponse{}, fmt.Errorf("brevo API error: %d", res.RawResponse.StatusCode)
	}

	body, err := io.ReadAll(res.RawResponse.Body)
	if err != nil {
		return types.SendEmailResponse{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var responseBody struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(body, &responseBody); err != nil {
		logger.Errorf("Failed to decode Brevo response: %v", err)
		return types.SendEmailResponse{}, fmt.Errorf("brevo response parse error: %w", err)
	}

	messageID := responseBody.MessageID
	if messageID == "" {
		logger.Warnf("Message ID not found in Brevo response, using fallback")
		messageID = fmt.Sprintf("brevo-%d", time.Now().UnixNano())
	}

	return types.SendEmailResponse{
		Id:       messageID,
		Response: messageID,
	}, nil
}

// GetName returns the provider name
func (b *BrevoProvider) GetName() string {
	return "brevo"
}
