package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/logger"
)

// EmailService sends payer emails through a primary provider with a fallback
type EmailService struct {
	primaryProvider  EmailProvider
	fallbackProvider EmailProvider
	notificationConf *config.NotificationConfiguration
}

// NewEmailService creates a new EmailService from the configured providers.
// It fails when no provider can be built, e.g. without an API key.
func NewEmailService(notificationConf *config.NotificationConfiguration) (*EmailService, error) {
	factory := NewProviderFactory(notificationConf)

	primaryProvider, err := factory.GetDefaultProvider()
	if err != nil {
		return nil, fmt.Errorf("primary email provider: %w", err)
	}

	var fallbackProvider EmailProvider
	fallbackName := notificationConf.EmailFallbackProvider
	if fallbackName != "" && fallbackName != primaryProvider.GetName() {
		fallbackProvider, err = factory.CreateProvider(fallbackName)
		if err != nil {
			logger.WithFields(logger.Fields{
				"Error":    fmt.Sprintf("%v", err),
				"Provider": fallbackName,
			}).Warnf("Fallback email provider disabled")
			fallbackProvider = nil
		}
	}

	return &EmailService{
		primaryProvider:  primaryProvider,
		fallbackProvider: fallbackProvider,
		notificationConf: notificationConf,
	}, nil
}

// SendEmail sends an email with fallback support
func (e *EmailService) SendEmail(ctx context.Context, payload types.SendEmailPayload) (types.SendEmailResponse, error) {
	response, err := e.primaryProvider.SendEmail(ctx, payload)
	if err != nil {
		logger.WithFields(logger.Fields{
			"primary_provider": e.primaryProvider.GetName(),
			"error":            err.Error(),
		}).Warnf("Primary email provider failed, trying fallback")

		if e.fallbackProvider == nil {
			return types.SendEmailResponse{}, fmt.Errorf("no fallback provider available: %w", err)
		}
		response, err = e.fallbackProvider.SendEmail(ctx, payload)
		if err != nil {
			logger.WithFields(logger.Fields{
				"fallback_provider": e.fallbackProvider.GetName(),
				"error":             err.Error(),
			}).Errorf("Fallback email provider also failed")
			return types.SendEmailResponse{}, fmt.Errorf("all email providers failed: %w", err)
		}

		logger.WithFields(logger.Fields{
			"fallback_provider": e.fallbackProvider.GetName(),
		}).Infof("Email sent successfully via fallback provider")
	}

	return response, nil
}

// SendPaymentReceipt emails the payer a summary of a credited top-up
func (e *EmailService) SendPaymentReceipt(ctx context.Context, payment *types.Payment) (types.SendEmailResponse, error) {
	if payment == nil || payment.Email == "" {
		return types.SendEmailResponse{}, errors.New("payment has no recipient")
	}
	return e.SendEmail(ctx, receiptPayload(e.notificationConf.EmailFromAddress, payment))
}

func receiptPayload(from string, payment *types.Payment) types.SendEmailPayload {
	rows := [][2]string{
		{"Payment", payment.ID},
		{"Steam account", payment.Account},
		{"Paid", fmt.Sprintf("%s %s", payment.PaidAmount.StringFixed(2), payment.Currency)},
		{"Commission", fmt.Sprintf("%s %s", payment.Commission.StringFixed(2), payment.Currency)},
	}
	if payment.Bonus.IsPositive() {
		rows = append(rows, [2]string{"Promo bonus", fmt.Sprintf("%s %s", payment.Bonus.StringFixed(2), payment.Currency)})
	}
	rows = append(rows, [2]string{"Credited", fmt.Sprintf("%s %s", payment.FinalAmount.StringFixed(2), payment.Currency)})

	var text, markup strings.Builder
	text.WriteString("Your Steam wallet top-up is complete.\n\n")
	markup.WriteString("<p>Your Steam wallet top-up is complete.</p><table>")
	for _, row := range rows {
		fmt.Fprintf(&text, "%s: %s\n", row[0], row[1])
		fmt.Fprintf(&markup, "<tr><td>%s</td><td><b>%s</b></td></tr>", row[0], html.EscapeString(row[1]))
	}
	markup.WriteString("</table>")

	return types.SendEmailPayload{
		FromAddress: from,
		ToAddress:   payment.Email,
		Subject:     fmt.Sprintf("Steam top-up of %s %s completed", payment.FinalAmount.StringFixed(2), payment.Currency),
		Body:        text.String(),
		HTMLBody:    markup.String(),
		DynamicData: map[string]interface{}{
			"payment_id":   payment.ID,
			"account":      payment.Account,
			"final_amount": payment.FinalAmount.StringFixed(2),
		},
	}
}
