package services

import (
	"context"
	"fmt"

	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/logger"
)

// DepositProcessor applies a validated deposit event to the ledger
type DepositProcessor interface {
	ProcessDeposit(ctx context.Context, event *types.DepositEvent, status types.PaymentStatus) (*types.Payment, error)
}

// WebhookService routes provider webhooks to their adapter and hands valid
// deposits to the reconciler
type WebhookService struct {
	providers ProviderLookup
	deposits  DepositProcessor
	notifier  types.Notifier
}

// NewWebhookService creates a new instance of WebhookService
func NewWebhookService(providers ProviderLookup, deposits DepositProcessor, notifier types.Notifier) *WebhookService {
	return &WebhookService{
		providers: providers,
		deposits:  deposits,
		notifier:  notifier,
	}
}

func webhookPaymentID(payload types.WebhookPayload) string {
	if id := payload.String("orderId"); id != "" {
		return id
	}
	if id := payload.String("InvId"); id != "" {
		return id
	}
	return "unknown"
}

func failedResult(paymentID string, err error) *types.WebhookResult {
	return &types.WebhookResult{
		Success:   false,
		PaymentID: paymentID,
		Status:    types.PaymentStatusFailed,
		Error:     err.Error(),
	}
}

// HandleWebhook validates a webhook and reconciles its deposit. The result is
// successful once the payload is authentic; reconciliation failures after
// that point are logged and never reach the provider.
func (s *WebhookService) HandleWebhook(ctx context.Context, provider string, payload types.WebhookPayload) (*types.WebhookResult, error) {
	adapter, err := s.providers.Get(provider)
	if err != nil {
		return failedResult("unknown", err), err
	}
	name := adapter.Name()
	paymentID := webhookPaymentID(payload)

	trusted, err := adapter.Validate(ctx, payload)
	if err != nil {
		logger.WithFields(logger.Fields{
			"Error":     fmt.Sprintf("%v", err),
			"Provider":  name,
			"PaymentID": paymentID,
		}).Warnf("Webhook rejected")
		return failedResult(paymentID, err), err
	}

	event, err := adapter.ExtractDeposit(ctx, trusted)
	if err != nil {
		logger.WithFields(logger.Fields{
			"Error":     fmt.Sprintf("%v", err),
			"Provider":  name,
			"PaymentID": paymentID,
		}).Errorf("Failed to extract deposit from webhook")
		if _, ok := types.AsAppError(err); !ok {
			err = types.ErrWebhookDataInvalid(err.Error())
		}
		return failedResult(paymentID, err), err
	}

	status := adapter.MapStatus(event.ProviderStatus)

	logger.WithFields(logger.Fields{
		"Provider":  name,
		"PaymentID": event.PaymentID,
		"Status":    status,
		"Amount":    event.Amount.String(),
	}).Infof("Webhook received")
	s.notifier.WebhookReceived(ctx, name, event, status)

	if _, err := s.deposits.ProcessDeposit(context.WithoutCancel(ctx), event, status); err != nil {
		if types.IsErrorCode(err, types.ErrCodeNotFound) {
			logger.WithFields(logger.Fields{
				"Provider":  name,
				"PaymentID": event.PaymentID,
			}).Infof("Webhook for a payment that is no longer pending, nothing to do")
		} else {
			logger.WithFields(logger.Fields{
				"Error":     fmt.Sprintf("%v", err),
				"Provider":  name,
				"PaymentID": event.PaymentID,
			}).Errorf("Failed to process deposit")
		}
	}

	return &types.WebhookResult{
		Success:   true,
		PaymentID: event.PaymentID,
		Status:    status,
		Message:   fmt.Sprintf("%s webhook processed successfully", name),
	}, nil
}
