package notification

import (
	"context"

	"github.com/steamtrust/backend/types"
)

// Multi fans every notification out to several notifiers
type Multi []types.Notifier

// PaymentCreated implements types.Notifier
func (m Multi) PaymentCreated(ctx context.Context, payment *types.Payment) {
	for _, n := range m {
		n.PaymentCreated(ctx, payment)
	}
}

// DepositProcessed implements types.Notifier
func (m Multi) DepositProcessed(ctx context.Context, payment *types.Payment) {
	for _, n := range m {
		n.DepositProcessed(ctx, payment)
	}
}

// WebhookReceived implements types.Notifier
func (m Multi) WebhookReceived(ctx context.Context, provider types.PaymentProvider, event *types.DepositEvent, status types.PaymentStatus) {
	for _, n := range m {
		n.WebhookReceived(ctx, provider, event, status)
	}
}

// SystemAlert implements types.Notifier
func (m Multi) SystemAlert(ctx context.Context, alert types.SystemAlert) {
	for _, n := range m {
		n.SystemAlert(ctx, alert)
	}
}
