package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/services/provider"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingDeposits struct {
	events []*types.DepositEvent
	err    error
}

func (r *recordingDeposits) ProcessDeposit(ctx context.Context, event *types.DepositEvent, status types.PaymentStatus) (*types.Payment, error) {
	r.events = append(r.events, event)
	return nil, r.err
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()
	payload := types.WebhookPayload{"InvId": "pay-1", "OutSum": "1029.00", "Status": "SUCCESS"}
	event := &types.DepositEvent{PaymentID: "pay-1", Amount: decimal.NewFromInt(1029), Currency: "RUB", ProviderStatus: "SUCCESS"}

	setup := func() (*WebhookService, *test.MockProviderAdapter, *recordingDeposits, *test.RecordingNotifier) {
		adapter := &test.MockProviderAdapter{Provider: types.ProviderCardlink}
		deposits := &recordingDeposits{}
		notifier := &test.RecordingNotifier{}
		return NewWebhookService(provider.NewRegistry(adapter), deposits, notifier), adapter, deposits, notifier
	}

	t.Run("valid webhook is reconciled", func(t *testing.T) {
		service, adapter, deposits, notifier := setup()
		adapter.On("Validate", mock.Anything, payload).Return(payload, nil).Once()
		adapter.On("ExtractDeposit", mock.Anything, payload).Return(event, nil).Once()
		adapter.On("MapStatus", "SUCCESS").Return(types.PaymentStatusSuccess).Once()

		result, err := service.HandleWebhook(ctx, "cardlink", payload)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "pay-1", result.PaymentID)
		assert.Equal(t, types.PaymentStatusSuccess, result.Status)
		assert.Len(t, deposits.events, 1)
		assert.Equal(t, []types.PaymentStatus{types.PaymentStatusSuccess}, notifier.Webhooks)
		adapter.AssertExpectations(t)
	})

	t.Run("reconciliation failure is still acknowledged", func(t *testing.T) {
		service, adapter, deposits, _ := setup()
		deposits.err = types.ErrNotFound("Payment")
		adapter.On("Validate", mock.Anything, payload).Return(payload, nil)
		adapter.On("ExtractDeposit", mock.Anything, payload).Return(event, nil)
		adapter.On("MapStatus", "SUCCESS").Return(types.PaymentStatusSuccess)

		result, err := service.HandleWebhook(ctx, "cardlink", payload)
		require.NoError(t, err)
		assert.True(t, result.Success)

		deposits.err = errors.New("database is locked")
		result, err = service.HandleWebhook(ctx, "cardlink", payload)
		require.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("invalid signature is surfaced", func(t *testing.T) {
		service, adapter, deposits, _ := setup()
		adapter.On("Validate", mock.Anything, payload).Return(nil, types.ErrSignatureInvalid(types.ProviderCardlink)).Once()

		result, err := service.HandleWebhook(ctx, "cardlink", payload)
		assert.True(t, types.IsErrorCode(err, types.ErrCodeSignatureInvalid))
		assert.False(t, result.Success)
		assert.Equal(t, "pay-1", result.PaymentID)
		assert.Equal(t, types.PaymentStatusFailed, result.Status)
		assert.Empty(t, deposits.events)
		adapter.AssertNotCalled(t, "ExtractDeposit", mock.Anything, mock.Anything)
	})

	t.Run("extraction failure is invalid data", func(t *testing.T) {
		service, adapter, deposits, _ := setup()
		adapter.On("Validate", mock.Anything, payload).Return(payload, nil).Once()
		adapter.On("ExtractDeposit", mock.Anything, payload).Return(nil, errors.New("bad amount")).Once()

		result, err := service.HandleWebhook(ctx, "cardlink", payload)
		assert.True(t, types.IsErrorCode(err, types.ErrCodeWebhookDataInvalid))
		assert.False(t, result.Success)
		assert.Empty(t, deposits.events)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		service, _, _, _ := setup()

		result, err := service.HandleWebhook(ctx, "paypal", payload)
		assert.True(t, types.IsErrorCode(err, types.ErrCodeProviderUnsupported))
		assert.False(t, result.Success)
		assert.Equal(t, "unknown", result.PaymentID)
		assert.Equal(t, types.PaymentStatusFailed, result.Status)
	})
}
