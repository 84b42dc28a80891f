package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus(t *testing.T) {
	terminal := []PaymentStatus{
		PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusExternalError,
		PaymentStatusInsufficientFunds, PaymentStatusTopUpError,
	}
	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), status)
	}

	for _, status := range []PaymentStatus{PaymentStatusPending, PaymentStatusSuccess, PaymentStatusExternalProcess} {
		assert.False(t, status.IsTerminal(), status)
	}

	assert.False(t, PaymentStatus("bogus").IsValid())
	assert.False(t, PaymentStatus("bogus").IsTerminal())
}

func TestCommissionFor(t *testing.T) {
	method := &PaymentMethod{
		Min:                        100,
		Max:                        15000,
		RelativeCommission:         decimal.RequireFromString("2.5"),
		RelativeProviderCommission: decimal.RequireFromString("0.4"),
	}

	commission := method.CommissionFor(decimal.NewFromInt(1000))
	assert.Equal(t, "29", commission.String())
	assert.Equal(t, "1029.00", decimal.NewFromInt(1000).Add(commission).StringFixed(2))
}

func TestWebhookPayloadString(t *testing.T) {
	payload := WebhookPayload{
		"InvId":  " abc ",
		"OutSum": 1029.5,
		"Nil":    nil,
		"Bool":   true,
	}

	assert.Equal(t, "abc", payload.String("InvId"))
	assert.Equal(t, "1029.5", payload.String("OutSum"))
	assert.Equal(t, "", payload.String("Nil"))
	assert.Equal(t, "", payload.String("Missing"))
	assert.Equal(t, "true", payload.String("Bool"))
}

func TestAppError(t *testing.T) {
	t.Run("localized messages", func(t *testing.T) {
		err := ErrAmountTooLow(decimal.NewFromInt(50), 100)
		assert.Equal(t, "Payment amount is too low", err.Message("en"))
		assert.Equal(t, "Сумма платежа слишком мала", err.Message("ru"))
		assert.Equal(t, "Payment amount is too low", err.Message("de"))
		assert.Equal(t, http.StatusBadRequest, err.Status)
		assert.Equal(t, int64(100), err.Details["minAmount"])
	})

	t.Run("unwraps through fmt wrapping", func(t *testing.T) {
		cause := errors.New("timeout")
		wrapped := fmt.Errorf("create payment: %w", ErrB2BUnavailable(cause))

		appErr, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeB2BUnavailable, appErr.Code)
		assert.True(t, errors.Is(wrapped, cause))
		assert.True(t, IsErrorCode(wrapped, ErrCodeB2BUnavailable))
		assert.False(t, IsErrorCode(errors.New("plain"), ErrCodeB2BUnavailable))
	})

	t.Run("every code has a message", func(t *testing.T) {
		for code := range errorMessages {
			err := NewAppError(code, http.StatusBadRequest, nil, nil)
			assert.NotEqual(t, string(code), err.Message("en"))
			assert.NotEmpty(t, err.Message("ru"))
		}
	})
}

func TestPaginatedResponse(t *testing.T) {
	page := NewPaginatedResponse([]string{"a"}, 25, Pagination{Page: 2, Limit: 10})
	assert.Equal(t, 3, page.PageCount)
	assert.True(t, page.HasPreviousPage)
	assert.True(t, page.HasNextPage)

	last := NewPaginatedResponse([]string{}, 25, Pagination{Page: 3, Limit: 10})
	assert.False(t, last.HasNextPage)
	assert.Equal(t, 20, Pagination{Page: 3, Limit: 10}.Offset())
}
