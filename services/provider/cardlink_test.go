package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardlinkTestURL = "https://cardlink.test/api/v1"

func newTestProviderConfig() *config.ProviderConfiguration {
	return &config.ProviderConfiguration{
		Timeout:                     5 * time.Second,
		RatesCacheTTL:               time.Minute,
		CardlinkBaseURL:             cardlinkTestURL,
		CardlinkShopID:              "shop-1",
		CardlinkAPIToken:            "cardlink-token",
		CryptopayBaseURL:            cryptopayTestURL,
		CryptopayAPIKey:             "cryptopay-key",
		CryptopayWebhookURL:         "https://api.test/v1/cryptopay/pay",
		CryptopaySuccessURL:         "https://shop.test/success",
		CryptopayFailURL:            "https://shop.test/fail",
		CryptopayPaymentDescription: "Steam balance top-up",
	}
}

func signedCardlinkPayload(outSum, invID, status string) types.WebhookPayload {
	return types.WebhookPayload{
		"InvId":          invID,
		"OutSum":         outSum,
		"CurrencyIn":     "RUB",
		"Status":         status,
		"SignatureValue": crypto.MD5Signature(outSum, invID, "cardlink-token"),
	}
}

func TestCardlinkCreatePayment(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	adapter := NewCardlinkAdapter(newTestProviderConfig())
	payment := &types.Payment{
		ID:     "pay-1",
		Email:  "payer@test.com",
		Amount: decimal.RequireFromString("1029"),
	}
	method := &types.PaymentMethod{ProviderMethod: "card_rub"}

	t.Run("returns the bill link", func(t *testing.T) {
		httpmock.RegisterResponder("POST", cardlinkTestURL+"/bill/create",
			func(r *http.Request) (*http.Response, error) {
				assert.Equal(t, "Bearer cardlink-token", r.Header.Get("Authorization"))

				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "1029", body["amount"])
				assert.Equal(t, "shop-1", body["shop_id"])
				assert.Equal(t, "pay-1", body["order_id"])
				assert.Equal(t, "RUB", body["currency_in"])
				assert.Equal(t, "card_rub", body["payment_method"])
				assert.Equal(t, "payer@test.com", body["payer_email"])

				return httpmock.NewJsonResponse(200, map[string]interface{}{
					"success":       "true",
					"link_page_url": "https://cardlink.test/link/abc",
					"bill_id":       "bill-42",
				})
			})

		result, err := adapter.CreatePayment(context.Background(), payment, method)
		require.NoError(t, err)
		assert.Equal(t, "https://cardlink.test/link/abc", result.PaymentLink)
		assert.Equal(t, "bill-42", result.ProviderTransactionID)
		assert.Contains(t, result.Metadata, "providerCreatePayResponse")
	})

	t.Run("falsy success flag is a payment request error", func(t *testing.T) {
		httpmock.RegisterResponder("POST", cardlinkTestURL+"/bill/create",
			httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"success": false, "message": "shop disabled"}))

		_, err := adapter.CreatePayment(context.Background(), payment, method)
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrCodePaymentRequest))
	})

	t.Run("server error is a payment request error", func(t *testing.T) {
		httpmock.RegisterResponder("POST", cardlinkTestURL+"/bill/create",
			httpmock.NewStringResponder(502, "bad gateway"))

		_, err := adapter.CreatePayment(context.Background(), payment, method)
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrCodePaymentRequest))
	})
}

func TestCardlinkValidate(t *testing.T) {
	adapter := NewCardlinkAdapter(newTestProviderConfig())
	ctx := context.Background()

	t.Run("accepts a correctly signed callback", func(t *testing.T) {
		payload := signedCardlinkPayload("1029.00", "pay-1", "SUCCESS")
		trusted, err := adapter.Validate(ctx, payload)
		require.NoError(t, err)
		assert.Equal(t, payload, trusted)
	})

	t.Run("accepts a lowercase signature", func(t *testing.T) {
		payload := signedCardlinkPayload("1029.00", "pay-1", "SUCCESS")
		payload["SignatureValue"] = strings.ToLower(payload.String("SignatureValue"))
		_, err := adapter.Validate(ctx, payload)
		require.NoError(t, err)
	})

	t.Run("rejects a tampered amount", func(t *testing.T) {
		payload := signedCardlinkPayload("1029.00", "pay-1", "SUCCESS")
		payload["OutSum"] = "99999.00"
		_, err := adapter.Validate(ctx, payload)
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrCodeSignatureInvalid))
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		payload := signedCardlinkPayload("1029.00", "pay-1", "SUCCESS")
		delete(payload, "Status")
		_, err := adapter.Validate(ctx, payload)
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrCodeWebhookDataInvalid))
	})

	t.Run("rejects a non RUB currency", func(t *testing.T) {
		payload := signedCardlinkPayload("1029.00", "pay-1", "SUCCESS")
		payload["CurrencyIn"] = "USD"
		_, err := adapter.Validate(ctx, payload)
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrCodeWebhookDataInvalid))
	})
}

func TestCardlinkExtractDeposit(t *testing.T) {
	adapter := NewCardlinkAdapter(newTestProviderConfig())

	deposit, err := adapter.ExtractDeposit(context.Background(), signedCardlinkPayload("1029.50", "pay-7", "SUCCESS"))
	require.NoError(t, err)
	assert.Equal(t, "pay-7", deposit.PaymentID)
	assert.True(t, deposit.Amount.Equal(decimal.RequireFromString("1029.5")))
	assert.Equal(t, "RUB", deposit.Currency)
	assert.Equal(t, "SUCCESS", deposit.ProviderStatus)

	_, err = adapter.ExtractDeposit(context.Background(), types.WebhookPayload{"InvId": "pay-7", "OutSum": "abc"})
	assert.True(t, types.IsErrorCode(err, types.ErrCodeWebhookDataInvalid))
}

func TestCardlinkMapStatus(t *testing.T) {
	adapter := NewCardlinkAdapter(newTestProviderConfig())

	tests := []struct {
		input    string
		expected types.PaymentStatus
	}{
		{"SUCCESS", types.PaymentStatusSuccess},
		{"success", types.PaymentStatusSuccess},
		{"FAIL", types.PaymentStatusFailed},
		{"UNDERPAID", types.PaymentStatusFailed},
		{"OVERPAID", types.PaymentStatusFailed},
		{"NEW", types.PaymentStatusPending},
		{"", types.PaymentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.MapStatus(tt.input))
		})
	}
}
