package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/crypto"
	"github.com/steamtrust/backend/utils/logger"
)

const cardlinkCurrency = "RUB"

// CardlinkAdapter creates card bills with Cardlink and verifies its
// MD5-signed result callbacks
type CardlinkAdapter struct {
	conf *config.ProviderConfiguration
}

// NewCardlinkAdapter creates a Cardlink adapter
func NewCardlinkAdapter(conf *config.ProviderConfiguration) *CardlinkAdapter {
	return &CardlinkAdapter{conf: conf}
}

// Name implements types.ProviderAdapter
func (a *CardlinkAdapter) Name() types.PaymentProvider {
	return types.ProviderCardlink
}

// CreatePayment creates a bill for the gross payment amount
func (a *CardlinkAdapter) CreatePayment(ctx context.Context, payment *types.Payment, method *types.PaymentMethod) (*types.ProviderPayment, error) {
	payload := map[string]interface{}{
		"amount":                payment.Amount.String(),
		"shop_id":               a.conf.CardlinkShopID,
		"order_id":              payment.ID,
		"currency_in":           cardlinkCurrency,
		"payer_pays_commission": 0,
		"payer_email":           payment.Email,
		"payment_method":        method.ProviderMethod,
	}

	res, err := fastshot.NewClient(a.conf.CardlinkBaseURL).
		Config().SetTimeout(a.conf.Timeout).
		Header().Add("Content-Type", "application/json").
		Header().Add("Authorization", "Bearer "+a.conf.CardlinkAPIToken).
		Build().
		POST("/bill/create").
		Context().Set(ctx).
		Body().AsJSON(payload).
		Send()
	if err != nil {
		return nil, types.ErrPaymentRequest(fmt.Errorf("cardlink bill request: %w", err))
	}

	data, err := decodeResponse(res.RawResponse, http.StatusOK, http.StatusCreated)
	if err != nil {
		logger.WithFields(logger.Fields{
			"Error":     fmt.Sprintf("%v", err),
			"PaymentID": payment.ID,
		}).Errorf("Cardlink bill creation failed")
		return nil, types.ErrPaymentRequest(err)
	}

	if !truthy(data["success"]) {
		return nil, types.ErrPaymentRequest(fmt.Errorf("cardlink rejected bill: %s", stringOf(data["message"])))
	}

	return &types.ProviderPayment{
		PaymentLink:           stringOf(data["link_page_url"]),
		ProviderTransactionID: stringOf(data["bill_id"]),
		Metadata: types.Metadata{
			"providerCreatePayResponse": data,
		},
	}, nil
}

// Validate checks the callback shape, signature and currency
func (a *CardlinkAdapter) Validate(ctx context.Context, payload types.WebhookPayload) (types.WebhookPayload, error) {
	if err := validateShape(cardlinkSchema, payload); err != nil {
		return nil, err
	}

	outSum := payload.String("OutSum")
	invID := payload.String("InvId")
	expected := crypto.MD5Signature(outSum, invID, a.conf.CardlinkAPIToken)
	if !crypto.SecureCompare(expected, payload.String("SignatureValue")) {
		logger.WithFields(logger.Fields{
			"InvId":  invID,
			"OutSum": outSum,
		}).Warnf("Cardlink webhook signature mismatch")
		return nil, types.ErrSignatureInvalid(types.ProviderCardlink)
	}

	if !strings.EqualFold(payload.String("CurrencyIn"), cardlinkCurrency) {
		return nil, types.ErrWebhookDataInvalid(fmt.Sprintf("unsupported currency %s", payload.String("CurrencyIn")))
	}

	return payload, nil
}

// ExtractDeposit reads the credited amount from a validated callback
func (a *CardlinkAdapter) ExtractDeposit(ctx context.Context, payload types.WebhookPayload) (*types.DepositEvent, error) {
	amount, err := utils.ToDecimal(payload.String("OutSum"))
	if err != nil {
		return nil, types.ErrWebhookDataInvalid(fmt.Sprintf("invalid OutSum: %v", err))
	}

	return &types.DepositEvent{
		PaymentID:      payload.String("InvId"),
		Amount:         amount,
		Currency:       cardlinkCurrency,
		ProviderStatus: payload.String("Status"),
	}, nil
}

// MapStatus implements types.ProviderAdapter
func (a *CardlinkAdapter) MapStatus(providerStatus string) types.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(providerStatus)) {
	case "SUCCESS":
		return types.PaymentStatusSuccess
	case "FAIL", "UNDERPAID", "OVERPAID":
		return types.PaymentStatusFailed
	default:
		return types.PaymentStatusPending
	}
}
