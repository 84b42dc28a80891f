package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/logger"
)

const (
	cryptopayQuoteCurrency = "rub"
	cryptopayRatesKey      = "cryptopay:rates:rub"
)

// tokenDecimals is the precision of the token amount sent to Cryptopay
var tokenDecimals = map[string]int32{
	"btc":  8,
	"eth":  8,
	"usdt": 4,
	"trx":  6,
	"ton":  8,
}

// CryptopayAdapter creates crypto invoices with Cryptopay and confirms its
// webhooks by fetching the transaction back from the provider
type CryptopayAdapter struct {
	conf  *config.ProviderConfiguration
	cache *redis.Client
}

// NewCryptopayAdapter creates a Cryptopay adapter. cache may be nil, in which
// case rates are fetched on every call.
func NewCryptopayAdapter(conf *config.ProviderConfiguration, cache *redis.Client) *CryptopayAdapter {
	return &CryptopayAdapter{conf: conf, cache: cache}
}

// Name implements types.ProviderAdapter
func (a *CryptopayAdapter) Name() types.PaymentProvider {
	return types.ProviderCryptopay
}

func (a *CryptopayAdapter) post(ctx context.Context, path string, payload interface{}) (map[string]interface{}, error) {
	res, err := fastshot.NewClient(a.conf.CryptopayBaseURL).
		Config().SetTimeout(a.conf.Timeout).
		Header().Add("Content-Type", "application/json").
		Header().Add("Authorization", a.conf.CryptopayAPIKey).
		Build().
		POST(path).
		Context().Set(ctx).
		Body().AsJSON(payload).
		Send()
	if err != nil {
		return nil, fmt.Errorf("cryptopay request %s: %w", path, err)
	}

	return decodeResponse(res.RawResponse, http.StatusOK, http.StatusCreated)
}

// Rates returns RUB prices keyed by lowercase token, cached in redis
func (a *CryptopayAdapter) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	if a.cache != nil {
		cached, err := a.cache.Get(ctx, cryptopayRatesKey).Result()
		if err == nil {
			var raw map[string]string
			if err := json.Unmarshal([]byte(cached), &raw); err == nil {
				return parseRates(raw)
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.WithFields(logger.Fields{
				"Error": fmt.Sprintf("%v", err),
			}).Warnf("Failed to read cached Cryptopay rates")
		}
	}

	data, err := a.post(ctx, "/api/token/rates", map[string]string{"currency": cryptopayQuoteCurrency})
	if err != nil {
		return nil, types.ErrProviderUnavailable(err)
	}

	quotes, ok := data[cryptopayQuoteCurrency].(map[string]interface{})
	if !ok || len(quotes) == 0 {
		return nil, types.ErrProviderResponse(fmt.Errorf("rates response has no %s quotes", cryptopayQuoteCurrency))
	}

	raw := make(map[string]string, len(quotes))
	for token, value := range quotes {
		raw[strings.ToLower(token)] = stringOf(value)
	}

	if a.cache != nil && a.conf.RatesCacheTTL > 0 {
		encoded, _ := json.Marshal(raw)
		if err := a.cache.Set(ctx, cryptopayRatesKey, string(encoded), a.conf.RatesCacheTTL).Err(); err != nil {
			logger.WithFields(logger.Fields{
				"Error": fmt.Sprintf("%v", err),
			}).Warnf("Failed to cache Cryptopay rates")
		}
	}

	return parseRates(raw)
}

func parseRates(raw map[string]string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(raw))
	for token, value := range raw {
		rate, err := utils.ToDecimal(value)
		if err != nil {
			continue
		}
		rates[token] = rate
	}
	return rates, nil
}

func (a *CryptopayAdapter) rateFor(ctx context.Context, token string) (decimal.Decimal, error) {
	rates, err := a.Rates(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := rates[strings.ToLower(token)]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, types.ErrProviderResponse(fmt.Errorf("unknown rate for token %s", token))
	}
	return rate, nil
}

// CreatePayment converts the gross RUB amount into the method's token and
// creates a deposit invoice
func (a *CryptopayAdapter) CreatePayment(ctx context.Context, payment *types.Payment, method *types.PaymentMethod) (*types.ProviderPayment, error) {
	token := strings.ToLower(method.ToCurrencyCode)

	rate, err := a.rateFor(ctx, token)
	if err != nil {
		return nil, types.ErrPaymentRequest(err)
	}

	places, ok := tokenDecimals[token]
	if !ok {
		places = 2
	}

	body := map[string]interface{}{
		"orderId":           payment.ID,
		"clientId":          payment.Email,
		"description":       a.conf.CryptopayPaymentDescription,
		"allowChangeAmount": true,
		"amount":            payment.Amount.Div(rate).Round(places).StringFixed(places),
		"type":              "deposit",
		"token":             token,
		"network":           strings.ToLower(method.FromCurrencyCode),
		"webhookUrl":        a.conf.CryptopayWebhookURL,
		"successUrl":        a.conf.CryptopaySuccessURL,
		"failUrl":           a.conf.CryptopayFailURL,
	}

	data, err := a.post(ctx, "/api/transaction/create", body)
	if err != nil {
		logger.WithFields(logger.Fields{
			"Error":     fmt.Sprintf("%v", err),
			"PaymentID": payment.ID,
		}).Errorf("Cryptopay invoice creation failed")
		return nil, types.ErrPaymentRequest(err)
	}

	return &types.ProviderPayment{
		PaymentLink:           stringOf(data["payLink"]),
		ProviderTransactionID: stringOf(data["id"]),
		Metadata: types.Metadata{
			"providerCreatePayBody":     body,
			"providerCreatePayResponse": data,
		},
	}, nil
}

// Validate fetches the transaction named by the webhook from Cryptopay and
// returns it as the trusted payload. The webhook body itself is unsigned.
func (a *CryptopayAdapter) Validate(ctx context.Context, payload types.WebhookPayload) (types.WebhookPayload, error) {
	if err := validateShape(cryptopaySchema, payload); err != nil {
		return nil, err
	}

	orderID := payload.String("orderId")
	transaction, err := a.post(ctx, "/api/transaction/get", map[string]string{"orderId": orderID})
	if err != nil {
		return nil, types.ErrWebhookDataInvalid(fmt.Sprintf("transaction lookup failed: %v", err))
	}

	trusted := types.WebhookPayload(transaction)
	if err := validateShape(transactionSchema, trusted); err != nil {
		return nil, types.ErrWebhookDataInvalid("transaction not found")
	}
	if trusted.String("orderId") != orderID {
		return nil, types.ErrWebhookDataInvalid(fmt.Sprintf("transaction order %s does not match %s", trusted.String("orderId"), orderID))
	}

	return trusted, nil
}

// ExtractDeposit converts the transaction's token amount into RUB
func (a *CryptopayAdapter) ExtractDeposit(ctx context.Context, payload types.WebhookPayload) (*types.DepositEvent, error) {
	amountToken, err := utils.ToDecimal(payload.String("amount"))
	if err != nil {
		return nil, types.ErrWebhookDataInvalid(fmt.Sprintf("invalid amount: %v", err))
	}

	rate, err := a.rateFor(ctx, payload.String("token"))
	if err != nil {
		return nil, err
	}

	return &types.DepositEvent{
		PaymentID:      payload.String("orderId"),
		Amount:         amountToken.Mul(rate).Round(2),
		Currency:       strings.ToUpper(cryptopayQuoteCurrency),
		ProviderStatus: payload.String("status"),
	}, nil
}

// MapStatus implements types.ProviderAdapter
func (a *CryptopayAdapter) MapStatus(providerStatus string) types.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "success":
		return types.PaymentStatusSuccess
	case "failed":
		return types.PaymentStatusFailed
	default:
		return types.PaymentStatusPending
	}
}
