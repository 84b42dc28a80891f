package test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/shopspring/decimal"
	db "github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
	"github.com/stretchr/testify/require"
)

// NewTestDB opens an in-memory sqlite database with the schema applied
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", "file::memory:?_loc=UTC")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(context.Background(), conn, db.DialectSQLite))

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// CreateTestPaymentMethod creates a payment method with default or custom values
func CreateTestPaymentMethod(conn *sql.DB, overrides map[string]interface{}) (*types.PaymentMethod, error) {

	// Default payload
	payload := map[string]interface{}{
		"providerMethod":             "card_rub",
		"provider":                   types.ProviderCardlink,
		"fromCurrencyCode":           "RUB",
		"toCurrencyCode":             "RUB",
		"min":                        int64(100),
		"max":                        int64(15000),
		"relativeCommission":         decimal.NewFromInt(2),
		"relativeProviderCommission": decimal.RequireFromString("0.9"),
		"isActive":                   true,
	}

	// Apply overrides
	for key, value := range overrides {
		payload[key] = value
	}

	method := &types.PaymentMethod{
		ID:                         uuid.NewString(),
		ProviderMethod:             payload["providerMethod"].(string),
		Provider:                   payload["provider"].(types.PaymentProvider),
		FromCurrencyCode:           payload["fromCurrencyCode"].(string),
		ToCurrencyCode:             payload["toCurrencyCode"].(string),
		Min:                        payload["min"].(int64),
		Max:                        payload["max"].(int64),
		RelativeCommission:         payload["relativeCommission"].(decimal.Decimal),
		RelativeProviderCommission: payload["relativeProviderCommission"].(decimal.Decimal),
		IsActive:                   payload["isActive"].(bool),
	}

	err := db.NewMethodRepository(conn).Create(context.Background(), method)
	return method, err
}

// CreateTestPayment creates a payment with default or custom values
func CreateTestPayment(conn *sql.DB, overrides map[string]interface{}) (*types.Payment, error) {

	// Default payload
	payload := map[string]interface{}{
		"provider":              types.ProviderCardlink,
		"providerTransactionId": "",
		"email":                 "payer@test.com",
		"currency":              "RUB",
		"amount":                decimal.NewFromInt(1000),
		"commission":            decimal.NewFromInt(29),
		"status":                types.PaymentStatusPending,
		"account":               "steamuser",
		"b2bTransactionId":      "",
		"metadata":              types.Metadata{},
		"createdAt":             time.Now().UTC(),
	}

	// Apply overrides
	for key, value := range overrides {
		payload[key] = value
	}

	payment := &types.Payment{
		ID:                    uuid.NewString(),
		Provider:              payload["provider"].(types.PaymentProvider),
		ProviderTransactionID: payload["providerTransactionId"].(string),
		Email:                 strings.ToLower(payload["email"].(string)),
		Currency:              payload["currency"].(string),
		Amount:                payload["amount"].(decimal.Decimal),
		PaidAmount:            decimal.Zero,
		FinalAmount:           decimal.Zero,
		Bonus:                 decimal.Zero,
		Commission:            payload["commission"].(decimal.Decimal),
		Status:                payload["status"].(types.PaymentStatus),
		Account:               payload["account"].(string),
		B2BTransactionID:      payload["b2bTransactionId"].(string),
		Metadata:              payload["metadata"].(types.Metadata),
		CreatedAt:             payload["createdAt"].(time.Time),
	}

	err := db.NewPaymentRepository(conn, db.DialectSQLite).Create(context.Background(), nil, payment)
	return payment, err
}

// CreateTestPromoCode creates a promo code with default or custom values
func CreateTestPromoCode(conn *sql.DB, overrides map[string]interface{}) (*types.PromoCode, error) {

	// Default payload
	payload := map[string]interface{}{
		"code":         "welcome",
		"bonusPercent": decimal.NewFromInt(2),
	}

	// Apply overrides
	for key, value := range overrides {
		payload[key] = value
	}

	code := &types.PromoCode{
		ID:           uuid.NewString(),
		Code:         payload["code"].(string),
		BonusPercent: payload["bonusPercent"].(decimal.Decimal),
	}

	err := db.NewPromoRepository(conn).CreateCode(context.Background(), code)
	return code, err
}

// ActivateTestPromoCode activates code for email at activatedAt
func ActivateTestPromoCode(conn *sql.DB, code *types.PromoCode, email string, activatedAt time.Time) (*types.PromoActivation, error) {
	activation := &types.PromoActivation{
		ID:          uuid.NewString(),
		PromoCodeID: code.ID,
		Email:       strings.ToLower(email),
		Status:      types.PromoActivationActive,
		ActivatedAt: activatedAt,
	}

	err := db.NewPromoRepository(conn).CreateActivation(context.Background(), activation)
	return activation, err
}
