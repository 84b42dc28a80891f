package controllers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/routers/middleware"
	svc "github.com/steamtrust/backend/services"
	"github.com/steamtrust/backend/services/b2b"
	"github.com/steamtrust/backend/services/provider"
	"github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type controllerTestEnv struct {
	db       *sql.DB
	payments *storage.PaymentRepository
	gateway  *test.MockB2BGateway
	adapter  *test.MockProviderAdapter
	router   *gin.Engine
}

func setupControllerTest(t *testing.T) *controllerTestEnv {
	gin.SetMode(gin.TestMode)
	conn := test.NewTestDB(t)

	_, err := test.CreateTestPaymentMethod(conn, nil)
	require.NoError(t, err)
	_, err = test.CreateTestPaymentMethod(conn, map[string]interface{}{
		"providerMethod": "card_old",
		"isActive":       false,
	})
	require.NoError(t, err)

	env := &controllerTestEnv{
		db:       conn,
		payments: storage.NewPaymentRepository(conn, storage.DialectSQLite),
		gateway:  &test.MockB2BGateway{},
		adapter:  &test.MockProviderAdapter{Provider: types.ProviderCardlink},
	}

	conf := &config.PaymentConfiguration{
		MaxActiveOrders:          2,
		DailyLimit:               decimal.NewFromInt(30000),
		PromoRetention:           30 * 24 * time.Hour,
		PromoDefaultBonusPercent: decimal.NewFromInt(2),
	}
	notifier := &test.RecordingNotifier{}
	registry := provider.NewRegistry(env.adapter)
	promos := svc.NewPromoService(storage.NewPromoRepository(conn), conf)

	ctrl := NewController(
		conn,
		svc.NewPaymentService(env.payments, storage.NewMethodRepository(conn), registry, env.gateway, notifier, conf),
		svc.NewMethodService(storage.NewMethodRepository(conn)),
		promos,
		svc.NewWebhookService(registry, svc.NewDepositService(conn, env.payments, promos, notifier), notifier),
	)

	router := gin.New()
	router.Use(middleware.LanguageMiddleware())
	router.GET("/health", ctrl.Health)
	router.POST("/v1/payment", ctrl.CreatePayment)
	router.GET("/v1/payment/methods", ctrl.GetActiveMethods)
	router.GET("/v1/payment/:id", ctrl.GetPayment)
	router.POST("/v1/promocode/:code/activate", ctrl.ActivatePromoCode)
	router.GET("/v1/promocode/active", ctrl.GetActivePromo)
	router.POST("/v1/:provider/pay", ctrl.HandleWebhook)
	router.POST("/v1/webhook", ctrl.HandleWebhook)
	env.router = router

	return env
}

func newRawRequest(path, body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func decodeResponse(t *testing.T, body []byte) types.Response {
	var response types.Response
	require.NoError(t, json.Unmarshal(body, &response))
	return response
}

func TestHealth(t *testing.T) {
	env := setupControllerTest(t)

	res, err := test.PerformRequest(t, "GET", "/health", nil, nil, env.router)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Code)

	response := decodeResponse(t, res.Body.Bytes())
	assert.Equal(t, "success", response.Status)
	assert.Equal(t, "OK", response.Message)

	require.NoError(t, env.db.Close())
	res, err = test.PerformRequest(t, "GET", "/health", nil, nil, env.router)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestPaymentEndpoints(t *testing.T) {
	t.Run("CreatePayment", func(t *testing.T) {
		t.Run("with valid payload", func(t *testing.T) {
			env := setupControllerTest(t)
			env.gateway.On("PaymentVerify", mock.Anything, mock.Anything, "steamuser", mock.Anything, mock.Anything).
				Return(&types.B2BPaymentResponse{
					Success: true,
					Data: &types.B2BPayment{
						Code:       "b2b-1",
						SteamLogin: "steamuser",
						StatusCode: b2b.StatusRequestAccepted,
					},
				}, nil).Once()
			env.adapter.On("CreatePayment", mock.Anything, mock.Anything, mock.Anything).
				Return(&types.ProviderPayment{
					PaymentLink:           "https://pay.test/bill-1",
					ProviderTransactionID: "bill-1",
				}, nil).Once()

			payload := types.CreatePaymentPayload{
				Amount:     "1000",
				MethodCode: "card_rub",
				Account:    "steamuser",
				Email:      "payer@test.com",
			}
			res, err := test.PerformRequest(t, "POST", "/v1/payment", payload, nil, env.router)
			assert.NoError(t, err)
			assert.Equal(t, http.StatusCreated, res.Code)

			response := decodeResponse(t, res.Body.Bytes())
			assert.Equal(t, "Payment created successfully", response.Message)
			data, ok := response.Data.(map[string]interface{})
			require.True(t, ok, "response.Data is not of type map[string]interface{}")
			assert.Equal(t, "https://pay.test/bill-1", data["paymentLink"])
			assert.NotEmpty(t, data["paymentId"])

			env.gateway.AssertExpectations(t)
			env.adapter.AssertExpectations(t)
		})

		t.Run("with invalid payload", func(t *testing.T) {
			env := setupControllerTest(t)

			payload := map[string]string{
				"amount":     "ten",
				"methodCode": "card_rub",
				"account":    "steamuser",
				"email":      "not-an-email",
			}
			res, err := test.PerformRequest(t, "POST", "/v1/payment", payload, nil, env.router)
			assert.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, res.Code)

			response := decodeResponse(t, res.Body.Bytes())
			assert.Equal(t, "error", response.Status)
			assert.Equal(t, "Validation error occurred", response.Message)
			env.gateway.AssertNotCalled(t, "PaymentVerify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})

		t.Run("with unknown method in russian", func(t *testing.T) {
			env := setupControllerTest(t)

			payload := types.CreatePaymentPayload{
				Amount:     "1000",
				MethodCode: "card_usd",
				Account:    "steamuser",
				Email:      "payer@test.com",
			}
			res, err := test.PerformRequest(t, "POST", "/v1/payment", payload, map[string]string{"Accept-Language": "ru"}, env.router)
			assert.NoError(t, err)

			response := decodeResponse(t, res.Body.Bytes())
			assert.Equal(t, "error", response.Status)
			data, ok := response.Data.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, string(types.ErrCodeMethodNotFound), data["code"])
			assert.Equal(t, types.ErrMethodNotFound("card_usd").Message(types.LangRU), response.Message)
		})
	})

	t.Run("GetPayment", func(t *testing.T) {
		env := setupControllerTest(t)
		payment, err := test.CreateTestPayment(env.db, nil)
		require.NoError(t, err)

		res, err := test.PerformRequest(t, "GET", "/v1/payment/"+payment.ID, nil, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.Code)

		response := decodeResponse(t, res.Body.Bytes())
		data, ok := response.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, payment.ID, data["id"])
		assert.Equal(t, string(types.PaymentStatusPending), data["status"])
		assert.NotContains(t, data, "email")

		res, err = test.PerformRequest(t, "GET", "/v1/payment/missing", nil, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})

	t.Run("GetActiveMethods", func(t *testing.T) {
		env := setupControllerTest(t)

		res, err := test.PerformRequest(t, "GET", "/v1/payment/methods", nil, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.Code)

		response := decodeResponse(t, res.Body.Bytes())
		data, ok := response.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(1), data["total"])
		items, ok := data["items"].([]interface{})
		require.True(t, ok)
		require.Len(t, items, 1)
		assert.Equal(t, "card_rub", items[0].(map[string]interface{})["providerMethod"])
	})
}

func TestPromoEndpoints(t *testing.T) {
	env := setupControllerTest(t)
	_, err := test.CreateTestPromoCode(env.db, map[string]interface{}{"code": "steam5", "bonusPercent": decimal.NewFromInt(5)})
	require.NoError(t, err)

	t.Run("GetActivePromo before activation", func(t *testing.T) {
		res, err := test.PerformRequest(t, "GET", "/v1/promocode/active?email=payer@test.com", nil, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})

	t.Run("ActivatePromoCode", func(t *testing.T) {
		payload := types.ActivatePromoCodePayload{Email: "Payer@Test.com"}
		res, err := test.PerformRequest(t, "POST", "/v1/promocode/STEAM5/activate", payload, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, res.Code)

		response := decodeResponse(t, res.Body.Bytes())
		assert.Equal(t, "Promocode activated successfully", response.Message)
	})

	t.Run("ActivatePromoCode twice", func(t *testing.T) {
		payload := types.ActivatePromoCodePayload{Email: "payer@test.com"}
		res, err := test.PerformRequest(t, "POST", "/v1/promocode/steam5/activate", payload, nil, env.router)
		assert.NoError(t, err)

		response := decodeResponse(t, res.Body.Bytes())
		data, ok := response.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, string(types.ErrCodePromoAlreadyUsed), data["code"])
	})

	t.Run("ActivatePromoCode unknown code", func(t *testing.T) {
		payload := types.ActivatePromoCodePayload{Email: "other@test.com"}
		res, err := test.PerformRequest(t, "POST", "/v1/promocode/nope/activate", payload, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})

	t.Run("GetActivePromo after activation", func(t *testing.T) {
		res, err := test.PerformRequest(t, "GET", "/v1/promocode/active?email=PAYER@test.com", nil, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.Code)

		response := decodeResponse(t, res.Body.Bytes())
		data, ok := response.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "steam5", data["code"])
	})

	t.Run("GetActivePromo without email", func(t *testing.T) {
		res, err := test.PerformRequest(t, "GET", "/v1/promocode/active", nil, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})
}

func TestHandleWebhook(t *testing.T) {
	decodeResult := func(t *testing.T, body []byte) types.WebhookResult {
		var result types.WebhookResult
		require.NoError(t, json.Unmarshal(body, &result))
		return result
	}

	t.Run("JSON webhook settles the deposit", func(t *testing.T) {
		env := setupControllerTest(t)
		payment, err := test.CreateTestPayment(env.db, map[string]interface{}{"b2bTransactionId": "b2b-1"})
		require.NoError(t, err)

		payload := types.WebhookPayload{"InvId": payment.ID, "OutSum": "1029.00", "Status": "SUCCESS"}
		event := &types.DepositEvent{PaymentID: payment.ID, Amount: decimal.NewFromInt(1029), Currency: "RUB", ProviderStatus: "SUCCESS"}
		env.adapter.On("Validate", mock.Anything, payload).Return(payload, nil).Once()
		env.adapter.On("ExtractDeposit", mock.Anything, payload).Return(event, nil).Once()
		env.adapter.On("MapStatus", "SUCCESS").Return(types.PaymentStatusSuccess).Once()

		res, err := test.PerformRequest(t, "POST", "/v1/cardlink/pay", payload, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.Code)

		result := decodeResult(t, res.Body.Bytes())
		assert.True(t, result.Success)
		assert.Equal(t, payment.ID, result.PaymentID)
		assert.Equal(t, types.PaymentStatusSuccess, result.Status)

		stored, err := env.payments.GetByID(context.Background(), nil, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, types.PaymentStatusSuccess, stored.Status)
		assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(1029)), stored.PaidAmount.String())
	})

	t.Run("form webhook through the header fallback", func(t *testing.T) {
		env := setupControllerTest(t)

		payload := types.WebhookPayload{"InvId": "pay-1", "OutSum": "500.00", "Status": "FAIL"}
		event := &types.DepositEvent{PaymentID: "pay-1", Amount: decimal.NewFromInt(500), Currency: "RUB", ProviderStatus: "FAIL"}
		env.adapter.On("Validate", mock.Anything, payload).Return(payload, nil).Once()
		env.adapter.On("ExtractDeposit", mock.Anything, payload).Return(event, nil).Once()
		env.adapter.On("MapStatus", "FAIL").Return(types.PaymentStatusFailed).Once()

		res := test.PerformFormRequest(t, "POST", "/v1/webhook", "InvId=pay-1&OutSum=500.00&Status=FAIL", env.router)
		assert.Equal(t, http.StatusBadRequest, res.Code, "provider header missing")

		req := newRawRequest("/v1/webhook", "InvId=pay-1&OutSum=500.00&Status=FAIL", gin.MIMEPOSTForm)
		req.Header.Set("X-Webhook-Provider", "cardlink")
		recorder := serve(env.router, req)
		assert.Equal(t, http.StatusOK, recorder.Code)

		result := decodeResult(t, recorder.Body.Bytes())
		assert.True(t, result.Success)
		assert.Equal(t, types.PaymentStatusFailed, result.Status)
		env.adapter.AssertExpectations(t)
	})

	t.Run("invalid signature is unauthorized", func(t *testing.T) {
		env := setupControllerTest(t)

		payload := types.WebhookPayload{"InvId": "pay-1", "SignatureValue": "forged"}
		env.adapter.On("Validate", mock.Anything, payload).Return(nil, types.ErrSignatureInvalid(types.ProviderCardlink)).Once()

		res, err := test.PerformRequest(t, "POST", "/v1/cardlink/pay", payload, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.Code)

		result := decodeResult(t, res.Body.Bytes())
		assert.False(t, result.Success)
		assert.Equal(t, "pay-1", result.PaymentID)
		assert.Equal(t, types.PaymentStatusFailed, result.Status)
		assert.Equal(t, "Invalid webhook signature", result.Message)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		env := setupControllerTest(t)

		res, err := test.PerformRequest(t, "POST", "/v1/paypal/pay", types.WebhookPayload{"id": "1"}, nil, env.router)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.False(t, decodeResult(t, res.Body.Bytes()).Success)
	})

	t.Run("malformed body", func(t *testing.T) {
		env := setupControllerTest(t)

		recorder := serve(env.router, newRawRequest("/v1/cardlink/pay", "{not json", "application/json"))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)

		result := decodeResult(t, recorder.Body.Bytes())
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "invalid JSON body")
		env.adapter.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
	})
}
