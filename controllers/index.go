package controllers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	svc "github.com/steamtrust/backend/services"
	"github.com/steamtrust/backend/types"
	u "github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/logger"
)

const maxWebhookBody = 1 << 20

// Controller serves the public payment, promo and webhook endpoints
type Controller struct {
	db       *sql.DB
	payments *svc.PaymentService
	methods  *svc.MethodService
	promos   *svc.PromoService
	webhooks *svc.WebhookService
}

// NewController creates a new instance of Controller with injected services
func NewController(
	db *sql.DB,
	payments *svc.PaymentService,
	methods *svc.MethodService,
	promos *svc.PromoService,
	webhooks *svc.WebhookService,
) *Controller {
	return &Controller{
		db:       db,
		payments: payments,
		methods:  methods,
		promos:   promos,
		webhooks: webhooks,
	}
}

// Health controller checks the database connection
func (ctrl *Controller) Health(ctx *gin.Context) {
	if err := ctrl.db.PingContext(ctx); err != nil {
		logger.WithFields(logger.Fields{
			"Error": fmt.Sprintf("%v", err),
		}).Errorf("Health check failed")
		u.APIResponse(ctx, http.StatusServiceUnavailable, "error", "Database unavailable", nil)
		return
	}
	u.APIResponse(ctx, http.StatusOK, "success", "OK", nil)
}

// CreatePayment controller creates a top-up payment and returns its checkout link
func (ctrl *Controller) CreatePayment(ctx *gin.Context) {
	var payload types.CreatePaymentPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.BindingErrorResponse(ctx, err)
		return
	}

	response, err := ctrl.payments.CreatePayment(ctx, payload)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusCreated, "success", "Payment created successfully", response)
}

// GetPayment controller returns the public status of a payment
func (ctrl *Controller) GetPayment(ctx *gin.Context) {
	payment, err := ctrl.payments.GetPayment(ctx, ctx.Param("id"))
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "Payment fetched successfully", payment)
}

// GetActiveMethods controller lists the payment methods available to payers
func (ctrl *Controller) GetActiveMethods(ctx *gin.Context) {
	active := true
	methods, err := ctrl.methods.ListMethods(ctx, types.MethodFilter{
		Provider: types.PaymentProvider(strings.ToLower(ctx.Query("provider"))),
		IsActive: &active,
	}, u.Paginate(ctx))
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", methods)
}

// ActivatePromoCode controller binds a promo code to the payer email
func (ctrl *Controller) ActivatePromoCode(ctx *gin.Context) {
	var payload types.ActivatePromoCodePayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.BindingErrorResponse(ctx, err)
		return
	}

	activation, err := ctrl.promos.ActivatePromoCode(ctx, ctx.Param("code"), payload.Email)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusCreated, "success", "Promocode activated successfully", activation)
}

// GetActivePromo controller returns the promo code waiting for the email's next deposit
func (ctrl *Controller) GetActivePromo(ctx *gin.Context) {
	email := strings.TrimSpace(ctx.Query("email"))
	if email == "" {
		u.ErrorResponse(ctx, types.ErrValidation(map[string]interface{}{"field": "email"}))
		return
	}

	promo, err := ctrl.promos.GetActivePromo(ctx, email)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", promo)
}

// HandleWebhook controller accepts a provider deposit notification. The
// provider tag comes from the path, falling back to X-Webhook-Provider.
func (ctrl *Controller) HandleWebhook(ctx *gin.Context) {
	provider := strings.TrimSpace(ctx.Param("provider"))
	if provider == "" {
		provider = strings.TrimSpace(ctx.GetHeader("X-Webhook-Provider"))
	}

	payload, err := parseWebhookPayload(ctx)
	if err != nil {
		appErr := types.ErrWebhookDataInvalid(err.Error())
		ctx.JSON(http.StatusBadRequest, types.WebhookResult{
			Success: false,
			Status:  types.PaymentStatusFailed,
			Message: appErr.Message(u.Language(ctx)),
			Error:   err.Error(),
		})
		return
	}

	result, err := ctrl.webhooks.HandleWebhook(ctx.Request.Context(), provider, payload)
	if err != nil {
		status := http.StatusBadRequest
		if types.IsErrorCode(err, types.ErrCodeSignatureInvalid) {
			status = http.StatusUnauthorized
		} else if appErr, ok := types.AsAppError(err); ok && appErr.Status >= http.StatusInternalServerError {
			status = appErr.Status
		}
		if appErr, ok := types.AsAppError(err); ok {
			result.Message = appErr.Message(u.Language(ctx))
		}
		ctx.JSON(status, result)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// parseWebhookPayload decodes a JSON or form-encoded webhook body
func parseWebhookPayload(ctx *gin.Context) (types.WebhookPayload, error) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	contentType := ctx.ContentType()
	if contentType == gin.MIMEPOSTForm || contentType == gin.MIMEMultipartPOSTForm {
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))
		if contentType == gin.MIMEMultipartPOSTForm {
			if err := ctx.Request.ParseMultipartForm(maxWebhookBody); err != nil {
				return nil, fmt.Errorf("invalid form body: %w", err)
			}
		} else if err := ctx.Request.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}

		payload := types.WebhookPayload{}
		for key, values := range ctx.Request.PostForm {
			if len(values) > 0 {
				payload[key] = values[0]
			}
		}
		return payload, nil
	}

	payload := types.WebhookPayload{}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return payload, nil
}
