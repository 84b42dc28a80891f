package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	svc "github.com/steamtrust/backend/services"
	"github.com/steamtrust/backend/services/b2b"
	"github.com/steamtrust/backend/types"
	u "github.com/steamtrust/backend/utils"
)

// B2BInfo is the informational surface of the wallet custodian
type B2BInfo interface {
	GetBalance(ctx context.Context) (map[string]interface{}, error)
	GetTransactions(ctx context.Context, query b2b.TransactionQuery) (map[string]interface{}, error)
	GetCurrencies(ctx context.Context) (map[string]interface{}, error)
	ConvertCurrency(ctx context.Context, from, to string, amount decimal.Decimal) (map[string]interface{}, error)
	GetPaymentStatus(ctx context.Context, code string) (*types.B2BPaymentResponse, error)
}

// Controller serves the JWT-protected back-office endpoints
type Controller struct {
	payments *svc.PaymentService
	methods  *svc.MethodService
	promos   *svc.PromoService
	b2b      B2BInfo
}

// NewController creates a new instance of the admin Controller
func NewController(payments *svc.PaymentService, methods *svc.MethodService, promos *svc.PromoService, b2b B2BInfo) *Controller {
	return &Controller{
		payments: payments,
		methods:  methods,
		promos:   promos,
		b2b:      b2b,
	}
}

// ListPayments controller lists payments filtered by status, email and account
func (ctrl *Controller) ListPayments(ctx *gin.Context) {
	filter := types.PaymentFilter{
		Email:   ctx.Query("email"),
		Account: strings.TrimSpace(ctx.Query("account")),
	}
	if status := ctx.Query("status"); status != "" {
		if !types.PaymentStatus(status).IsValid() {
			u.ErrorResponse(ctx, types.ErrValidation(map[string]interface{}{"field": "status", "value": status}))
			return
		}
		filter.Status = types.PaymentStatus(status)
	}

	payments, err := ctrl.payments.ListPayments(ctx, filter, u.Paginate(ctx))
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", payments)
}

// ListMethods controller lists payment methods, active or not
func (ctrl *Controller) ListMethods(ctx *gin.Context) {
	filter := types.MethodFilter{
		Provider: types.PaymentProvider(strings.ToLower(ctx.Query("provider"))),
	}
	if raw := ctx.Query("isActive"); raw != "" {
		isActive, err := strconv.ParseBool(raw)
		if err != nil {
			u.ErrorResponse(ctx, types.ErrValidation(map[string]interface{}{"field": "isActive", "value": raw}))
			return
		}
		filter.IsActive = &isActive
	}

	methods, err := ctrl.methods.ListMethods(ctx, filter, u.Paginate(ctx))
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", methods)
}

// CreateMethod controller registers a payment method
func (ctrl *Controller) CreateMethod(ctx *gin.Context) {
	var payload types.CreateMethodPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.BindingErrorResponse(ctx, err)
		return
	}

	method, err := ctrl.methods.CreateMethod(ctx, payload)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusCreated, "success", "Payment method created successfully", method)
}

// UpdateMethod controller changes the commissions or activity of a payment method
func (ctrl *Controller) UpdateMethod(ctx *gin.Context) {
	var payload types.UpdateMethodPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.BindingErrorResponse(ctx, err)
		return
	}

	method, err := ctrl.methods.UpdateMethod(ctx, ctx.Param("id"), payload)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "Payment method updated successfully", method)
}

// CreatePromoCode controller creates a promo code
func (ctrl *Controller) CreatePromoCode(ctx *gin.Context) {
	var payload types.CreatePromoCodePayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.BindingErrorResponse(ctx, err)
		return
	}

	promo, err := ctrl.promos.CreatePromoCode(ctx, payload)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusCreated, "success", "Promocode created successfully", promo)
}

// UpdatePromoCode controller renames a promo code or changes its bonus
func (ctrl *Controller) UpdatePromoCode(ctx *gin.Context) {
	var payload types.CreatePromoCodePayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.BindingErrorResponse(ctx, err)
		return
	}

	promo, err := ctrl.promos.UpdatePromoCode(ctx, ctx.Param("id"), payload)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "Promocode updated successfully", promo)
}

// ListPromoCodes controller lists promo codes
func (ctrl *Controller) ListPromoCodes(ctx *gin.Context) {
	promos, err := ctrl.promos.ListPromoCodes(ctx, u.Paginate(ctx))
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", promos)
}

// GetPromoCode controller fetches a promo code by its code
func (ctrl *Controller) GetPromoCode(ctx *gin.Context) {
	promo, err := ctrl.promos.GetPromoCode(ctx, ctx.Param("code"))
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", promo)
}

// GetB2BBalance controller fetches the custodian wallet balance
func (ctrl *Controller) GetB2BBalance(ctx *gin.Context) {
	balance, err := ctrl.b2b.GetBalance(ctx)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", balance)
}

// GetB2BTransactions controller lists custodian transactions
func (ctrl *Controller) GetB2BTransactions(ctx *gin.Context) {
	query := b2b.TransactionQuery{
		SortBy:    ctx.Query("sort_by"),
		SortOrder: ctx.Query("sort_order"),
	}
	for name, target := range map[string]**int{"limit": &query.Limit, "offset": &query.Offset} {
		raw := ctx.Query(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			u.ErrorResponse(ctx, types.ErrValidation(map[string]interface{}{"field": name, "value": raw}))
			return
		}
		*target = &value
	}

	transactions, err := ctrl.b2b.GetTransactions(ctx, query)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", transactions)
}

// GetB2BCurrencies controller lists the custodian's currencies
func (ctrl *Controller) GetB2BCurrencies(ctx *gin.Context) {
	currencies, err := ctrl.b2b.GetCurrencies(ctx)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", currencies)
}

// ConvertB2BCurrency controller converts an amount with the custodian's rates
func (ctrl *Controller) ConvertB2BCurrency(ctx *gin.Context) {
	amount, err := decimal.NewFromString(ctx.Param("amount"))
	if err != nil || !amount.IsPositive() {
		u.ErrorResponse(ctx, types.ErrInvalidAmount(ctx.Param("amount")))
		return
	}

	conversion, err := ctrl.b2b.ConvertCurrency(ctx, strings.ToUpper(ctx.Param("from")), strings.ToUpper(ctx.Param("to")), amount)
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", conversion)
}

// GetB2BPayment controller fetches the custodian's view of a payment
func (ctrl *Controller) GetB2BPayment(ctx *gin.Context) {
	payment, err := ctrl.b2b.GetPaymentStatus(ctx, ctx.Param("code"))
	if err != nil {
		u.ErrorResponse(ctx, err)
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "OK", payment.RawData())
}
