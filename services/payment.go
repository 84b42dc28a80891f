package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/services/b2b"
	"github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/logger"
)

// ProviderLookup resolves the adapter for a provider tag
type ProviderLookup interface {
	Get(provider string) (types.ProviderAdapter, error)
}

// PaymentService owns payment creation and the public payment reads
type PaymentService struct {
	payments  *storage.PaymentRepository
	methods   *storage.MethodRepository
	providers ProviderLookup
	gateway   types.B2BGateway
	notifier  types.Notifier
	conf      *config.PaymentConfiguration
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(
	payments *storage.PaymentRepository,
	methods *storage.MethodRepository,
	providers ProviderLookup,
	gateway types.B2BGateway,
	notifier types.Notifier,
	conf *config.PaymentConfiguration,
) *PaymentService {
	return &PaymentService{
		payments:  payments,
		methods:   methods,
		providers: providers,
		gateway:   gateway,
		notifier:  notifier,
		conf:      conf,
	}
}

// CreatePayment checks limits, pre-verifies the account with the B2B
// gateway and opens a checkout with the method's provider. No payment row
// exists unless the gateway accepted the top-up.
func (s *PaymentService) CreatePayment(ctx context.Context, payload types.CreatePaymentPayload) (*types.CreatePaymentResponse, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
	if err != nil || !amount.IsPositive() {
		return nil, types.ErrInvalidAmount(payload.Amount)
	}
	email := utils.NormalizeEmail(payload.Email)
	account := strings.TrimSpace(payload.Account)

	method, err := s.GetActiveMethod(ctx, payload.MethodCode)
	if err != nil {
		return nil, err
	}

	if amount.LessThan(decimal.NewFromInt(method.Min)) {
		return nil, types.ErrAmountTooLow(amount, method.Min)
	}
	if amount.GreaterThan(decimal.NewFromInt(method.Max)) {
		return nil, types.ErrAmountTooHigh(amount, method.Max)
	}

	active, err := s.ActivePaymentsCount(ctx, email, method.Provider)
	if err != nil {
		return nil, types.ErrInternal(err)
	}
	if active >= s.conf.MaxActiveOrders {
		return nil, types.ErrTooManyActivePayments(active, s.conf.MaxActiveOrders)
	}

	total, err := s.CompletedInLast24h(ctx, email, account)
	if err != nil {
		return nil, types.ErrInternal(err)
	}
	if total.GreaterThanOrEqual(s.conf.DailyLimit) {
		return nil, types.ErrDailyLimitExceeded(total, s.conf.DailyLimit)
	}

	transactionID := uuid.New().String()
	verification, err := s.gateway.PaymentVerify(ctx, transactionID, account, amount, "")
	if err != nil {
		return nil, err
	}

	if code := verification.StatusCode(); code != b2b.StatusRequestAccepted {
		reason := b2b.ReasonFor(code)
		s.notifier.SystemAlert(ctx, types.SystemAlert{
			Type:    types.AlertWarning,
			Title:   "Payment creation rejected",
			Message: fmt.Sprintf("B2B does not allow topping up account %s", account),
			Metadata: map[string]interface{}{
				"email":   email,
				"account": account,
				"amount":  amount.String(),
				"status":  code,
				"reason":  reason,
			},
			Timestamp: time.Now(),
		})
		return nil, types.ErrB2BVerificationFailed(code, account, reason)
	}

	commission := method.CommissionFor(amount)
	payment := &types.Payment{
		ID:         uuid.New().String(),
		Provider:   method.Provider,
		Email:      email,
		Currency:   method.FromCurrencyCode,
		Amount:     amount.Add(commission),
		Commission: commission,
		Status:     types.PaymentStatusPending,
		Account:    verification.Data.SteamLogin,
		// The idempotency code accepted by pre-verification is the B2B transaction id
		B2BTransactionID: verification.Data.Code,
		Metadata: types.Metadata{
			"b2bResponseVerify": verification.RawData(),
		},
	}
	if payment.Account == "" {
		payment.Account = account
	}

	if err := s.payments.Create(ctx, nil, payment); err != nil {
		return nil, types.ErrInternal(fmt.Errorf("CreatePayment.Create: %w", err))
	}

	s.notifier.PaymentCreated(ctx, payment)

	details, err := s.dispatch(ctx, payment, method)
	if err != nil {
		return nil, err
	}

	payment.PaymentLink = details.PaymentLink
	payment.ProviderTransactionID = details.ProviderTransactionID
	attachedMetadata := make(types.Metadata, len(payment.Metadata)+len(details.Metadata))
	for key, value := range payment.Metadata {
		attachedMetadata[key] = value
	}
	for key, value := range details.Metadata {
		attachedMetadata[key] = value
	}
	baseMetadata := payment.Metadata
	payment.Metadata = attachedMetadata

	attached, err := s.payments.AttachProviderDetails(ctx, payment)
	if err != nil {
		payment.Metadata = baseMetadata
		payment.PaymentLink = ""
		s.failPending(ctx, payment, "providerAttachError", err)
		return nil, types.ErrInternal(fmt.Errorf("CreatePayment.AttachProviderDetails: %w", err))
	}
	if !attached {
		logger.WithFields(logger.Fields{
			"PaymentID": payment.ID,
		}).Warnf("Payment left pending before provider details were attached")
	}

	return &types.CreatePaymentResponse{
		PaymentID:   payment.ID,
		PaymentLink: payment.PaymentLink,
		Amount:      payment.Amount,
		Commission:  payment.Commission,
		Currency:    payment.Currency,
		Details:     details,
	}, nil
}

// dispatch opens the provider checkout. On failure the freshly created
// payment is failed so it cannot linger in pending without a link.
func (s *PaymentService) dispatch(ctx context.Context, payment *types.Payment, method *types.PaymentMethod) (*types.ProviderPayment, error) {
	adapter, err := s.providers.Get(string(method.Provider))
	if err == nil {
		var details *types.ProviderPayment
		details, err = adapter.CreatePayment(ctx, payment, method)
		if err == nil {
			return details, nil
		}
	}

	logger.WithFields(logger.Fields{
		"Error":     fmt.Sprintf("%v", err),
		"PaymentID": payment.ID,
		"Provider":  method.Provider,
	}).Errorf("Provider dispatch failed")

	s.failPending(ctx, payment, "providerDispatchError", err)

	if types.IsErrorCode(err, types.ErrCodePaymentRequest) {
		return nil, err
	}
	return nil, types.ErrPaymentRequest(err)
}

// failPending moves a payment that never got a usable checkout from
// pending to failed, recording cause under key, and alerts operators.
func (s *PaymentService) failPending(ctx context.Context, payment *types.Payment, key string, cause error) {
	payment.Metadata[key] = cause.Error()
	if _, err := s.payments.Transition(ctx, nil, payment.ID, types.PaymentStatusPending, types.PaymentStatusFailed, payment.Metadata); err != nil {
		logger.WithFields(logger.Fields{
			"Error":     fmt.Sprintf("%v", err),
			"PaymentID": payment.ID,
		}).Errorf("Failed to fail pending payment")
	} else {
		payment.Status = types.PaymentStatusFailed
	}

	s.notifier.SystemAlert(ctx, types.SystemAlert{
		Type:    types.AlertError,
		Title:   "Provider dispatch failed",
		Message: fmt.Sprintf("Payment %s could not be created with %s", payment.ID, payment.Provider),
		Metadata: map[string]interface{}{
			"paymentId": payment.ID,
			"provider":  string(payment.Provider),
			"error":     cause.Error(),
		},
		Timestamp: time.Now(),
	})
}

// GetActiveMethod returns the active method with the given provider method code
func (s *PaymentService) GetActiveMethod(ctx context.Context, code string) (*types.PaymentMethod, error) {
	method, err := s.methods.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrMethodNotFound(code)
		}
		return nil, types.ErrInternal(err)
	}
	if !method.IsActive {
		return nil, types.ErrMethodInactive(code)
	}
	return method, nil
}

// ActivePaymentsCount counts the email's pending payments with provider
func (s *PaymentService) ActivePaymentsCount(ctx context.Context, email string, provider types.PaymentProvider) (int, error) {
	return s.payments.CountByStatus(ctx, email, provider, types.PaymentStatusPending)
}

// CompletedInLast24h totals the completed top-ups of email to account over
// the trailing 24 hours
func (s *PaymentService) CompletedInLast24h(ctx context.Context, email, account string) (decimal.Decimal, error) {
	return s.payments.SumAmountSince(ctx, email, account, types.PaymentStatusCompleted, time.Now().Add(-24*time.Hour))
}

// GetPayment returns the public view of a payment
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*types.PaymentStatusResponse, error) {
	payment, err := s.payments.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrNotFound("Payment")
		}
		return nil, types.ErrInternal(err)
	}

	return &types.PaymentStatusResponse{
		ID:          payment.ID,
		Status:      payment.Status,
		PaymentLink: payment.PaymentLink,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
	}, nil
}

// ListPayments returns a filtered page of payments
func (s *PaymentService) ListPayments(ctx context.Context, filter types.PaymentFilter, page types.Pagination) (*types.PaginatedResponse, error) {
	if filter.Email != "" {
		filter.Email = utils.NormalizeEmail(filter.Email)
	}

	payments, total, err := s.payments.List(ctx, filter, page)
	if err != nil {
		return nil, types.ErrInternal(err)
	}

	response := types.NewPaginatedResponse(payments, total, page)
	return &response, nil
}
