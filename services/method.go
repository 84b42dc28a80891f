package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
)

var hundred = decimal.NewFromInt(100)

// MethodService manages the payment method fee schedules
type MethodService struct {
	methods *storage.MethodRepository
}

// NewMethodService creates a new instance of MethodService
func NewMethodService(methods *storage.MethodRepository) *MethodService {
	return &MethodService{methods: methods}
}

func validateCommission(field string, value decimal.Decimal) error {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return types.ErrValidation(map[string]interface{}{
			field: fmt.Sprintf("must be between 0 and 100, got %s", value.String()),
		})
	}
	return nil
}

// CreateMethod registers a new payment method
func (s *MethodService) CreateMethod(ctx context.Context, payload types.CreateMethodPayload) (*types.PaymentMethod, error) {
	if !payload.Provider.IsValid() {
		return nil, types.ErrProviderUnsupported(string(payload.Provider))
	}
	if payload.Min < 1 || payload.Max < payload.Min {
		return nil, types.ErrValidation(map[string]interface{}{
			"max": fmt.Sprintf("min %d and max %d must satisfy 1 <= min <= max", payload.Min, payload.Max),
		})
	}
	if err := validateCommission("relativeCommission", payload.RelativeCommission); err != nil {
		return nil, err
	}
	if err := validateCommission("relativeProviderCommission", payload.RelativeProviderCommission); err != nil {
		return nil, err
	}

	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}

	method := &types.PaymentMethod{
		ID:                         uuid.New().String(),
		ProviderMethod:             strings.TrimSpace(payload.ProviderMethod),
		Provider:                   payload.Provider,
		FromCurrencyCode:           strings.ToUpper(strings.TrimSpace(payload.FromCurrencyCode)),
		ToCurrencyCode:             strings.ToUpper(strings.TrimSpace(payload.ToCurrencyCode)),
		Min:                        payload.Min,
		Max:                        payload.Max,
		RelativeCommission:         payload.RelativeCommission,
		RelativeProviderCommission: payload.RelativeProviderCommission,
		IsActive:                   isActive,
	}

	if err := s.methods.Create(ctx, method); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, types.ErrValidation(map[string]interface{}{
				"providerMethod": fmt.Sprintf("method %s already exists", method.ProviderMethod),
			})
		}
		return nil, types.ErrInternal(fmt.Errorf("CreateMethod: %w", err))
	}

	return method, nil
}

// UpdateMethod changes the commissions and optionally the active flag
func (s *MethodService) UpdateMethod(ctx context.Context, id string, payload types.UpdateMethodPayload) (*types.PaymentMethod, error) {
	if err := validateCommission("relativeCommission", payload.RelativeCommission); err != nil {
		return nil, err
	}
	if err := validateCommission("relativeProviderCommission", payload.RelativeProviderCommission); err != nil {
		return nil, err
	}

	method, err := s.methods.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrNotFound("Pay Method")
		}
		return nil, types.ErrInternal(err)
	}

	method.RelativeCommission = payload.RelativeCommission
	method.RelativeProviderCommission = payload.RelativeProviderCommission
	if payload.IsActive != nil {
		method.IsActive = *payload.IsActive
	}

	if err := s.methods.Update(ctx, method); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrNotFound("Pay Method")
		}
		return nil, types.ErrInternal(fmt.Errorf("UpdateMethod: %w", err))
	}

	return method, nil
}

// ListMethods returns a filtered page of payment methods
func (s *MethodService) ListMethods(ctx context.Context, filter types.MethodFilter, page types.Pagination) (*types.PaginatedResponse, error) {
	methods, total, err := s.methods.List(ctx, filter, page)
	if err != nil {
		return nil, types.ErrInternal(err)
	}

	response := types.NewPaginatedResponse(methods, total, page)
	return &response, nil
}
