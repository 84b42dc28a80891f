package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/logger"
)

var promoCodePattern = regexp.MustCompile(`^[a-z0-9_-]{3,50}$`)

// PromoService is the promo bonus ledger
type PromoService struct {
	promos *storage.PromoRepository
	conf   *config.PaymentConfiguration
}

// NewPromoService creates a new instance of PromoService
func NewPromoService(promos *storage.PromoRepository, conf *config.PaymentConfiguration) *PromoService {
	return &PromoService{promos: promos, conf: conf}
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func (s *PromoService) validate(payload types.CreatePromoCodePayload) (string, decimal.Decimal, error) {
	code := normalizeCode(payload.Code)
	if !promoCodePattern.MatchString(code) {
		return "", decimal.Zero, types.ErrValidation(map[string]interface{}{
			"code": "must be 3-50 characters of a-z, 0-9, _ or -",
		})
	}

	bonus := payload.BonusPercent
	if bonus.IsZero() {
		bonus = s.conf.PromoDefaultBonusPercent
	}
	if err := validateCommission("bonusPercent", bonus); err != nil {
		return "", decimal.Zero, err
	}
	return code, bonus, nil
}

// CreatePromoCode creates a promo code
func (s *PromoService) CreatePromoCode(ctx context.Context, payload types.CreatePromoCodePayload) (*types.PromoCode, error) {
	code, bonus, err := s.validate(payload)
	if err != nil {
		return nil, err
	}

	promo := &types.PromoCode{ID: uuid.New().String(), Code: code, BonusPercent: bonus}
	if err := s.promos.CreateCode(ctx, promo); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, types.ErrPromoExists(code)
		}
		return nil, types.ErrInternal(fmt.Errorf("CreatePromoCode: %w", err))
	}
	return promo, nil
}

// UpdatePromoCode changes the text and bonus of a promo code
func (s *PromoService) UpdatePromoCode(ctx context.Context, id string, payload types.CreatePromoCodePayload) (*types.PromoCode, error) {
	code, bonus, err := s.validate(payload)
	if err != nil {
		return nil, err
	}

	promo, err := s.promos.GetCodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrPromoNotFound(id)
		}
		return nil, types.ErrInternal(err)
	}

	promo.Code = code
	promo.BonusPercent = bonus
	if err := s.promos.UpdateCode(ctx, promo); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return nil, types.ErrPromoExists(code)
		case errors.Is(err, storage.ErrNotFound):
			return nil, types.ErrPromoNotFound(id)
		}
		return nil, types.ErrInternal(fmt.Errorf("UpdatePromoCode: %w", err))
	}
	return promo, nil
}

// ListPromoCodes returns a page of promo codes
func (s *PromoService) ListPromoCodes(ctx context.Context, page types.Pagination) (*types.PaginatedResponse, error) {
	codes, total, err := s.promos.ListCodes(ctx, page)
	if err != nil {
		return nil, types.ErrInternal(err)
	}

	response := types.NewPaginatedResponse(codes, total, page)
	return &response, nil
}

// GetPromoCode looks a promo code up by its text
func (s *PromoService) GetPromoCode(ctx context.Context, code string) (*types.PromoCode, error) {
	code = normalizeCode(code)
	promo, err := s.promos.GetCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrPromoNotFound(code)
		}
		return nil, types.ErrInternal(err)
	}
	return promo, nil
}

// ActivatePromoCode binds a promo code to email until the next successful
// deposit. An email holds at most one active activation.
func (s *PromoService) ActivatePromoCode(ctx context.Context, code, email string) (*types.PromoActivation, error) {
	promo, err := s.GetPromoCode(ctx, code)
	if err != nil {
		return nil, err
	}
	email = utils.NormalizeEmail(email)

	if _, _, err := s.promos.GetActiveActivation(ctx, nil, email); err == nil {
		return nil, types.ErrPromoAlreadyUsed(promo.Code)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrInternal(err)
	}

	activation := &types.PromoActivation{
		ID:          uuid.New().String(),
		PromoCodeID: promo.ID,
		Email:       email,
		Status:      types.PromoActivationActive,
		ActivatedAt: time.Now().UTC(),
	}
	if err := s.promos.CreateActivation(ctx, activation); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, types.ErrPromoAlreadyUsed(promo.Code)
		}
		return nil, types.ErrInternal(fmt.Errorf("ActivatePromoCode: %w", err))
	}
	return activation, nil
}

// GetActivePromo returns the promo code behind the email's active activation
func (s *PromoService) GetActivePromo(ctx context.Context, email string) (*types.PromoCode, error) {
	_, promo, err := s.promos.GetActiveActivation(ctx, nil, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrNotFound("Promocode")
		}
		return nil, types.ErrInternal(err)
	}
	return promo, nil
}

// ApplyBonus computes the bonus on amount for the email's active promo and
// consumes the activation within tx. A zero bonus with a nil error means the
// email has no active promo.
func (s *PromoService) ApplyBonus(ctx context.Context, tx *sql.Tx, email string, amount decimal.Decimal) (decimal.Decimal, error) {
	activation, promo, err := s.promos.GetActiveActivation(ctx, tx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	applied, err := s.promos.MarkApplied(ctx, tx, activation.ID, time.Now())
	if err != nil {
		return decimal.Zero, err
	}
	if !applied {
		return decimal.Zero, nil
	}

	return utils.Percent(amount, promo.BonusPercent).Round(2), nil
}

// SeedPromoCodes creates the configured seed codes that do not exist yet
func (s *PromoService) SeedPromoCodes(ctx context.Context) error {
	for _, code := range s.conf.PromoSeedCodes {
		created, err := s.promos.EnsureCode(ctx, &types.PromoCode{
			ID:           uuid.New().String(),
			Code:         normalizeCode(code),
			BonusPercent: s.conf.PromoDefaultBonusPercent,
		})
		if err != nil {
			return fmt.Errorf("SeedPromoCodes: %w", err)
		}
		if created {
			logger.Infof("Seeded promo code %s", code)
		}
	}
	return nil
}

// ExpireActivations expires active activations older than the retention window
func (s *PromoService) ExpireActivations(ctx context.Context) (int64, error) {
	expired, err := s.promos.ExpireActivations(ctx, time.Now().Add(-s.conf.PromoRetention))
	if err != nil {
		return 0, fmt.Errorf("ExpireActivations: %w", err)
	}
	if expired > 0 {
		logger.WithFields(logger.Fields{
			"Expired": expired,
		}).Infof("Expired promo activations")
	}
	return expired, nil
}
