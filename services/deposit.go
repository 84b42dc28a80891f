package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/logger"
)

// BonusLedger folds an email's active promo into a deposit
type BonusLedger interface {
	ApplyBonus(ctx context.Context, tx *sql.Tx, email string, amount decimal.Decimal) (decimal.Decimal, error)
}

// DepositService applies confirmed provider deposits to pending payments
type DepositService struct {
	db       *sql.DB
	payments *storage.PaymentRepository
	bonuses  BonusLedger
	notifier types.Notifier
}

// NewDepositService creates a new instance of DepositService
func NewDepositService(db *sql.DB, payments *storage.PaymentRepository, bonuses BonusLedger, notifier types.Notifier) *DepositService {
	return &DepositService{
		db:       db,
		payments: payments,
		bonuses:  bonuses,
		notifier: notifier,
	}
}

// ProcessDeposit moves a pending payment to status and, when the deposit
// succeeded, credits it: paidAmount, finalAmount = paid - commission + bonus.
// A payment that is no longer pending yields a NOT_FOUND error and is left
// untouched, so redelivered webhooks never credit twice. A pending status is
// acknowledged without any write.
func (s *DepositService) ProcessDeposit(ctx context.Context, event *types.DepositEvent, status types.PaymentStatus) (*types.Payment, error) {
	if status == types.PaymentStatusPending {
		return nil, nil
	}

	var payment *types.Payment
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		payment, err = s.payments.GetByIDAndStatus(ctx, tx, event.PaymentID, types.PaymentStatusPending)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return types.ErrNotFound("Payment")
			}
			return fmt.Errorf("ProcessDeposit.GetByIDAndStatus: %w", err)
		}

		if payment.Metadata == nil {
			payment.Metadata = types.Metadata{}
		}
		payment.Metadata["depositEvent"] = map[string]interface{}{
			"amount":         event.Amount.String(),
			"currency":       event.Currency,
			"providerStatus": event.ProviderStatus,
		}
		payment.Status = status

		if status == types.PaymentStatusSuccess {
			bonus := decimal.Zero
			err := storage.WithSavepoint(ctx, tx, "promo_bonus", func() error {
				var err error
				bonus, err = s.bonuses.ApplyBonus(ctx, tx, payment.Email, event.Amount)
				return err
			})
			if err != nil {
				logger.WithFields(logger.Fields{
					"Error":     fmt.Sprintf("%v", err),
					"PaymentID": payment.ID,
					"Email":     payment.Email,
				}).Errorf("Promo bonus could not be applied")
				payment.Metadata["promoBonusError"] = err.Error()
				bonus = decimal.Zero
			}

			payment.Bonus = bonus
			payment.PaidAmount = event.Amount
			payment.FinalAmount = event.Amount.Sub(payment.Commission).Add(bonus)
			payment.Currency = event.Currency
		}

		ok, err := s.payments.ApplyDeposit(ctx, tx, payment, types.PaymentStatusPending)
		if err != nil {
			return fmt.Errorf("ProcessDeposit.ApplyDeposit: %w", err)
		}
		if !ok {
			return types.ErrNotFound("Payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"PaymentID":   payment.ID,
		"Status":      payment.Status,
		"PaidAmount":  payment.PaidAmount.String(),
		"FinalAmount": payment.FinalAmount.String(),
		"Bonus":       payment.Bonus.String(),
	}).Infof("Deposit processed")

	s.notifier.DepositProcessed(ctx, payment)
	return payment, nil
}
