package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/utils/logger"
)

// PromoMaintenance is the promo ledger housekeeping run by the scheduler
type PromoMaintenance interface {
	SeedPromoCodes(ctx context.Context) error
	ExpireActivations(ctx context.Context) (int64, error)
}

// ExpirePromoActivations runs the daily promo activation sweep
func ExpirePromoActivations(ctx context.Context, promos PromoMaintenance) error {
	expired, err := promos.ExpireActivations(ctx)
	if err != nil {
		return fmt.Errorf("ExpirePromoActivations: %w", err)
	}
	if expired > 0 {
		logger.WithFields(logger.Fields{
			"Expired": expired,
		}).Infof("Expired stale promo activations")
	}
	return nil
}

// StartCronJobs starts the reconciliation loops and the promo sweep. The
// scheduler stops when ctx is cancelled.
func StartCronJobs(ctx context.Context, reconciler *Reconciler, promos PromoMaintenance, conf *config.PaymentConfiguration) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)

	// A tick never overlaps the previous run of the same job
	scheduler.SingletonModeAll()

	if err := promos.SeedPromoCodes(ctx); err != nil {
		logger.Errorf("StartCronJobs for SeedPromoCodes: %v", err)
	}

	// Execute credited payments against B2B
	_, err := scheduler.Every(conf.ExecuteInterval).Do(func() {
		if err := reconciler.ExecutePayments(ctx); err != nil {
			logger.Errorf("StartCronJobs for ExecutePayments: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule ExecutePayments: %w", err)
	}

	// Poll B2B transactions still in external processing
	_, err = scheduler.Every(conf.StatusPollInterval).Do(func() {
		if err := reconciler.PollPaymentStatuses(ctx); err != nil {
			logger.Errorf("StartCronJobs for PollPaymentStatuses: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule PollPaymentStatuses: %w", err)
	}

	// Expire stale promo activations every day at midnight UTC
	_, err = scheduler.Every(1).Day().At("00:00").Do(func() {
		if err := ExpirePromoActivations(ctx, promos); err != nil {
			logger.Errorf("StartCronJobs for ExpirePromoActivations: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule ExpirePromoActivations: %w", err)
	}

	scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		scheduler.Stop()
		logger.Infof("Cron jobs stopped")
	}()

	return scheduler, nil
}
