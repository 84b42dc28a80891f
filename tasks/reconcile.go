package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/services/b2b"
	"github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/logger"
)

const (
	reconcileBatchSize = 500
	defaultLockTTL     = 5 * time.Minute

	executeLockKey = "reconcile:execute"
	pollLockKey    = "reconcile:poll"
)

// releaseLockScript deletes the lock only while it still holds our token
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// extendLockScript pushes the expiry out only while we still own the lock
var extendLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// Reconciler drives credited payments through B2B execution and polls
// in-flight B2B transactions until they settle
type Reconciler struct {
	payments *storage.PaymentRepository
	gateway  types.B2BGateway
	notifier types.Notifier
	receipts types.ReceiptSender
	locker   *redis.Client
	lockTTL  time.Duration
	conf     *config.PaymentConfiguration
}

// NewReconciler creates a new Reconciler. receipts and locker may be nil.
func NewReconciler(
	payments *storage.PaymentRepository,
	gateway types.B2BGateway,
	notifier types.Notifier,
	receipts types.ReceiptSender,
	locker *redis.Client,
	conf *config.PaymentConfiguration,
) *Reconciler {
	lockTTL := conf.ReconcileLockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	for _, interval := range []time.Duration{conf.ExecuteInterval, conf.StatusPollInterval} {
		if interval > lockTTL {
			lockTTL = interval
		}
	}

	return &Reconciler{
		payments: payments,
		gateway:  gateway,
		notifier: notifier,
		receipts: receipts,
		locker:   locker,
		lockTTL:  lockTTL,
		conf:     conf,
	}
}

// b2bCall is one gateway round trip for a candidate payment
type b2bCall func(ctx context.Context, code string) (*types.B2BPaymentResponse, error)

// reconcileJob describes one of the two reconciliation loops
type reconcileJob struct {
	lockKey     string
	from        types.PaymentStatus
	responseKey string
	call        b2bCall

	// rejectUnsuccessful treats success=false as a gateway rejection
	rejectUnsuccessful bool
}

// ExecutePayments sends every credited payment to the B2B gateway for payout
func (r *Reconciler) ExecutePayments(ctx context.Context) error {
	return r.run(ctx, reconcileJob{
		lockKey:            executeLockKey,
		from:               types.PaymentStatusSuccess,
		responseKey:        "b2bCronResponse",
		call:               r.gateway.PaymentExecute,
		rejectUnsuccessful: true,
	})
}

// PollPaymentStatuses re-reads the B2B status of every payment still in external processing
func (r *Reconciler) PollPaymentStatuses(ctx context.Context) error {
	return r.run(ctx, reconcileJob{
		lockKey:     pollLockKey,
		from:        types.PaymentStatusExternalProcess,
		responseKey: "checkPaymentStatusResponse",
		call:        r.gateway.GetPaymentStatus,
	})
}

func (r *Reconciler) run(ctx context.Context, job reconcileJob) error {
	release, acquired, err := r.acquireLock(ctx, job.lockKey)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}
	defer release()

	candidates, err := r.payments.ListByStatus(ctx, job.from, reconcileBatchSize)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", job.from, err)
	}
	if len(candidates) == 0 {
		return nil
	}

	concurrency := r.conf.ReconcileConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for _, payment := range candidates {
		wg.Add(1)
		go func(payment *types.Payment) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			r.reconcile(ctx, payment, job)
		}(payment)
	}
	wg.Wait()

	return nil
}

// reconcile settles one candidate. Every failure is recorded on the
// payment itself and never escapes to the rest of the batch.
func (r *Reconciler) reconcile(ctx context.Context, payment *types.Payment, job reconcileJob) {
	from := job.from
	if payment.Metadata == nil {
		payment.Metadata = types.Metadata{}
	}

	if payment.B2BTransactionID == "" {
		payment.Metadata["b2bCronError"] = "missing b2b transaction id"
		r.transition(ctx, payment, from, types.PaymentStatusExternalError)
		return
	}

	response, err := job.call(ctx, payment.B2BTransactionID)
	if err != nil {
		logger.WithFields(logger.Fields{
			"Error":            fmt.Sprintf("%v", err),
			"PaymentID":        payment.ID,
			"B2BTransactionID": payment.B2BTransactionID,
		}).Errorf("B2B reconciliation call failed")
		payment.Metadata["b2bCronError"] = err.Error()
		r.transition(ctx, payment, from, types.PaymentStatusExternalError)
		return
	}

	payment.Metadata[job.responseKey] = response.RawData()

	if job.rejectUnsuccessful && !response.Success {
		logger.WithFields(logger.Fields{
			"PaymentID":        payment.ID,
			"B2BTransactionID": payment.B2BTransactionID,
			"Message":          response.Message,
		}).Warnf("B2B rejected payment execution")
		r.transition(ctx, payment, from, types.PaymentStatusExternalError)
		return
	}

	code := response.StatusCode()
	if code == "" {
		payment.Metadata["b2bCronError"] = "missing B2B status code"
		r.transition(ctx, payment, from, types.PaymentStatusExternalError)
		return
	}

	status, ok := b2b.MapStatus(code)
	if !ok {
		message := fmt.Sprintf("Unknown B2B status code: %s for payment ID %s", code, payment.ID)
		logger.WithFields(logger.Fields{
			"PaymentID":  payment.ID,
			"StatusCode": code,
		}).Warnf("Unknown B2B status code")
		payment.Metadata["updatePaymentStatus"] = message
		r.notifier.SystemAlert(ctx, types.SystemAlert{
			Type:    types.AlertWarning,
			Title:   "Unknown B2B status",
			Message: message,
			Metadata: map[string]interface{}{
				"paymentId":  payment.ID,
				"statusCode": code,
			},
			Timestamp: time.Now(),
		})
		r.transition(ctx, payment, from, types.PaymentStatusExternalError)
		return
	}

	if r.transition(ctx, payment, from, status) && status == types.PaymentStatusCompleted {
		r.sendReceipt(ctx, payment)
	}
}

// transition persists the candidate's new status and metadata. A lost
// race is logged and reported as not applied.
func (r *Reconciler) transition(ctx context.Context, payment *types.Payment, from, to types.PaymentStatus) bool {
	applied, err := r.payments.Transition(ctx, nil, payment.ID, from, to, payment.Metadata)
	if err != nil {
		logger.WithFields(logger.Fields{
			"Error":     fmt.Sprintf("%v", err),
			"PaymentID": payment.ID,
			"Status":    to,
		}).Errorf("Failed to update payment status")
		return false
	}
	if !applied {
		logger.WithFields(logger.Fields{
			"PaymentID": payment.ID,
			"Expected":  from,
		}).Infof("Payment moved by another writer, skipping")
		return false
	}

	payment.Status = to
	if from != to {
		logger.WithFields(logger.Fields{
			"PaymentID": payment.ID,
			"From":      from,
			"To":        to,
		}).Infof("Payment status updated")
	}
	return true
}

func (r *Reconciler) sendReceipt(ctx context.Context, payment *types.Payment) {
	if r.receipts == nil {
		return
	}
	if _, err := r.receipts.SendPaymentReceipt(ctx, payment); err != nil {
		logger.WithFields(logger.Fields{
			"Error":     fmt.Sprintf("%v", err),
			"PaymentID": payment.ID,
		}).Warnf("Failed to send payment receipt")
	}
}

// acquireLock takes a token-owned redis lock so that only one instance runs
// a tick. The lock is extended while the tick runs and only its owner can
// release it. Without redis every tick runs.
func (r *Reconciler) acquireLock(ctx context.Context, key string) (release func(), acquired bool, err error) {
	if r.locker == nil {
		return func() {}, true, nil
	}

	token := uuid.NewString()
	acquired, err = r.locker.SetNX(ctx, key, token, r.lockTTL).Result()
	if err != nil {
		logger.WithFields(logger.Fields{
			"Error": fmt.Sprintf("%v", err),
			"Key":   key,
		}).Errorf("Failed to acquire reconciliation lock")
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}

	done := make(chan struct{})
	var stopped sync.WaitGroup
	stopped.Add(1)
	go func() {
		defer stopped.Done()
		r.keepLock(ctx, key, token, done)
	}()

	release = func() {
		close(done)
		stopped.Wait()
		if err := releaseLockScript.Run(context.WithoutCancel(ctx), r.locker, []string{key}, token).Err(); err != nil {
			logger.WithFields(logger.Fields{
				"Error": fmt.Sprintf("%v", err),
				"Key":   key,
			}).Warnf("Failed to release reconciliation lock")
		}
	}
	return release, true, nil
}

// keepLock refreshes the lock expiry every third of its TTL until done is closed
func (r *Reconciler) keepLock(ctx context.Context, key, token string, done <-chan struct{}) {
	ticker := time.NewTicker(r.lockTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			owned, err := extendLockScript.Run(context.WithoutCancel(ctx), r.locker, []string{key}, token, r.lockTTL.Milliseconds()).Int()
			if err != nil {
				logger.WithFields(logger.Fields{
					"Error": fmt.Sprintf("%v", err),
					"Key":   key,
				}).Warnf("Failed to extend reconciliation lock")
				continue
			}
			if owned == 0 {
				logger.WithFields(logger.Fields{"Key": key}).Warnf("Reconciliation lock lost")
				return
			}
		}
	}
}
