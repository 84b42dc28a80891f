package storage_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	db "github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRepository(t *testing.T) {
	ctx := context.Background()
	conn := test.NewTestDB(t)
	repo := db.NewPaymentRepository(conn, db.DialectSQLite)

	t.Run("create and fetch round trips decimals and metadata", func(t *testing.T) {
		payment, err := test.CreateTestPayment(conn, map[string]interface{}{
			"amount":   decimal.RequireFromString("1234.56"),
			"metadata": types.Metadata{"meta": "gift"},
		})
		require.NoError(t, err)

		fetched, err := repo.GetByID(ctx, nil, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, "1234.56", fetched.Amount.String())
		assert.Equal(t, types.PaymentStatusPending, fetched.Status)
		assert.Equal(t, "gift", fetched.Metadata["meta"])
		assert.Equal(t, time.UTC, fetched.CreatedAt.Location())
	})

	t.Run("missing payment is ErrNotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, nil, "missing")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("GetByIDAndStatus only matches the given status", func(t *testing.T) {
		payment, err := test.CreateTestPayment(conn, map[string]interface{}{"status": types.PaymentStatusSuccess})
		require.NoError(t, err)

		_, err = repo.GetByIDAndStatus(ctx, nil, payment.ID, types.PaymentStatusPending)
		assert.ErrorIs(t, err, db.ErrNotFound)

		fetched, err := repo.GetByIDAndStatus(ctx, nil, payment.ID, types.PaymentStatusSuccess)
		require.NoError(t, err)
		assert.Equal(t, payment.ID, fetched.ID)
	})

	t.Run("Transition is compare and swap", func(t *testing.T) {
		payment, err := test.CreateTestPayment(conn, map[string]interface{}{"status": types.PaymentStatusSuccess})
		require.NoError(t, err)

		ok, err := repo.Transition(ctx, nil, payment.ID, types.PaymentStatusSuccess, types.PaymentStatusExternalProcess, types.Metadata{"b2bCronResponse": "ok"})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Transition(ctx, nil, payment.ID, types.PaymentStatusSuccess, types.PaymentStatusExternalError, nil)
		require.NoError(t, err)
		assert.False(t, ok)

		fetched, err := repo.GetByID(ctx, nil, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, types.PaymentStatusExternalProcess, fetched.Status)
		assert.Equal(t, "ok", fetched.Metadata["b2bCronResponse"])
	})

	t.Run("concurrent transitions have exactly one winner", func(t *testing.T) {
		payment, err := test.CreateTestPayment(conn, map[string]interface{}{"status": types.PaymentStatusSuccess})
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.Transition(ctx, nil, payment.ID, types.PaymentStatusSuccess, types.PaymentStatusExternalProcess, nil)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})

	t.Run("AttachProviderDetails only writes once", func(t *testing.T) {
		payment, err := test.CreateTestPayment(conn, nil)
		require.NoError(t, err)

		payment.PaymentLink = "https://pay.example/1"
		payment.ProviderTransactionID = "bill-1"
		ok, err := repo.AttachProviderDetails(ctx, payment)
		require.NoError(t, err)
		assert.True(t, ok)

		payment.PaymentLink = "https://pay.example/2"
		payment.ProviderTransactionID = "bill-2"
		ok, err = repo.AttachProviderDetails(ctx, payment)
		require.NoError(t, err)
		assert.False(t, ok)

		fetched, err := repo.GetByID(ctx, nil, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, "bill-1", fetched.ProviderTransactionID)
		assert.Equal(t, "https://pay.example/1", fetched.PaymentLink)
	})

	t.Run("ApplyDeposit writes amounts inside a transaction", func(t *testing.T) {
		payment, err := test.CreateTestPayment(conn, nil)
		require.NoError(t, err)

		err = db.WithTx(ctx, conn, func(tx *sql.Tx) error {
			current, err := repo.GetByIDAndStatus(ctx, tx, payment.ID, types.PaymentStatusPending)
			if err != nil {
				return err
			}
			current.Status = types.PaymentStatusSuccess
			current.PaidAmount = decimal.NewFromInt(1029)
			current.FinalAmount = decimal.NewFromInt(1020)
			current.Bonus = decimal.NewFromInt(20)
			_, err = repo.ApplyDeposit(ctx, tx, current, types.PaymentStatusPending)
			return err
		})
		require.NoError(t, err)

		fetched, err := repo.GetByID(ctx, nil, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, types.PaymentStatusSuccess, fetched.Status)
		assert.Equal(t, "1029", fetched.PaidAmount.String())
		assert.Equal(t, "1020", fetched.FinalAmount.String())
		assert.Equal(t, "20", fetched.Bonus.String())
	})
}

func TestPaymentRepositoryAggregates(t *testing.T) {
	ctx := context.Background()
	conn := test.NewTestDB(t)
	repo := db.NewPaymentRepository(conn, db.DialectSQLite)

	now := time.Now().UTC()
	fixtures := []map[string]interface{}{
		{"status": types.PaymentStatusCompleted, "amount": decimal.RequireFromString("1000.50")},
		{"status": types.PaymentStatusCompleted, "amount": decimal.NewFromInt(2000)},
		{"status": types.PaymentStatusCompleted, "amount": decimal.NewFromInt(5000), "createdAt": now.Add(-25 * time.Hour)},
		{"status": types.PaymentStatusCompleted, "amount": decimal.NewFromInt(700), "account": "other"},
		{"status": types.PaymentStatusPending},
		{"status": types.PaymentStatusPending},
		{"status": types.PaymentStatusPending, "provider": types.ProviderCryptopay},
	}
	for _, overrides := range fixtures {
		_, err := test.CreateTestPayment(conn, overrides)
		require.NoError(t, err)
	}

	t.Run("SumAmountSince honours the window and account", func(t *testing.T) {
		sum, err := repo.SumAmountSince(ctx, "payer@test.com", "steamuser", types.PaymentStatusCompleted, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "3000.5", sum.String())
	})

	t.Run("CountByStatus is scoped to provider", func(t *testing.T) {
		count, err := repo.CountByStatus(ctx, "payer@test.com", types.ProviderCardlink, types.PaymentStatusPending)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("ListByStatus caps the batch", func(t *testing.T) {
		payments, err := repo.ListByStatus(ctx, types.PaymentStatusCompleted, 2)
		require.NoError(t, err)
		assert.Len(t, payments, 2)
	})

	t.Run("List filters and paginates", func(t *testing.T) {
		payments, total, err := repo.List(ctx,
			types.PaymentFilter{Status: types.PaymentStatusCompleted, Account: "steamuser"},
			types.Pagination{Page: 1, Limit: 2, Desc: true},
		)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, payments, 2)

		payments, _, err = repo.List(ctx,
			types.PaymentFilter{Status: types.PaymentStatusCompleted, Account: "steamuser"},
			types.Pagination{Page: 2, Limit: 2, Desc: true},
		)
		require.NoError(t, err)
		assert.Len(t, payments, 1)
		assert.Equal(t, "5000", payments[0].Amount.String())
	})
}
