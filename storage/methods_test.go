package storage_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	db "github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodRepository(t *testing.T) {
	ctx := context.Background()
	conn := test.NewTestDB(t)
	repo := db.NewMethodRepository(conn)

	card, err := test.CreateTestPaymentMethod(conn, nil)
	require.NoError(t, err)
	_, err = test.CreateTestPaymentMethod(conn, map[string]interface{}{
		"providerMethod":   "usdt_trc20",
		"provider":         types.ProviderCryptopay,
		"fromCurrencyCode": "RUB",
		"toCurrencyCode":   "USDT",
		"isActive":         false,
	})
	require.NoError(t, err)

	t.Run("GetByCode", func(t *testing.T) {
		method, err := repo.GetByCode(ctx, "card_rub")
		require.NoError(t, err)
		assert.Equal(t, card.ID, method.ID)
		assert.Equal(t, "0.9", method.RelativeProviderCommission.String())
		assert.True(t, method.IsActive)

		_, err = repo.GetByCode(ctx, "nope")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("duplicate provider method is rejected", func(t *testing.T) {
		_, err := test.CreateTestPaymentMethod(conn, nil)
		assert.ErrorIs(t, err, db.ErrDuplicate)
	})

	t.Run("Update changes commissions and active flag", func(t *testing.T) {
		method, err := repo.GetByID(ctx, card.ID)
		require.NoError(t, err)

		method.RelativeCommission = decimal.NewFromInt(3)
		method.IsActive = false
		require.NoError(t, repo.Update(ctx, method))

		updated, err := repo.GetByID(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, "3", updated.RelativeCommission.String())
		assert.False(t, updated.IsActive)

		assert.ErrorIs(t, repo.Update(ctx, &types.PaymentMethod{ID: "missing"}), db.ErrNotFound)
	})

	t.Run("List filters by provider", func(t *testing.T) {
		methods, total, err := repo.List(ctx, types.MethodFilter{Provider: types.ProviderCryptopay}, types.Pagination{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, methods, 1)
		assert.Equal(t, "usdt_trc20", methods[0].ProviderMethod)
	})
}
