package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPromoTest(t *testing.T) (*PromoService, *sql.DB) {
	conn := test.NewTestDB(t)
	return NewPromoService(storage.NewPromoRepository(conn), &config.PaymentConfiguration{
		PromoDefaultBonusPercent: decimal.NewFromInt(2),
		PromoRetention:           30 * 24 * time.Hour,
		PromoSeedCodes:           []string{"welcome"},
	}), conn
}

func TestPromoCodes(t *testing.T) {
	ctx := context.Background()

	t.Run("create normalizes and defaults the bonus", func(t *testing.T) {
		service, _ := setupPromoTest(t)

		promo, err := service.CreatePromoCode(ctx, types.CreatePromoCodePayload{Code: " Spring_24 "})
		require.NoError(t, err)
		assert.Equal(t, "spring_24", promo.Code)
		assert.True(t, promo.BonusPercent.Equal(decimal.NewFromInt(2)))

		_, err = service.CreatePromoCode(ctx, types.CreatePromoCodePayload{Code: "SPRING_24"})
		assert.True(t, types.IsErrorCode(err, types.ErrCodePromoExists))
	})

	t.Run("create validates code and bonus", func(t *testing.T) {
		service, _ := setupPromoTest(t)

		tests := []types.CreatePromoCodePayload{
			{Code: "ab"},
			{Code: "has space"},
			{Code: "valid", BonusPercent: decimal.NewFromInt(101)},
			{Code: "valid", BonusPercent: decimal.NewFromInt(-1)},
		}
		for _, payload := range tests {
			_, err := service.CreatePromoCode(ctx, payload)
			assert.True(t, types.IsErrorCode(err, types.ErrCodeValidation), payload.Code)
		}
	})

	t.Run("update and lookup", func(t *testing.T) {
		service, _ := setupPromoTest(t)

		promo, err := service.CreatePromoCode(ctx, types.CreatePromoCodePayload{Code: "summer", BonusPercent: decimal.NewFromInt(3)})
		require.NoError(t, err)

		updated, err := service.UpdatePromoCode(ctx, promo.ID, types.CreatePromoCodePayload{Code: "autumn", BonusPercent: decimal.NewFromInt(7)})
		require.NoError(t, err)
		assert.Equal(t, "autumn", updated.Code)

		found, err := service.GetPromoCode(ctx, "AUTUMN")
		require.NoError(t, err)
		assert.True(t, found.BonusPercent.Equal(decimal.NewFromInt(7)))

		_, err = service.GetPromoCode(ctx, "summer")
		assert.True(t, types.IsErrorCode(err, types.ErrCodePromoNotFound))

		_, err = service.UpdatePromoCode(ctx, "missing", types.CreatePromoCodePayload{Code: "winter"})
		assert.True(t, types.IsErrorCode(err, types.ErrCodePromoNotFound))
	})

	t.Run("list is paginated", func(t *testing.T) {
		service, _ := setupPromoTest(t)
		for _, code := range []string{"one", "two", "three"} {
			_, err := service.CreatePromoCode(ctx, types.CreatePromoCodePayload{Code: code})
			require.NoError(t, err)
		}

		page, err := service.ListPromoCodes(ctx, types.Pagination{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Len(t, page.Items, 1)
		assert.True(t, page.HasPreviousPage)
	})

	t.Run("seeding is idempotent", func(t *testing.T) {
		service, _ := setupPromoTest(t)

		require.NoError(t, service.SeedPromoCodes(ctx))
		require.NoError(t, service.SeedPromoCodes(ctx))

		page, err := service.ListPromoCodes(ctx, types.Pagination{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
	})
}

func TestPromoActivation(t *testing.T) {
	ctx := context.Background()

	t.Run("one active activation per email", func(t *testing.T) {
		service, _ := setupPromoTest(t)
		require.NoError(t, service.SeedPromoCodes(ctx))

		activation, err := service.ActivatePromoCode(ctx, "WELCOME", " Payer@Test.com ")
		require.NoError(t, err)
		assert.Equal(t, "payer@test.com", activation.Email)
		assert.Equal(t, types.PromoActivationActive, activation.Status)

		_, err = service.ActivatePromoCode(ctx, "welcome", "payer@test.com")
		assert.True(t, types.IsErrorCode(err, types.ErrCodePromoAlreadyUsed))

		promo, err := service.GetActivePromo(ctx, "PAYER@test.com")
		require.NoError(t, err)
		assert.Equal(t, "welcome", promo.Code)
	})

	t.Run("unknown code", func(t *testing.T) {
		service, _ := setupPromoTest(t)

		_, err := service.ActivatePromoCode(ctx, "nothing", "payer@test.com")
		assert.True(t, types.IsErrorCode(err, types.ErrCodePromoNotFound))

		_, err = service.GetActivePromo(ctx, "payer@test.com")
		assert.True(t, types.IsErrorCode(err, types.ErrCodeNotFound))
	})

	t.Run("expiry sweep frees the email", func(t *testing.T) {
		service, conn := setupPromoTest(t)
		promo, err := test.CreateTestPromoCode(conn, nil)
		require.NoError(t, err)

		_, err = test.ActivateTestPromoCode(conn, promo, "old@test.com", time.Now().UTC().Add(-31*24*time.Hour))
		require.NoError(t, err)
		_, err = test.ActivateTestPromoCode(conn, promo, "new@test.com", time.Now().UTC().Add(-time.Hour))
		require.NoError(t, err)

		expired, err := service.ExpireActivations(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), expired)

		_, err = service.GetActivePromo(ctx, "old@test.com")
		assert.True(t, types.IsErrorCode(err, types.ErrCodeNotFound))
		_, err = service.GetActivePromo(ctx, "new@test.com")
		assert.NoError(t, err)

		_, err = service.ActivatePromoCode(ctx, "welcome", "old@test.com")
		assert.NoError(t, err)
	})
}
