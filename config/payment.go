package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// PaymentConfiguration type defines payment limits and reconciliation settings
type PaymentConfiguration struct {
	MaxActiveOrders          int
	DailyLimit               decimal.Decimal
	ExecuteInterval          time.Duration
	StatusPollInterval       time.Duration
	ReconcileConcurrency     int
	ReconcileLockTTL         time.Duration
	PromoRetention           time.Duration
	PromoDefaultBonusPercent decimal.Decimal
	PromoSeedCodes           []string
}

// PaymentConfig sets the payment configuration
func PaymentConfig() *PaymentConfiguration {
	viper.SetDefault("PAYMENT_MAX_ACTIVE_ORDERS", 20)
	viper.SetDefault("PAYMENT_DAILY_LIMIT", 30000)
	viper.SetDefault("PAYMENT_EXECUTE_INTERVAL", 10)     // seconds
	viper.SetDefault("PAYMENT_STATUS_POLL_INTERVAL", 30) // seconds
	viper.SetDefault("RECONCILE_CONCURRENCY", 8)
	viper.SetDefault("RECONCILE_LOCK_TTL", 300) // seconds
	viper.SetDefault("PROMO_RETENTION_DAYS", 30)
	viper.SetDefault("PROMO_DEFAULT_BONUS_PERCENT", 2)
	viper.SetDefault("PROMO_SEED_CODES", "welcome")

	var seeds []string
	for _, code := range strings.Split(viper.GetString("PROMO_SEED_CODES"), ",") {
		code = strings.ToLower(strings.TrimSpace(code))
		if code != "" {
			seeds = append(seeds, code)
		}
	}

	return &PaymentConfiguration{
		MaxActiveOrders:          viper.GetInt("PAYMENT_MAX_ACTIVE_ORDERS"),
		DailyLimit:               decimal.NewFromFloat(viper.GetFloat64("PAYMENT_DAILY_LIMIT")),
		ExecuteInterval:          time.Duration(viper.GetInt("PAYMENT_EXECUTE_INTERVAL")) * time.Second,
		StatusPollInterval:       time.Duration(viper.GetInt("PAYMENT_STATUS_POLL_INTERVAL")) * time.Second,
		ReconcileConcurrency:     viper.GetInt("RECONCILE_CONCURRENCY"),
		ReconcileLockTTL:         time.Duration(viper.GetInt("RECONCILE_LOCK_TTL")) * time.Second,
		PromoRetention:           time.Duration(viper.GetInt("PROMO_RETENTION_DAYS")) * 24 * time.Hour,
		PromoDefaultBonusPercent: decimal.NewFromFloat(viper.GetFloat64("PROMO_DEFAULT_BONUS_PERCENT")),
		PromoSeedCodes:           seeds,
	}
}
