package config

import (
	"time"

	"github.com/spf13/viper"
)

// ProviderConfiguration type defines the payment provider settings
type ProviderConfiguration struct {
	Timeout       time.Duration
	RatesCacheTTL time.Duration

	CardlinkBaseURL  string
	CardlinkShopID   string
	CardlinkAPIToken string

	CryptopayBaseURL            string
	CryptopayAPIKey             string
	CryptopayWebhookURL         string
	CryptopaySuccessURL         string
	CryptopayFailURL            string
	CryptopayPaymentDescription string
}

// ProviderConfig sets the payment provider configuration
func ProviderConfig() *ProviderConfiguration {
	viper.SetDefault("PROVIDER_TIMEOUT", 30) // seconds
	viper.SetDefault("RATES_CACHE_TTL", 60)  // seconds
	viper.SetDefault("CARDLINK_BASE_URL", "https://cardlink.link/api/v1")
	viper.SetDefault("CRYPTOPAY_PAY_BASE_URL", "https://lk.cryptopayo.net")
	viper.SetDefault("CRYPTOPAY_WEBHOOK_URL", "https://api.steamtrust.ru/v1/cryptopay/pay")
	viper.SetDefault("CRYPTOPAY_SUCCESS_URL", "https://steamtrust.ru/pay/success")
	viper.SetDefault("CRYPTOPAY_FAIL_URL", "https://steamtrust.ru/pay/fail")
	viper.SetDefault("CRYPTOPAY_PAYMENT_DESCRIPTION", "Steam balance top-up")

	return &ProviderConfiguration{
		Timeout:                     time.Duration(viper.GetInt("PROVIDER_TIMEOUT")) * time.Second,
		RatesCacheTTL:               time.Duration(viper.GetInt("RATES_CACHE_TTL")) * time.Second,
		CardlinkBaseURL:             viper.GetString("CARDLINK_BASE_URL"),
		CardlinkShopID:              viper.GetString("CARDLINK_SHOP_ID"),
		CardlinkAPIToken:            viper.GetString("CARDLINK_API_TOKEN"),
		CryptopayBaseURL:            viper.GetString("CRYPTOPAY_PAY_BASE_URL"),
		CryptopayAPIKey:             viper.GetString("CRYPTOPAY_API_KEY"),
		CryptopayWebhookURL:         viper.GetString("CRYPTOPAY_WEBHOOK_URL"),
		CryptopaySuccessURL:         viper.GetString("CRYPTOPAY_SUCCESS_URL"),
		CryptopayFailURL:            viper.GetString("CRYPTOPAY_FAIL_URL"),
		CryptopayPaymentDescription: viper.GetString("CRYPTOPAY_PAYMENT_DESCRIPTION"),
	}
}
