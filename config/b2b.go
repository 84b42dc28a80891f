package config

import (
	"time"

	"github.com/spf13/viper"
)

// B2BConfiguration type defines the wallet custodian gateway settings
type B2BConfiguration struct {
	APIURL           string
	APIKey           string
	ServiceID        int
	Timeout          time.Duration
	Currency         string
	DefaultLimit     int
	DefaultOffset    int
	DefaultSortBy    string
	DefaultSortOrder string
}

// B2BConfig sets the B2B gateway configuration
func B2BConfig() *B2BConfiguration {
	viper.SetDefault("B2B_API_URL", "https://api.g-engine.net/v2.1")
	viper.SetDefault("B2B_SERVICE_ID", 92)
	viper.SetDefault("B2B_TIMEOUT", 60) // seconds
	viper.SetDefault("B2B_CURRENCY", "RUB")
	viper.SetDefault("B2B_DEFAULT_LIMIT", 100)
	viper.SetDefault("B2B_DEFAULT_OFFSET", 0)
	viper.SetDefault("B2B_DEFAULT_SORT_BY", "date")
	viper.SetDefault("B2B_DEFAULT_SORT_ORDER", "desc")

	return &B2BConfiguration{
		APIURL:           viper.GetString("B2B_API_URL"),
		APIKey:           viper.GetString("B2B_API_KEY"),
		ServiceID:        viper.GetInt("B2B_SERVICE_ID"),
		Timeout:          time.Duration(viper.GetInt("B2B_TIMEOUT")) * time.Second,
		Currency:         viper.GetString("B2B_CURRENCY"),
		DefaultLimit:     viper.GetInt("B2B_DEFAULT_LIMIT"),
		DefaultOffset:    viper.GetInt("B2B_DEFAULT_OFFSET"),
		DefaultSortBy:    viper.GetString("B2B_DEFAULT_SORT_BY"),
		DefaultSortOrder: viper.GetString("B2B_DEFAULT_SORT_ORDER"),
	}
}
