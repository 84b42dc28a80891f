package config

import (
	"strings"

	"github.com/spf13/viper"
)

// ServerConfiguration type defines the server configurations
type ServerConfiguration struct {
	Debug                    bool
	Host                     string
	Port                     string
	Environment              string
	AllowedHosts             []string
	SentryDSN                string
	LogLevel                 string
	RateLimitUnauthenticated int
	RateLimitAuthenticated   int
}

// ServerConfig sets the server configuration
func ServerConfig() *ServerConfiguration {
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", "8000")
	viper.SetDefault("ENVIRONMENT", "local")
	viper.SetDefault("ALLOWED_HOSTS", "*")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("RATE_LIMIT_UNAUTHENTICATED", 10)
	viper.SetDefault("RATE_LIMIT_AUTHENTICATED", 100)

	return &ServerConfiguration{
		Debug:                    viper.GetBool("DEBUG"),
		Host:                     viper.GetString("HOST"),
		Port:                     viper.GetString("SERVER_PORT"),
		Environment:              viper.GetString("ENVIRONMENT"),
		AllowedHosts:             strings.Split(viper.GetString("ALLOWED_HOSTS"), ","),
		SentryDSN:                viper.GetString("SENTRY_DSN"),
		LogLevel:                 viper.GetString("LOG_LEVEL"),
		RateLimitUnauthenticated: viper.GetInt("RATE_LIMIT_UNAUTHENTICATED"),
		RateLimitAuthenticated:   viper.GetInt("RATE_LIMIT_AUTHENTICATED"),
	}
}
