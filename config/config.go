package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config aggregates every configuration section. It is built once at startup
// and passed to constructors.
type Config struct {
	Server       *ServerConfiguration
	Database     *DatabaseConfiguration
	Redis        *RedisConfiguration
	Auth         *AuthConfiguration
	Payment      *PaymentConfiguration
	B2B          *B2BConfiguration
	Provider     *ProviderConfiguration
	Notification *NotificationConfiguration
}

// SetupConfig reads the env file (if any) into viper and enables env overrides
func SetupConfig() error {
	viper.AddConfigPath("../../..")
	viper.AddConfigPath("../..")
	viper.AddConfigPath("..")
	viper.AddConfigPath(".")

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	viper.SetConfigName(envFilePath)
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// Load reads the configuration and builds every section
func Load() (*Config, error) {
	if err := SetupConfig(); err != nil {
		return nil, err
	}

	conf := &Config{
		Server:       ServerConfig(),
		Database:     DBConfig(),
		Redis:        RedisConfig(),
		Auth:         AuthConfig(),
		Payment:      PaymentConfig(),
		B2B:          B2BConfig(),
		Provider:     ProviderConfig(),
		Notification: NotificationConfig(),
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Validate checks cross-field constraints that viper defaults cannot express
func (c *Config) Validate() error {
	if c.Payment.MaxActiveOrders <= 0 {
		return fmt.Errorf("PAYMENT_MAX_ACTIVE_ORDERS must be positive")
	}
	if c.Payment.DailyLimit.IsNegative() || c.Payment.DailyLimit.IsZero() {
		return fmt.Errorf("PAYMENT_DAILY_LIMIT must be positive")
	}
	if c.Payment.ExecuteInterval <= 0 || c.Payment.StatusPollInterval <= 0 {
		return fmt.Errorf("reconciliation intervals must be positive")
	}
	if c.Server.Environment == "production" && c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}
