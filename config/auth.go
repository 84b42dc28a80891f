package config

import (
	"time"

	"github.com/spf13/viper"
)

// AuthConfiguration defines the admin authentication settings
type AuthConfiguration struct {
	Secret            string
	JwtAccessLifespan time.Duration
	AdminUsername     string
	AdminPasswordHash string
}

// AuthConfig returns the authentication configuration
func AuthConfig() *AuthConfiguration {
	viper.SetDefault("JWT_ACCESS_LIFESPAN", 60) // minutes
	viper.SetDefault("ADMIN_USERNAME", "admin")

	return &AuthConfiguration{
		Secret:            viper.GetString("JWT_SECRET"),
		JwtAccessLifespan: time.Duration(viper.GetInt("JWT_ACCESS_LIFESPAN")) * time.Minute,
		AdminUsername:     viper.GetString("ADMIN_USERNAME"),
		AdminPasswordHash: viper.GetString("ADMIN_PASSWORD_HASH"),
	}
}
