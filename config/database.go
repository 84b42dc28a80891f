package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DatabaseConfiguration type defines the database configurations
type DatabaseConfiguration struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DBConfig sets the database configuration
func DBConfig() *DatabaseConfiguration {
	viper.SetDefault("DB_DRIVER", "pgx")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_NAME", "steamtrust")
	viper.SetDefault("SSL_MODE", "disable")

	conf := &DatabaseConfiguration{
		Driver:   viper.GetString("DB_DRIVER"),
		DSN:      viper.GetString("DB_DSN"),
		Host:     viper.GetString("DB_HOST"),
		Port:     viper.GetString("DB_PORT"),
		User:     viper.GetString("DB_USER"),
		Password: viper.GetString("DB_PASSWORD"),
		Name:     viper.GetString("DB_NAME"),
		SSLMode:  viper.GetString("SSL_MODE"),
	}

	if conf.DSN == "" && conf.Driver == "pgx" {
		conf.DSN = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			conf.Host, conf.Port, conf.User, conf.Password, conf.Name, conf.SSLMode,
		)
	}

	return conf
}
