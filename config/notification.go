package config

import (
	"github.com/spf13/viper"
)

// NotificationConfiguration defines the operator alert and payer email settings
type NotificationConfiguration struct {
	TelegramBotToken    string
	TelegramChatID      int64
	TelegramAPIEndpoint string
	SlackWebhookURL     string

	EmailDomain           string
	EmailAPIKey           string
	EmailFromAddress      string
	EmailProvider         string
	EmailFallbackProvider string
}

// NotificationConfig sets the notification configuration
func NotificationConfig() *NotificationConfiguration {
	viper.SetDefault("TELEGRAM_API_ENDPOINT", "https://api.telegram.org/bot%s/%s")
	viper.SetDefault("EMAIL_DOMAIN", "api.brevo.com")
	viper.SetDefault("EMAIL_FROM_ADDRESS", "no-reply@steamtrust.ru")
	viper.SetDefault("EMAIL_PROVIDER", "brevo")
	viper.SetDefault("EMAIL_FALLBACK_PROVIDER", "sendgrid")

	return &NotificationConfiguration{
		TelegramBotToken:      viper.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:        viper.GetInt64("TELEGRAM_CHAT_ID"),
		TelegramAPIEndpoint:   viper.GetString("TELEGRAM_API_ENDPOINT"),
		SlackWebhookURL:       viper.GetString("SLACK_WEBHOOK_URL"),
		EmailDomain:           viper.GetString("EMAIL_DOMAIN"),
		EmailAPIKey:           viper.GetString("EMAIL_API_KEY"),
		EmailFromAddress:      viper.GetString("EMAIL_FROM_ADDRESS"),
		EmailProvider:         viper.GetString("EMAIL_PROVIDER"),
		EmailFallbackProvider: viper.GetString("EMAIL_FALLBACK_PROVIDER"),
	}
}
