package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Global
	viper.SetDefault("state_dir", "~/.poll-forwarder")

	// Control panel
	viper.SetDefault("panel.bind", "127.0.0.1")
	viper.SetDefault("panel.port", 3000)
	viper.SetDefault("panel.password", "")

	// Telegram application credentials (https://my.telegram.org)
	viper.SetDefault("telegram.api_id", 0)
	viper.SetDefault("telegram.api_hash", "")

	// Twilio
	viper.SetDefault("twilio.account_sid", "")
	viper.SetDefault("twilio.auth_token", "")
	viper.SetDefault("twilio.from_number", "")
	viper.SetDefault("twilio.request_timeout", 10*time.Second)

	// Logging
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("logging.file.enabled", false)
	viper.SetDefault("logging.file.path", "")
	viper.SetDefault("logging.file.max_size_mb", 10)
	viper.SetDefault("logging.file.max_backups", 3)
	viper.SetDefault("logging.file.max_age_days", 14)
	viper.SetDefault("logging.file.compress", true)
	viper.SetDefault("trace", false)
}
