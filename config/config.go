package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort      string `mapstructure:"APP_PORT"`
	Env          string `mapstructure:"ENV"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`

	// TokenVaultKey is the base64-encoded 32-byte key sealing stored OAuth
	// tokens.
	TokenVaultKey string `mapstructure:"TOKEN_VAULT_KEY"`

	// Redis configuration. State DB holds OAuth state nonces, queue DB backs
	// the reminder task queue.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisStateDB  int    `mapstructure:"REDIS_STATE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Calendar provider OAuth application.
	OAuthClientID     string `mapstructure:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `mapstructure:"OAUTH_CLIENT_SECRET"`
	OAuthRedirectURL  string `mapstructure:"OAUTH_REDIRECT_URL"`
	OAuthAuthURL      string `mapstructure:"OAUTH_AUTH_URL"`
	OAuthTokenURL     string `mapstructure:"OAUTH_TOKEN_URL"`

	// Calendar provider REST API.
	CalendarAPIBaseURL string `mapstructure:"CALENDAR_API_BASE_URL"`

	// Outbound mail.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	// ReminderLeadMin is how many minutes before a meeting the guest
	// reminder fires.
	ReminderLeadMin int `mapstructure:"REMINDER_LEAD_MIN"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "schedly")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_STATE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("CALENDAR_API_BASE_URL", "https://calendar.googleapis.com/calendar/v3")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("REMINDER_LEAD_MIN", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
