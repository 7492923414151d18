package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	EmailProviderSMTP = "smtp"
	EmailProviderSES  = "ses"
	EmailProviderLog  = "log"
)

// SweepCronSpec fires the renewal sweep once a day at 06:00 server time.
// Not read from the environment.
const SweepCronSpec = "0 6 * * *"

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	LogLevel    string
	Environment string

	EmailProvider string
	EmailFrom     string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPUseTLS    bool
	AWSRegion     string

	RedisURL     string // optional; enables the cross-instance sweep guard
	MetricsAddr  string // empty disables the /metrics endpoint
	SweepTimeout time.Duration

	TelegramToken   string // optional; enables the admin bot
	AdminTelegramID int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.EmailProvider = strings.ToLower(os.Getenv("EMAIL_PROVIDER"))
	if cfg.EmailProvider == "" {
		cfg.EmailProvider = EmailProviderLog
	}
	cfg.EmailFrom = os.Getenv("EMAIL_FROM")

	switch cfg.EmailProvider {
	case EmailProviderSMTP:
		cfg.SMTPHost = os.Getenv("SMTP_HOST")
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is not set")
		}
		cfg.SMTPPort = 587
		if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
			cfg.SMTPPort, err = strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
			}
		}
		cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
		cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
		if tlsStr := os.Getenv("SMTP_USE_TLS"); tlsStr != "" {
			cfg.SMTPUseTLS, err = strconv.ParseBool(tlsStr)
			if err != nil {
				return nil, fmt.Errorf("invalid SMTP_USE_TLS: %w", err)
			}
		}
		if cfg.EmailFrom == "" {
			cfg.EmailFrom = cfg.SMTPUsername
		}
	case EmailProviderSES:
		cfg.AWSRegion = os.Getenv("AWS_REGION")
		if cfg.AWSRegion == "" {
			return nil, fmt.Errorf("AWS_REGION is not set")
		}
	case EmailProviderLog:
	default:
		return nil, fmt.Errorf("invalid EMAIL_PROVIDER %q (expected smtp, ses or log)", cfg.EmailProvider)
	}
	if cfg.EmailProvider != EmailProviderLog && cfg.EmailFrom == "" {
		return nil, fmt.Errorf("EMAIL_FROM is not set")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.SweepTimeout = 30 * time.Minute
	if timeoutStr := os.Getenv("SWEEP_TIMEOUT"); timeoutStr != "" {
		cfg.SweepTimeout, err = time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_TIMEOUT: %w", err)
		}
		if cfg.SweepTimeout <= 0 {
			return nil, fmt.Errorf("SWEEP_TIMEOUT must be positive, got %s", cfg.SweepTimeout)
		}
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}
