package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSessionSecretLen is the shortest accepted SESSION_SECRET, in bytes.
const MinSessionSecretLen = 32

type Config struct {
	DatabaseURI    string
	SessionSecret  string
	ListenAddr     string
	BackendBaseURL string
	FrontendURL    string
	Production     bool
	RequestTimeout time.Duration

	FeedProductID string
	FeedUIDDomain string
	FeedCacheTTL  time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailTimeout  time.Duration

	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	TelegramToken       string
	TelegramAlertChatID int64

	ProvidersFile string
	Providers     *Providers

	SyncInterval  time.Duration
	LinkRetention time.Duration
}

// Load reads configuration from the environment, after loading an optional
// .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	var errs []error
	cfg := &Config{
		DatabaseURI:    os.Getenv("DATABASE_URI"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		ListenAddr:     getEnvOrDefault("LISTEN_ADDR", ":8080"),
		BackendBaseURL: strings.TrimRight(getEnvOrDefault("BACKEND_BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL:    strings.TrimRight(getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"), "/"),
		Production:     getBool("PRODUCTION", false, &errs),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second, &errs),

		FeedProductID: os.Getenv("FEED_PRODUCT_ID"),
		FeedUIDDomain: os.Getenv("FEED_UID_DOMAIN"),
		FeedCacheTTL:  getDuration("FEED_CACHE_TTL", 15*time.Minute, &errs),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getInt("SMTP_PORT", 587, &errs),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnvOrDefault("MAIL_FROM", "calfeed <noreply@localhost>"),
		MailTimeout:  getDuration("MAIL_TIMEOUT", 10*time.Second, &errs),

		AIAPIKey:  os.Getenv("AI_API_KEY"),
		AIBaseURL: getEnvOrDefault("AI_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:   getEnvOrDefault("AI_MODEL", "openai/gpt-4o-mini"),

		TelegramToken:       os.Getenv("TELEGRAM_TOKEN"),
		TelegramAlertChatID: int64(getInt("TELEGRAM_ALERT_CHAT_ID", 0, &errs)),

		ProvidersFile: os.Getenv("PROVIDERS_FILE"),

		SyncInterval:  getDuration("SYNC_INTERVAL", time.Hour, &errs),
		LinkRetention: getDuration("LINK_RETENTION", 30*24*time.Hour, &errs),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg.Providers = &Providers{}
	if cfg.ProvidersFile != "" {
		providers, err := LoadProviders(cfg.ProvidersFile)
		if err != nil {
			return nil, err
		}
		cfg.Providers = providers
	}

	return cfg, cfg.Validate()
}

// Validate reports every missing or malformed required setting.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("DATABASE_URI is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	} else if len(c.SessionSecret) < MinSessionSecretLen {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLen))
	}
	if c.SMTPHost != "" && c.MailFrom == "" {
		errs = append(errs, errors.New("MAIL_FROM is required when SMTP_HOST is set"))
	}
	if c.TelegramToken != "" && c.TelegramAlertChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_ALERT_CHAT_ID is required when TELEGRAM_TOKEN is set"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// AIEnabled reports whether natural-language quick add is configured.
func (c *Config) AIEnabled() bool {
	return c.AIAPIKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return b
}
