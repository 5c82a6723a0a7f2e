package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Public origin the external training provider calls back on.
	WebhookBaseURL string
	// Public origin of the frontend, target of checkout redirects.
	PublicBaseURL string

	ReplicateAPIToken string
	ReplicateBaseURL  string
	TrainerOwner      string
	TrainerModel      string
	TrainerVersion    string

	StripeSecretKey      string
	StripeWebhookSecret  string
	SubscriptionCurrency string
	SubscriptionName     string
	SubscriptionDesc     string
	SubscriptionPrice    int64

	GeoIPDBPath   string
	DefaultLocale string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", "http://localhost:8080"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		TrainerOwner:      getEnv("TRAINER_OWNER", "ostris"),
		TrainerModel:      getEnv("TRAINER_MODEL", "flux-dev-lora-trainer"),
		TrainerVersion:    os.Getenv("TRAINER_VERSION"),

		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SubscriptionCurrency: getEnv("SUBSCRIPTION_CURRENCY", "usd"),
		SubscriptionName:     getEnv("SUBSCRIPTION_NAME", "Subscription"),
		SubscriptionDesc:     getEnv("SUBSCRIPTION_DESCRIPTION", "Subscription Plan"),
		SubscriptionPrice:    getEnvInt64("SUBSCRIPTION_PRICE", 3900),

		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.ReplicateAPIToken == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}
