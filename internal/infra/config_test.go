package infra

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/app")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("REPLICATE_API_TOKEN", "r8_test_123")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("default port: got %q", cfg.Port)
	}
	if cfg.SubscriptionPrice != 3900 {
		t.Errorf("default subscription price: got %d", cfg.SubscriptionPrice)
	}
	if cfg.SubscriptionCurrency != "usd" {
		t.Errorf("default currency: got %q", cfg.SubscriptionCurrency)
	}
	if cfg.TrainerOwner != "ostris" || cfg.TrainerModel != "flux-dev-lora-trainer" {
		t.Errorf("default trainer: got %q/%q", cfg.TrainerOwner, cfg.TrainerModel)
	}
	if cfg.DefaultLocale != "en" {
		t.Errorf("default locale: got %q", cfg.DefaultLocale)
	}
}

func TestLoadConfigRequiredVariables(t *testing.T) {
	cases := []string{"DATABASE_URL", "STRIPE_SECRET_KEY", "REPLICATE_API_TOKEN"}
	for _, missing := range cases {
		t.Run(missing, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(missing, "")
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error when %s is missing", missing)
			}
		})
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUBSCRIPTION_PRICE", "4900")
	t.Setenv("HTTP_READ_TIMEOUT_SECONDS", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SubscriptionPrice != 4900 {
		t.Errorf("price override: got %d", cfg.SubscriptionPrice)
	}
	if cfg.HTTPReadTimeout.Seconds() != 5 {
		t.Errorf("read timeout override: got %s", cfg.HTTPReadTimeout)
	}
}
