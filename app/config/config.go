package config

import (
	"os"
	"strconv"
	"strings"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Env       string
	DB        PostgresConfig
	Stripe    StripeConfig
	Supabase  SupabaseConfig
	Planner   PlannerConfig
	Sanity    SanityConfig
	RateLimit RateLimitConfig
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
}

type StripeConfig struct {
	SecretKey       string
	WebhookSecret   string
	PriceProMonthly string
	PriceProYearly  string
	PriceLifetime   string
	FrontendURL     string
}

type SupabaseConfig struct {
	URL      string
	Audience string
}

type PlannerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type SanityConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
}

type RateLimitConfig struct {
	Max           int
	WindowSeconds int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Env: os.Getenv("ENV"),
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
		},
		Stripe: StripeConfig{
			SecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceProMonthly: os.Getenv("STRIPE_PRICE_PRO_MONTHLY"),
			PriceProYearly:  os.Getenv("STRIPE_PRICE_PRO_YEARLY"),
			PriceLifetime:   os.Getenv("STRIPE_PRICE_LIFETIME"),
			FrontendURL:     os.Getenv("FRONTEND_URL"),
		},
		Supabase: SupabaseConfig{
			URL:      os.Getenv("SUPABASE_URL"),
			Audience: envOr("SUPABASE_JWT_AUD", "authenticated"),
		},
		Planner: PlannerConfig{
			APIKey:  os.Getenv("PLANNER_API_KEY"),
			BaseURL: envOr("PLANNER_BASE_URL", "https://api.openai.com/v1"),
			Model:   envOr("PLANNER_MODEL", "gpt-4o-mini"),
		},
		Sanity: SanityConfig{
			ProjectID:  os.Getenv("SANITY_PROJECT_ID"),
			Dataset:    envOr("SANITY_DATASET", "production"),
			APIVersion: envOr("SANITY_API_VERSION", "2024-01-01"),
		},
		RateLimit: RateLimitConfig{
			Max:           envOrInt("RATE_LIMIT_MAX", 10),
			WindowSeconds: envOrInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
	}

	return cfg, nil
}

// IsProduction reports whether the process runs in production. Anything
// other than an explicit local/dev/test env counts as production so error
// detail suppression fails safe.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "local", "dev", "development", "test":
		return false
	}
	return true
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
