package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	HTTPPort    string
	CORSOrigins []string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSchema   string

	StripeAPIKey        string
	StripeWebhookSecret string

	SupabaseURL       string
	SupabaseKey       string
	SupabaseJWTSecret string

	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
}

// Load reads configuration from the environment (a .env file is picked up via
// godotenv autoload). Secrets have no defaults; missing ones fail startup.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8000"),
		CORSOrigins: splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8000")),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "nuge"),
		DBSchema:   getEnv("DB_SCHEMA", "public"),

		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseKey:       os.Getenv("SUPABASE_KEY"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
	}

	var err error
	if cfg.ReconcileInterval, err = getDuration("RECONCILE_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReconcileAfter, err = getDuration("RECONCILE_AFTER", 5*time.Minute); err != nil {
		return nil, err
	}

	for name, v := range map[string]string{
		"STRIPE_API_KEY":        cfg.StripeAPIKey,
		"STRIPE_WEBHOOK_SECRET": cfg.StripeWebhookSecret,
		"SUPABASE_URL":          cfg.SupabaseURL,
		"SUPABASE_KEY":          cfg.SupabaseKey,
		"SUPABASE_JWT_SECRET":   cfg.SupabaseJWTSecret,
	} {
		if v == "" {
			return nil, fmt.Errorf("config: %s is required", name)
		}
	}

	return cfg, nil
}

// DatabaseURL builds the pgx connection string the same way the DB settings
// were assembled in the environment-per-part style.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSchema,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return d, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
