package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// FloorPrice is the minimum viable unit price a discount may reduce to.
	FloorPrice int64
	// FloorPriceMasterClass is the lower floor for event tickets.
	FloorPriceMasterClass int64
	// DistributionMaxPasses bounds the cart-total even-distribution loop.
	DistributionMaxPasses int
	// MaxBonusDebitPercentOrder caps bonus spending per order.
	MaxBonusDebitPercentOrder int64
	// MaxBonusDebitPercentProduct caps bonus spending per unit.
	MaxBonusDebitPercentProduct int64

	PricingCacheTTL  time.Duration
	RateLimitPerMin  int
	ShutdownGrace    time.Duration
	SweepInterval    time.Duration
	OTLPEndpoint     string
	MetricsNamespace string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		FloorPrice:                  parseInt64(k.String("FLOOR_PRICE"), 100),
		FloorPriceMasterClass:       parseInt64(k.String("FLOOR_PRICE_MASTER_CLASS"), 1),
		DistributionMaxPasses:       int(parseInt64(k.String("DISTRIBUTION_MAX_PASSES"), 64)),
		MaxBonusDebitPercentOrder:   parseInt64(k.String("MAX_BONUS_DEBIT_PERCENT_ORDER"), 30),
		MaxBonusDebitPercentProduct: parseInt64(k.String("MAX_BONUS_DEBIT_PERCENT_PRODUCT"), 50),

		PricingCacheTTL:  parseDuration(k.String("PRICING_CACHE_TTL"), "10m"),
		RateLimitPerMin:  int(parseInt64(k.String("RATE_LIMIT_PER_MIN"), 300)),
		ShutdownGrace:    parseDuration(k.String("SHUTDOWN_GRACE"), "15s"),
		SweepInterval:    parseDuration(k.String("SWEEP_INTERVAL"), "5m"),
		OTLPEndpoint:     strings.TrimSpace(k.String("OTLP_ENDPOINT")),
		MetricsNamespace: valueOrDefault(k.String("METRICS_NAMESPACE"), "pricing"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.FloorPrice < 0 || cfg.FloorPriceMasterClass < 0 {
		return nil, errors.New("floor prices must not be negative")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
