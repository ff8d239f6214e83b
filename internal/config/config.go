package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Data provider (PostgREST-compatible backend)
	ProviderURL    string
	ProviderAPIKey string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries          int
	InitialBackoff      time.Duration
	MaxBackoff          time.Duration
	MaxConcurrency      int
	BreakerMinRequests  int
	BreakerFailureRatio float64

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration
	BcryptCost   int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ProviderURL:    getEnv("PROVIDER_URL", ""),
		ProviderAPIKey: getEnv("PROVIDER_API_KEY", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:          getEnvInt("MAX_RETRIES", 3),
		InitialBackoff:      getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxBackoff:          getEnvDuration("MAX_BACKOFF", 5*time.Second),
		MaxConcurrency:      getEnvInt("MAX_CONCURRENCY", 50),
		BreakerMinRequests:  getEnvInt("BREAKER_MIN_REQUESTS", 5),
		BreakerFailureRatio: getEnvFloat("BREAKER_FAILURE_RATIO", 0.6),

		CacheTTL: getEnvDuration("CACHE_TTL", 30*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret:    getEnv("JWT_SECRET", "finance-core-dev-secret-change-me"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 24*time.Hour),
		BcryptCost:   getEnvInt("BCRYPT_COST", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
