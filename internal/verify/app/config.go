package app

import (
	"os"
	"strconv"
	"time"

	"github.com/trusteelab/vpass/internal/verify/service"
	"github.com/trusteelab/vpass/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim for signed assertions (default: vpass)

	DatabaseFile     string // Path to SQLite database file (default: ./vpass.db)
	PIIKeyFile       string // Path to the PII encryption key file (falls back to VPASS_PII_KEY, then ephemeral)
	AssertionKeyFile string // Path to the assertion signing key file (falls back to VPASS_ASSERTION_KEY, then ephemeral)
	ServiceToken     string // S2S credential for the identity endpoint; empty disables the endpoint

	SessionTTL    time.Duration // Session retention ceiling (default: 3m)
	SweepInterval time.Duration // Retention sweeper interval (default: 60s)
	AssertionTTL  time.Duration // Assertion lifetime (default: 1h)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer: getEnvOrDefault("VPASS_ISSUER", "vpass"),

		DatabaseFile:     getEnvOrDefault("VPASS_DATABASE_FILE", "vpass.db"),
		PIIKeyFile:       os.Getenv("VPASS_PII_KEY_FILE"),
		AssertionKeyFile: os.Getenv("VPASS_ASSERTION_KEY_FILE"),
		ServiceToken:     os.Getenv("VPASS_SERVICE_TOKEN"),

		SessionTTL:    getEnvDurationOrDefault("VPASS_SESSION_TTL", service.DefaultSessionTTL),
		SweepInterval: getEnvDurationOrDefault("VPASS_SWEEP_INTERVAL", service.DefaultSweepInterval),
		AssertionTTL:  getEnvDurationOrDefault("VPASS_ASSERTION_TTL", jwtx.DefaultAssertionTTL),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
