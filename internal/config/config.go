package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	DatabaseURL string
	ServiceName string

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Sliding-window-with-lockout knobs, one set per ledger instance.
	LoginWindow       time.Duration
	LoginMaxAttempts  int
	LoginLockDuration time.Duration

	SubmitIPWindow       time.Duration
	SubmitIPMaxAttempts  int
	SubmitIPLockDuration time.Duration

	SubmitEmailWindow       time.Duration
	SubmitEmailMaxAttempts  int
	SubmitEmailLockDuration time.Duration

	// LedgerSweepInterval is independent of the window sizes.
	LedgerSweepInterval time.Duration

	// RateLimitBypass disables all ledgers. Single switch, set only by
	// integration tests and ops tooling.
	RateLimitBypass bool

	TelemetryEndpoint string
	TelemetryInsecure bool

	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServiceName: getEnv("SERVICE_NAME", "coupongen"),

		SessionTTL:           getDuration("SESSION_TTL", 12*time.Hour),
		SessionSweepInterval: getDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		LoginWindow:       getDuration("LOGIN_RATE_WINDOW", 10*time.Minute),
		LoginMaxAttempts:  getInt("LOGIN_RATE_MAX", 10),
		LoginLockDuration: getDuration("LOGIN_RATE_LOCK", 30*time.Minute),

		SubmitIPWindow:       getDuration("SUBMIT_IP_RATE_WINDOW", 10*time.Minute),
		SubmitIPMaxAttempts:  getInt("SUBMIT_IP_RATE_MAX", 20),
		SubmitIPLockDuration: getDuration("SUBMIT_IP_RATE_LOCK", 30*time.Minute),

		SubmitEmailWindow:       getDuration("SUBMIT_EMAIL_RATE_WINDOW", 24*time.Hour),
		SubmitEmailMaxAttempts:  getInt("SUBMIT_EMAIL_RATE_MAX", 3),
		SubmitEmailLockDuration: getDuration("SUBMIT_EMAIL_RATE_LOCK", 24*time.Hour),

		LedgerSweepInterval: getDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		RateLimitBypass:     getBool("RATE_LIMIT_BYPASS", false),

		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-CSRF-Token"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
