// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/splitledger/internal/settlement"
)

type Config struct {
	// HTTP Server
	Port        string
	CORSOrigins []string

	// Storage
	Storage string
	DBPath  string

	// Ledger
	OverpaymentPolicy    string
	VerifyWrites         bool
	ReconcileInterval    time.Duration
	ReconcileConcurrency int

	// AMQP intake; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// Failed messages wait AMQPRetryDelay in a retry queue and are
	// dead-lettered on their AMQPMaxAttempts-th failure.
	AMQPMaxAttempts int
	AMQPRetryDelay  time.Duration

	// Auth; disabled when JWTSecret is empty
	JWTSecret     string
	TokenDuration time.Duration
	AuthOptional  bool

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment variables
// take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		Storage: getEnv("STORAGE", "sqlite"),
		DBPath:  getEnv("DB_PATH", "./data/ledger.db"),

		OverpaymentPolicy:    getEnv("OVERPAYMENT_POLICY", string(settlement.RejectOverpayment)),
		VerifyWrites:         getEnvBool("VERIFY_WRITES", false),
		ReconcileInterval:    getEnvDuration("RECONCILE_INTERVAL", 0),
		ReconcileConcurrency: getEnvInt("RECONCILE_CONCURRENCY", 4),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "splitledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		AMQPMaxAttempts: getEnvInt("AMQP_MAX_ATTEMPTS", 12),
		AMQPRetryDelay:  getEnvDuration("AMQP_RETRY_DELAY", 5*time.Second),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenDuration: getEnvDuration("TOKEN_DURATION", 24*time.Hour),
		AuthOptional:  getEnvBool("AUTH_OPTIONAL", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validStorage := []string{"memory", "sqlite"}
	if !slices.Contains(validStorage, c.Storage) {
		errors = append(errors, fmt.Sprintf("invalid storage '%s': must be one of %v", c.Storage, validStorage))
	}
	if c.Storage == "sqlite" && c.DBPath == "" {
		errors = append(errors, "database path cannot be empty when using sqlite storage")
	}

	if _, err := settlement.ParsePolicy(c.OverpaymentPolicy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid overpayment policy '%s': must be 'reject' or 'allow'", c.OverpaymentPolicy))
	}

	if c.ReconcileInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must not be negative", c.ReconcileInterval))
	} else if c.ReconcileInterval > 0 && c.ReconcileInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 second", c.ReconcileInterval))
	}
	if c.ReconcileConcurrency < 1 || c.ReconcileConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid reconcile concurrency %d: must be between 1 and 64", c.ReconcileConcurrency))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPMaxAttempts < 1 {
			errors = append(errors, fmt.Sprintf("invalid AMQP max attempts %d: must be at least 1", c.AMQPMaxAttempts))
		}
		if c.AMQPRetryDelay < time.Millisecond {
			errors = append(errors, fmt.Sprintf("invalid AMQP retry delay %v: must be at least 1ms", c.AMQPRetryDelay))
		}
	}

	if c.JWTSecret != "" && c.TokenDuration <= 0 {
		errors = append(errors, fmt.Sprintf("invalid token duration %v: must be positive", c.TokenDuration))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// AuthEnabled reports whether bearer tokens are checked. With AuthOptional
// anonymous calls are still accepted.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// AMQPEnabled reports whether the event consumer should run.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
