// Package config loads the server configuration from the environment.
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
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Transports
	GRPCAddr string
	HTTPAddr string
	HTTPMode string
	APIToken string

	// CORSAllowedOrigins is empty to allow every origin.
	CORSAllowedOrigins []string

	// Storage
	DataBackend  string
	DBConnStr    string
	SQLiteDBPath string

	// Write lock
	LockBackend  string
	RedisAddress string
	RedisPass    string
	LockTTL      time.Duration // expiry of the redis lock; refreshed while held

	// Events
	AMQPURL      string
	AMQPExchange string

	// Logging
	LogLevel  string
	LogFormat string

	// Reports
	Timezone          string
	ReportStrict      bool
	ReportConcurrency int

	SeedFile string
}

// Load reads an optional .env file and then the environment
func Load() *Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	return &Config{
		GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8081"),
		HTTPMode: getEnv("HTTP_MODE", "release"),
		APIToken: getEnv("API_TOKEN", "dev-token"),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		DBConnStr:    dbConnStr(),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		LockBackend:  getEnv("LOCK_BACKEND", "local"),
		RedisAddress: getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPass:    getEnv("REDIS_PASSWORD", ""),
		LockTTL:      getEnvDuration("LOCK_TTL", 30*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger.events"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Timezone:          getEnv("LEDGER_TIMEZONE", "UTC"),
		ReportStrict:      getEnvBool("REPORT_STRICT", false),
		ReportConcurrency: getEnvInt("REPORT_CONCURRENCY", 4),

		SeedFile: getEnv("SEED_FILE", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.GRPCAddr == "" {
		errors = append(errors, "gRPC address cannot be empty")
	}
	if c.HTTPAddr == "" {
		errors = append(errors, "HTTP address cannot be empty")
	}
	if c.GRPCAddr != "" && c.GRPCAddr == c.HTTPAddr {
		errors = append(errors, fmt.Sprintf("gRPC and HTTP cannot share address %s", c.GRPCAddr))
	}
	if !slices.Contains([]string{"debug", "release", "test"}, c.HTTPMode) {
		errors = append(errors, fmt.Sprintf("invalid HTTP mode '%s': must be one of debug, release, test", c.HTTPMode))
	}
	if c.APIToken == "" {
		errors = append(errors, "API token cannot be empty")
	}

	validBackends := []string{"memory", "postgres", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "postgres" && c.DBConnStr == "" {
		errors = append(errors, "DB_CONN_STR or DB_HOST/DB_NAME is required when using postgres backend")
	}
	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	switch c.LockBackend {
	case "local":
	case "redis":
		if c.RedisAddress == "" {
			errors = append(errors, "REDIS_ADDRESS is required when using redis lock backend")
		}
		if c.LockTTL < time.Second {
			errors = append(errors, fmt.Sprintf("invalid lock TTL %v: must be at least 1 second", c.LockTTL))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid lock backend '%s': must be local or redis", c.LockBackend))
	}
	if c.LockBackend == "redis" && c.DataBackend == "memory" {
		errors = append(errors, "redis lock backend requires a shared data backend (postgres or sqlite)")
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
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be json or text", c.LogFormat))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if c.ReportConcurrency < 1 || c.ReportConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid report concurrency %d: must be between 1 and 64", c.ReportConcurrency))
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("seed file is not readable: %v", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Location returns the configured ledger timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// dbConnStr prefers DB_CONN_STR and otherwise assembles a DSN from the DB_* keys
func dbConnStr() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		name,
		getEnv("DB_SSLMODE", "disable"),
	)
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func splitAndTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
