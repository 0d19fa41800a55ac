package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all process-level configuration. Admin-editable SMS settings
// (credentials, template, enabled flag) live in the settings store instead.
type Config struct {
	AppEnv           string
	LogLevel         string
	HTTPListenAddr   string
	MetricsNamespace string

	// Database: DATABASE_URL selects Postgres; otherwise SQLITE_PATH is used.
	DatabaseURL string
	SQLitePath  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	TwilioBaseURL string
	TwilioTimeout time.Duration

	// TriggerStatus is the order status transition that fires the automatic
	// SMS notification.
	TriggerStatus string

	// DedupEnabled guards the automatic trigger against duplicate sends for
	// the same order and status. Off by default.
	DedupEnabled bool
	DedupTTL     time.Duration
}

// Load reads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "sms_manager"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "sms-manager.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisTLS:      getEnvBool("REDIS_TLS", false),

		TwilioBaseURL: getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		TwilioTimeout: getEnvDuration("TWILIO_TIMEOUT", 10*time.Second),

		TriggerStatus: getEnv("SMS_TRIGGER_STATUS", "completed"),

		DedupEnabled: getEnvBool("DEDUP_ENABLED", false),
		DedupTTL:     getEnvDuration("DEDUP_TTL", 24*time.Hour),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		return fmt.Errorf("either DATABASE_URL or SQLITE_PATH must be set")
	}
	if c.TwilioBaseURL == "" {
		return fmt.Errorf("TWILIO_BASE_URL must not be empty")
	}
	if c.TwilioTimeout <= 0 {
		return fmt.Errorf("TWILIO_TIMEOUT must be > 0")
	}
	if c.TriggerStatus == "" {
		return fmt.Errorf("SMS_TRIGGER_STATUS must not be empty")
	}
	if c.DedupEnabled && c.DedupTTL <= 0 {
		return fmt.Errorf("DEDUP_TTL must be > 0 when DEDUP_ENABLED is set")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
