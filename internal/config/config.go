// Package config loads the importer configuration from environment variables.
// Every field declares its variable, an optional fallback variable and a
// default in struct tags; Validate reports all problems at once.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Cache    CacheConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// ReportRetention is how long error reports stay downloadable.
	ReportRetention time.Duration `env:"SERVER_REPORT_RETENTION" default:"1h"`
}

// DatabaseConfig holds PostgreSQL pool settings.
type DatabaseConfig struct {
	// URL supports DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// EnsureSchema creates missing catalog tables at startup.
	EnsureSchema bool `env:"DB_ENSURE_SCHEMA" default:"false"`
}

// ImportConfig holds pipeline settings.
type ImportConfig struct {
	// BatchSize is the number of rows per transaction.
	BatchSize    int `env:"IMPORT_BATCH_SIZE" default:"100"`
	MaxBatchSize int `env:"IMPORT_MAX_BATCH_SIZE" default:"1000"`

	// MaxFileSize is the upload limit in bytes (default 20MB).
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`

	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" default:"3"`
	MaxWaitTime   time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`
	Timeout       time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`

	// AutoCombinations expands multi-valued attribute cells by default.
	AutoCombinations bool `env:"IMPORT_AUTO_COMBINATIONS" default:"false"`

	// StrictBooleans reports unknown yes/no tokens instead of reading false.
	StrictBooleans bool `env:"IMPORT_STRICT_BOOLEANS" default:"true"`

	ExampleRows int `env:"IMPORT_EXAMPLE_ROWS" default:"3"`
}

// CacheConfig holds the optional Redis schema cache.
type CacheConfig struct {
	// RedisURL enables the cache when set (redis://host:6379/0).
	RedisURL string        `env:"REDIS_URL" envAlt:"CACHE_REDIS_URL"`
	TTL      time.Duration `env:"CACHE_TTL" default:"5m"`
	Prefix   string        `env:"CACHE_PREFIX" default:"catalog"`
}

// Enabled reports whether a Redis URL is configured.
func (c CacheConfig) Enabled() bool { return c.RedisURL != "" }

// SecurityConfig holds HTTP access settings.
type SecurityConfig struct {
	// RequireAPIKey enables X-API-Key checks on /api routes.
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys.
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers
	// are honored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
