package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves one environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment and validates it.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv, true)
}

// LoadOffline loads configuration for tools that run without a database:
// required variables may be missing and database settings are not checked.
func LoadOffline() (*Config, error) {
	return LoadFrom(os.LookupEnv, false)
}

// LoadFrom reads configuration through lookup. With needDatabase false,
// missing required variables are tolerated.
func LoadFrom(lookup LookupFunc, needDatabase bool) (*Config, error) {
	cfg := &Config{}

	l := loader{lookup: lookup, enforceRequired: needDatabase}
	l.loadStruct(reflect.ValueOf(cfg).Elem())
	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.validate(needDatabase); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

type loader struct {
	lookup          LookupFunc
	enforceRequired bool
	errs            []error
}

// loadStruct populates tagged fields, recursing into nested structs. Errors
// are collected so one run reports every bad variable.
func (l *loader) loadStruct(v reflect.Value) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			l.loadStruct(fieldVal)
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, ok := l.get(envName)
		if !ok {
			if alt := field.Tag.Get("envAlt"); alt != "" {
				value, ok = l.get(alt)
			}
		}
		if !ok {
			if field.Tag.Get("required") == "true" && l.enforceRequired {
				l.errs = append(l.errs, fmt.Errorf("required environment variable %s is not set", envName))
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			l.errs = append(l.errs, fmt.Errorf("invalid value for %s=%q: %w", envName, value, err))
		}
	}
}

// get treats empty variables as unset.
func (l *loader) get(key string) (string, bool) {
	v, ok := l.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// setField parses value into the field's type.
func setField(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate checks the full configuration, database included.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(needDatabase bool) error {
	var errs []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(format, args...))
		}
	}

	if needDatabase {
		check(c.Database.URL != "", "DATABASE_URL is required")
		check(c.Database.MaxConns > 0, "DB_MAX_CONNS must be positive")
		check(c.Database.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
		check(c.Database.MaxConns >= c.Database.MinConns,
			"DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	check(c.Server.Port > 0 && c.Server.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	check(c.Server.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	check(c.Server.ReportRetention > 0, "SERVER_REPORT_RETENTION must be positive")

	check(c.Import.BatchSize > 0, "IMPORT_BATCH_SIZE must be positive")
	check(c.Import.MaxBatchSize >= c.Import.BatchSize,
		"IMPORT_MAX_BATCH_SIZE (%d) must be >= IMPORT_BATCH_SIZE (%d)", c.Import.MaxBatchSize, c.Import.BatchSize)
	check(c.Import.MaxFileSize > 0, "IMPORT_MAX_FILE_SIZE must be positive")
	check(c.Import.MaxConcurrent > 0, "IMPORT_MAX_CONCURRENT must be positive")
	check(c.Import.MaxWaitTime > 0, "IMPORT_MAX_WAIT_TIME must be positive")
	check(c.Import.Timeout > 0, "IMPORT_TIMEOUT must be positive")
	check(c.Import.ExampleRows >= 0, "IMPORT_EXAMPLE_ROWS must be non-negative")

	check(c.Cache.TTL > 0, "CACHE_TTL must be positive")
	check(!c.Security.RequireAPIKey || len(c.Security.APIKeys) > 0,
		"API_KEYS must be set when REQUIRE_API_KEY is true")

	level := strings.ToLower(c.Logging.Level)
	check(level == "debug" || level == "info" || level == "warn" || level == "error",
		"LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	format := strings.ToLower(c.Logging.Format)
	check(format == "text" || format == "json", "LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns the configuration for logging with the database URL and
// Redis URL masked.
func (c *Config) String() string {
	redisURL := ""
	if c.Cache.Enabled() {
		redisURL = "[MASKED]"
	}
	return fmt.Sprintf("Config{Server: {Addr: %q}, Database: {URL: [MASKED], MaxConns: %d}, "+
		"Import: {BatchSize: %d, MaxConcurrent: %d, StrictBooleans: %v}, Cache: {RedisURL: %q, TTL: %s}, "+
		"Security: {RequireAPIKey: %v, APIKeys: %d configured}, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Database.MaxConns,
		c.Import.BatchSize, c.Import.MaxConcurrent, c.Import.StrictBooleans,
		redisURL, c.Cache.TTL,
		c.Security.RequireAPIKey, len(c.Security.APIKeys),
		c.Logging.Level, c.Logging.Format)
}
