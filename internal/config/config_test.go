package config

import (
	"strings"
	"testing"
	"time"
)

// env returns a LookupFunc over a fixed map.
func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{"DATABASE_URL": "postgres://localhost/test"}), true)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Import.BatchSize != 100 {
		t.Errorf("Import.BatchSize = %d, want %d", cfg.Import.BatchSize, 100)
	}
	if !cfg.Import.StrictBooleans {
		t.Error("Import.StrictBooleans = false, want true")
	}
	if cfg.Import.ExampleRows != 3 {
		t.Errorf("Import.ExampleRows = %d, want %d", cfg.Import.ExampleRows, 3)
	}
	if cfg.Cache.Enabled() {
		t.Error("Cache.Enabled() = true without REDIS_URL")
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"DATABASE_URL":             "postgres://localhost/test",
		"SERVER_PORT":              "9090",
		"IMPORT_BATCH_SIZE":        "250",
		"IMPORT_STRICT_BOOLEANS":   "false",
		"IMPORT_AUTO_COMBINATIONS": "true",
		"IMPORT_MAX_WAIT_TIME":     "1m30s",
		"REDIS_URL":                "redis://localhost:6379/0",
		"LOG_LEVEL":                "debug",
	}), true)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Import.BatchSize != 250 {
		t.Errorf("Import.BatchSize = %d, want %d", cfg.Import.BatchSize, 250)
	}
	if cfg.Import.StrictBooleans {
		t.Error("Import.StrictBooleans = true, want false")
	}
	if !cfg.Import.AutoCombinations {
		t.Error("Import.AutoCombinations = false, want true")
	}
	if cfg.Import.MaxWaitTime != 90*time.Second {
		t.Errorf("Import.MaxWaitTime = %v, want %v", cfg.Import.MaxWaitTime, 90*time.Second)
	}
	if !cfg.Cache.Enabled() {
		t.Error("Cache.Enabled() = false with REDIS_URL set")
	}
}

func TestLoadFrom_StringLists(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"DATABASE_URL":    "postgres://localhost/test",
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "alpha, beta,,",
		"TRUSTED_PROXIES": "10.0.0.0/8",
	}), true)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[1] != "beta" {
		t.Errorf("Security.APIKeys = %v, want [alpha beta]", cfg.Security.APIKeys)
	}
	if len(cfg.Security.TrustedProxies) != 1 {
		t.Errorf("Security.TrustedProxies = %v, want one entry", cfg.Security.TrustedProxies)
	}
}

func TestLoadFrom_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{"DB_URL": "postgres://localhost/alttest"}), true)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/alttest" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "postgres://localhost/alttest")
	}
}

func TestLoadFrom_MissingRequired(t *testing.T) {
	if _, err := LoadFrom(env(nil), true); err == nil {
		t.Fatal("LoadFrom() expected error for missing DATABASE_URL")
	}
}

func TestLoadFrom_OfflineSkipsDatabase(t *testing.T) {
	cfg, err := LoadFrom(env(nil), false)
	if err != nil {
		t.Fatalf("LoadFrom(offline) error = %v", err)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Database.URL = %q, want empty", cfg.Database.URL)
	}
}

func TestLoadFrom_CollectsAllErrors(t *testing.T) {
	_, err := LoadFrom(env(map[string]string{
		"DATABASE_URL":      "postgres://localhost/test",
		"SERVER_PORT":       "eighty",
		"IMPORT_BATCH_SIZE": "many",
	}), true)
	if err == nil {
		t.Fatal("LoadFrom() expected error")
	}
	for _, name := range []string{"SERVER_PORT", "IMPORT_BATCH_SIZE"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s: %v", name, err)
		}
	}
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: time.Second, ReportRetention: time.Hour},
		Database: DatabaseConfig{URL: "postgres://localhost/test", MaxConns: 10, MinConns: 2},
		Import: ImportConfig{
			BatchSize: 100, MaxBatchSize: 1000, MaxFileSize: 1, MaxConcurrent: 1,
			MaxWaitTime: time.Second, Timeout: time.Minute, ExampleRows: 3,
		},
		Cache:   CacheConfig{TTL: time.Minute},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 99999 }, wantErr: "SERVER_PORT"},
		{name: "max conns below min", mutate: func(c *Config) { c.Database.MaxConns = 1 }, wantErr: "DB_MAX_CONNS"},
		{name: "batch above max", mutate: func(c *Config) { c.Import.BatchSize = 5000 }, wantErr: "IMPORT_MAX_BATCH_SIZE"},
		{name: "zero batch", mutate: func(c *Config) { c.Import.BatchSize = 0 }, wantErr: "IMPORT_BATCH_SIZE"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "LOG_LEVEL"},
		{name: "api key required without keys", mutate: func(c *Config) { c.Security.RequireAPIKey = true }, wantErr: "API_KEYS"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %s: %v", tt.wantErr, err)
			}
		})
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.RedisURL = "redis://:secret@localhost:6379"

	s := cfg.String()
	if strings.Contains(s, "postgres://") || strings.Contains(s, "secret") {
		t.Errorf("String() leaks credentials: %s", s)
	}
}

func TestServerAddr(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := c.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:8080")
	}
}
