// Package config provides centralized configuration. Shared by both cmd/api
// and cmd/rosterctl.
//
// Values are layered, lowest precedence first:
//  1. defaults (Defaults)
//  2. YAML file named by ROSTERDEX_CONFIG, if set
//  3. environment variables with the ROSTERDEX_ prefix
//
// The bare DATABASE_URL and PORT variables are honoured when the prefixed
// ones are unset, so the service runs unchanged on common PaaS hosts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "ROSTERDEX_"
	envCfgFile = "ROSTERDEX_CONFIG"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrInvalidConfig is returned when the layered configuration fails
// validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// --------------------------------------------------------------------------
// Config struct
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseDriver string        `koanf:"db_driver"`
	DatabaseURL    string        `koanf:"database_url"`
	SQLitePath     string        `koanf:"sqlite_path"`
	DBPoolMinConns int           `koanf:"db_pool_min_conns"`
	DBPoolMaxConns int           `koanf:"db_pool_max_conns"`
	DBPoolMaxLife  time.Duration `koanf:"db_pool_max_life"`
	AutoMigrate    bool          `koanf:"auto_migrate"`

	// Database liveness probe; a zero interval disables it
	DBProbeInterval time.Duration `koanf:"db_probe_interval"`
	DBProbeTimeout  time.Duration `koanf:"db_probe_timeout"`

	// API server
	APIHost         string        `koanf:"api_host"`
	APIPort         int           `koanf:"api_port"`
	Environment     string        `koanf:"environment"` // development, staging, production
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Logging
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"` // text, json

	// CORS, comma separated
	CORSAllowOrigins string `koanf:"cors_allow_origins"`

	// Rate limiting
	RateLimitEnabled  bool          `koanf:"rate_limit_enabled"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	// Species catalog
	CatalogBaseURL           string        `koanf:"catalog_base_url"`
	CatalogRequestsPerMinute int           `koanf:"catalog_requests_per_minute"`
	CatalogTimeout           time.Duration `koanf:"catalog_timeout"`
	CatalogPageSize          int           `koanf:"catalog_page_size"`
	CatalogConcurrency       int           `koanf:"catalog_concurrency"`
	CatalogMaxGeneration     int           `koanf:"catalog_max_generation"`

	// Sessions
	SessionIdleTimeout   time.Duration `koanf:"session_idle_timeout"`
	SessionSweepInterval time.Duration `koanf:"session_sweep_interval"`

	// Owner tokens
	JWTSecret string        `koanf:"jwt_secret"`
	JWTIssuer string        `koanf:"jwt_issuer"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	// Export to S3-compatible storage
	ExportBucket    string `koanf:"export_bucket"`
	ExportPrefix    string `koanf:"export_prefix"`
	ExportRegion    string `koanf:"export_region"`
	ExportEndpoint  string `koanf:"export_endpoint"`
	ExportPathStyle bool   `koanf:"export_path_style"`
	ExportAccessKey string `koanf:"export_access_key"`
	ExportSecretKey string `koanf:"export_secret_key"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		DatabaseDriver: DriverPostgres,
		SQLitePath:     "rosterdex.db",
		DBPoolMinConns: 2,
		DBPoolMaxConns: 10,
		DBPoolMaxLife:  30 * time.Minute,
		AutoMigrate:    true,

		DBProbeInterval: time.Minute,
		DBProbeTimeout:  5 * time.Second,

		APIHost:         "0.0.0.0",
		APIPort:         8000,
		Environment:     "development",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		LogLevel:  "info",
		LogFormat: "text",

		CORSAllowOrigins: "http://localhost:3000,http://localhost:5173",

		RateLimitEnabled:  true,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,

		CatalogBaseURL:           "https://pokeapi.co/api/v2",
		CatalogRequestsPerMinute: 300,
		CatalogTimeout:           15 * time.Second,
		CatalogPageSize:          200,
		CatalogConcurrency:       4,
		CatalogMaxGeneration:     32,

		SessionIdleTimeout:   30 * time.Minute,
		SessionSweepInterval: time.Minute,

		JWTIssuer: "rosterdex",
		TokenTTL:  24 * time.Hour,

		ExportPrefix: "rosters",
		ExportRegion: "us-east-1",
	}
}

// Load builds a Config by layering defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	cfg := Defaults()
	k := koanf.New(".")

	if path := os.Getenv(envCfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// ROSTERDEX_API_PORT -> api_port. Underscores are kept to match the flat
	// koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if !k.Exists("database_url") {
		cfg.DatabaseURL = envOr("DATABASE_URL", cfg.DatabaseURL)
	}
	if !k.Exists("api_port") {
		cfg.APIPort = envInt("PORT", cfg.APIPort)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var problems []string

	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "database_url (or DATABASE_URL) must be set for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "sqlite_path must be set for the sqlite driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("db_driver %q must be %q or %q", c.DatabaseDriver, DriverPostgres, DriverSQLite))
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		problems = append(problems, fmt.Sprintf("api_port %d out of range", c.APIPort))
	}
	if c.CatalogConcurrency < 1 {
		problems = append(problems, "catalog_concurrency must be at least 1")
	}
	if c.CatalogMaxGeneration < 1 {
		problems = append(problems, "catalog_max_generation must be at least 1")
	}
	if c.DBProbeInterval > 0 && c.DBProbeTimeout <= 0 {
		problems = append(problems, "db_probe_timeout must be positive when the probe is enabled")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		problems = append(problems, "jwt_secret must be set in production")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Addr returns the listen address of the API server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// CORSOrigins splits CORSAllowOrigins into a list.
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowOrigins)
}

// SigningSecret returns the JWT secret, falling back to a fixed development
// secret outside production.
func (c *Config) SigningSecret() []byte {
	if c.JWTSecret == "" {
		return []byte("rosterdex-development-secret")
	}
	return []byte(c.JWTSecret)
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
