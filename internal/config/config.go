package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the biom service.
// Environment variables are parsed from the BIOM_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP Configuration
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"3000"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	// Storage: postgres (default) or sqlite for local runs
	DBDriver     string        `envconfig:"DB_DRIVER" default:"postgres"`
	PostgresDSN  string        `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath   string        `envconfig:"SQLITE_PATH" default:"./data/biom.db"`
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`

	// Aggregation
	TimeZone          string `envconfig:"TIME_ZONE" default:"UTC"`
	DefaultWindowDays int    `envconfig:"DEFAULT_WINDOW_DAYS" default:"100"`

	// Chat relay
	OllamaURL string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	ChatModel string `envconfig:"CHAT_MODEL" default:"mybiom"`

	// Health and bootstrap
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"30"`

	location *time.Location
}

// ResolveDefaults validates the driver selection and loads the aggregation time zone.
func (c *Config) ResolveDefaults() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case "", "auto":
		c.DBDriver = "postgres"
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if c.TimeZone == "" {
		c.TimeZone = "UTC"
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err)
	}
	c.location = loc

	if c.DefaultWindowDays <= 0 {
		return fmt.Errorf("DEFAULT_WINDOW_DAYS must be positive, got %d", c.DefaultWindowDays)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: BIOM_POSTGRES_DSN, BIOM_HTTP_PORT
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("BIOM", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("time_zone", cfg.TimeZone).
		Dur("store_timeout", cfg.StoreTimeout).
		Int("default_window_days", cfg.DefaultWindowDays).
		Str("ollama_url", cfg.OllamaURL).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment:               EnvTesting,
		LogLevel:                  "debug",
		HTTPPort:                  3000,
		CORSOrigins:               "*",
		DBDriver:                  "sqlite",
		SQLitePath:                ":memory:",
		StoreTimeout:              5 * time.Second,
		TimeZone:                  "UTC",
		DefaultWindowDays:         100,
		OllamaURL:                 "http://localhost:11434",
		ChatModel:                 "mybiom",
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		BootstrapTimeoutSeconds:   5,
	}
	cfg.location = time.UTC
	return cfg
}

// Location returns the zone used to cut day buckets.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
