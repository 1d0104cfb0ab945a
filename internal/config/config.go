package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when POLYFETCH_CONFIG is unset.
const DefaultPath = "config/polyfetch.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for polyfetch.
type Config struct {
	Polygon  Polygon  `yaml:"polygon"`
	Storage  Storage  `yaml:"storage"`
	Logging  Logging  `yaml:"logging"`
	Gather   Gather   `yaml:"gather"`
	Schedule Schedule `yaml:"schedule"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Polygon holds credentials and the request policy for the Polygon REST API.
// The API key is not checked here; a missing key surfaces as a provider
// authorization error.
type Polygon struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url" default:"https://api.polygon.io" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout" default:"15s" validate:"gt=0"`
	MaxAttempts       int           `yaml:"max_attempts" default:"5" validate:"gte=1"`
	BackoffBase       time.Duration `yaml:"backoff_base" default:"1s" validate:"gte=0"`
	SoftErrorCooldown time.Duration `yaml:"soft_error_cooldown" default:"70s" validate:"gte=0"`
	RateLimitPerMin   int           `yaml:"rate_limit_per_min" validate:"gte=0"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir string `yaml:"data_dir" default:"data" validate:"required"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

// Gather holds the parameters of the ticker and OHLC jobs. Dates are
// ISO-8601 strings interpreted in Timezone.
type Gather struct {
	TickerTypes     []string `yaml:"ticker_types"`
	IncludeDelisted bool     `yaml:"include_delisted" default:"true"`
	AsOf            string   `yaml:"as_of"`
	StartDate       string   `yaml:"start_date" default:"2000-01-01"`
	EndDate         string   `yaml:"end_date"`
	Symbols         []string `yaml:"symbols"`
	Timeframe       string   `yaml:"timeframe" default:"day" validate:"oneof=second minute hour day week month quarter year"`
	Multiplier      int      `yaml:"multiplier" default:"1" validate:"gte=1"`
	Timezone        string   `yaml:"timezone" default:"UTC" validate:"required,timezone"`
}

// Location loads the configured timezone.
func (g Gather) Location() (*time.Location, error) {
	return time.LoadLocation(g.Timezone)
}

// Schedule configures repeated runs. An empty Cron runs once.
type Schedule struct {
	Cron string `yaml:"cron"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

var validate = validator.New()

// Path returns the config file location from POLYFETCH_CONFIG, or
// DefaultPath.
func Path() string {
	if v := os.Getenv("POLYFETCH_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load applies struct defaults, reads the YAML configuration file at the
// given path over them, then applies environment variable overrides and
// validates the result. An empty path, or a missing file at DefaultPath,
// loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Polygon.APIKey = v
	}

	if v := os.Getenv("POLYGON_BASE_URL"); v != "" {
		cfg.Polygon.BaseURL = v
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
