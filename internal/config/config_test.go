package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polyfetch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"POLYGON_API_KEY", "POLYGON_BASE_URL", "DATA_DIR", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
polygon:
  api_key: "yaml-key"
  base_url: "http://localhost:8081"
  timeout: 30s
  max_attempts: 3
  backoff_base: 500ms
  soft_error_cooldown: 1m
  rate_limit_per_min: 5
storage:
  data_dir: "/tmp/polyfetch/data"
logging:
  level: "debug"
  format: "json"
gather:
  ticker_types: ["CS", "ETF"]
  include_delisted: true
  as_of: "2023-06-30"
  start_date: "2024-01-01"
  end_date: "2024-01-31"
  symbols: ["AAPL", "MSFT"]
  timeframe: minute
  multiplier: 5
  timezone: America/New_York
schedule:
  cron: "0 18 * * 1-5"
metrics:
  addr: ":9102"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Polygon --
	if cfg.Polygon.APIKey != "yaml-key" {
		t.Errorf("Polygon.APIKey = %q, want %q", cfg.Polygon.APIKey, "yaml-key")
	}
	if cfg.Polygon.BaseURL != "http://localhost:8081" {
		t.Errorf("Polygon.BaseURL = %q", cfg.Polygon.BaseURL)
	}
	if cfg.Polygon.Timeout != 30*time.Second {
		t.Errorf("Polygon.Timeout = %v, want 30s", cfg.Polygon.Timeout)
	}
	if cfg.Polygon.MaxAttempts != 3 {
		t.Errorf("Polygon.MaxAttempts = %d, want 3", cfg.Polygon.MaxAttempts)
	}
	if cfg.Polygon.BackoffBase != 500*time.Millisecond {
		t.Errorf("Polygon.BackoffBase = %v, want 500ms", cfg.Polygon.BackoffBase)
	}
	if cfg.Polygon.SoftErrorCooldown != time.Minute {
		t.Errorf("Polygon.SoftErrorCooldown = %v, want 1m", cfg.Polygon.SoftErrorCooldown)
	}
	if cfg.Polygon.RateLimitPerMin != 5 {
		t.Errorf("Polygon.RateLimitPerMin = %d, want 5", cfg.Polygon.RateLimitPerMin)
	}

	// -- Storage / Logging --
	if cfg.Storage.DataDir != "/tmp/polyfetch/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}

	// -- Gather --
	g := cfg.Gather
	if len(g.TickerTypes) != 2 || g.TickerTypes[1] != "ETF" {
		t.Errorf("Gather.TickerTypes = %v", g.TickerTypes)
	}
	if !g.IncludeDelisted {
		t.Error("Gather.IncludeDelisted = false, want true")
	}
	if g.AsOf != "2023-06-30" || g.StartDate != "2024-01-01" || g.EndDate != "2024-01-31" {
		t.Errorf("Gather dates = %q %q %q", g.AsOf, g.StartDate, g.EndDate)
	}
	if g.Timeframe != "minute" || g.Multiplier != 5 {
		t.Errorf("Gather bucket = %d %s", g.Multiplier, g.Timeframe)
	}
	loc, err := g.Location()
	if err != nil || loc.String() != "America/New_York" {
		t.Errorf("Gather.Location() = %v, %v", loc, err)
	}

	// -- Schedule / Metrics --
	if cfg.Schedule.Cron != "0 18 * * 1-5" {
		t.Errorf("Schedule.Cron = %q", cfg.Schedule.Cron)
	}
	if cfg.Metrics.Addr != ":9102" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Polygon.BaseURL != "https://api.polygon.io" {
		t.Errorf("Polygon.BaseURL = %q", cfg.Polygon.BaseURL)
	}
	if cfg.Polygon.Timeout != 15*time.Second || cfg.Polygon.MaxAttempts != 5 || cfg.Polygon.BackoffBase != time.Second {
		t.Errorf("Polygon retry policy = %+v", cfg.Polygon)
	}
	if cfg.Polygon.SoftErrorCooldown != 70*time.Second {
		t.Errorf("Polygon.SoftErrorCooldown = %v, want 70s", cfg.Polygon.SoftErrorCooldown)
	}
	if cfg.Storage.DataDir != "data" {
		t.Errorf("Storage.DataDir = %q, want data", cfg.Storage.DataDir)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Gather.Timeframe != "day" || cfg.Gather.Multiplier != 1 || cfg.Gather.Timezone != "UTC" {
		t.Errorf("Gather = %+v", cfg.Gather)
	}
	if !cfg.Gather.IncludeDelisted {
		t.Error("Gather.IncludeDelisted defaults to false, want true")
	}
	if cfg.Gather.StartDate != "2000-01-01" {
		t.Errorf("Gather.StartDate = %q, want 2000-01-01", cfg.Gather.StartDate)
	}
}

func TestLoadOverridesTrueDefault(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
gather:
  include_delisted: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Gather.IncludeDelisted {
		t.Error("include_delisted: false in the file was replaced by the default")
	}
	if cfg.Gather.StartDate != "2000-01-01" {
		t.Errorf("Gather.StartDate = %q, want default 2000-01-01", cfg.Gather.StartDate)
	}
}

func TestLoadMissingDefaultPath(t *testing.T) {
	clearEnv(t)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if _, err := Load(DefaultPath); err != nil {
		t.Errorf("Load(DefaultPath) without a file: %v", err)
	}
	if _, err := Load("elsewhere.yaml"); err == nil {
		t.Error("Load of a missing explicit path should fail")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
polygon:
  api_key: "yaml-key"
  base_url: "https://yaml.example.com"
storage:
  data_dir: "/original/data"
logging:
  level: "info"
`)

	t.Setenv("POLYGON_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("POLYGON_BASE_URL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Polygon.APIKey != "env-key" {
		t.Errorf("Polygon.APIKey = %q, want %q (env override)", cfg.Polygon.APIKey, "env-key")
	}
	// base_url should remain from YAML since no env override was set.
	if cfg.Polygon.BaseURL != "https://yaml.example.com" {
		t.Errorf("Polygon.BaseURL = %q, want %q (from YAML)", cfg.Polygon.BaseURL, "https://yaml.example.com")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn (env override)", cfg.Logging.Level)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"bad timeframe", "gather:\n  timeframe: fortnight\n", "Timeframe"},
		{"zero multiplier", "gather:\n  multiplier: 0\n", "Multiplier"},
		{"bad log format", "logging:\n  format: xml\n", "Format"},
		{"bad timezone", "gather:\n  timezone: Mars/Olympus\n", "Timezone"},
		{"zero attempts", "polygon:\n  max_attempts: 0\n", "MaxAttempts"},
		{"bad metrics addr", "metrics:\n  addr: nowhere\n", "Addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}
