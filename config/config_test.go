package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "service", cfg.Icons.MarkerClass)
	assert.Equal(t, "/assets/default-icon.png", cfg.Icons.FallbackIcon)
	assert.Equal(t, 20, cfg.Icons.Width)
	assert.Equal(t, 8, cfg.Icons.MarginRight)
	assert.Equal(t, 5*time.Second, cfg.Status.Interval)
	assert.False(t, cfg.Icons.SkipDecorated)
	assert.False(t, cfg.Icons.EscapeNames)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
catalog:
  path: ./services.csv
icons:
  source: fontawesome
  probe_timeout: 3s
  skip_decorated: true
status:
  interval: 1m
filters:
  exclude_categories: [Media]
database:
  driver: sqlite
  dsn: dashboard.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./services.csv", cfg.Catalog.Path)
	assert.Equal(t, "fontawesome", cfg.Icons.Source)
	assert.Equal(t, 3*time.Second, cfg.Icons.ProbeTimeout)
	assert.True(t, cfg.Icons.SkipDecorated)
	assert.Equal(t, time.Minute, cfg.Status.Interval)
	assert.Equal(t, []string{"Media"}, cfg.Filters.ExcludeCategories)
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	// values missing from the file keep their defaults
	assert.Equal(t, "service", cfg.Icons.MarkerClass)
	assert.Equal(t, 8, cfg.Icons.Concurrency)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "icons:\n  source: fontawesome\n")
	t.Setenv("DASHBOARD_ICON_SOURCE", "simpleicons")
	t.Setenv("DATABASE_URL", "postgres://localhost/dashboard")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "simpleicons", cfg.Icons.Source)
	assert.Equal(t, "postgres://localhost/dashboard", cfg.Database.DSN)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadConfig(writeConfig(t, "icons: [not, a, map"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no source", func(c *Config) { c.Icons.Source = "" }, "either source or base_url"},
		{"base url only", func(c *Config) { c.Icons.Source = ""; c.Icons.BaseURL = "https://icons.example/" }, ""},
		{"blank marker", func(c *Config) { c.Icons.MarkerClass = "  " }, "marker_class"},
		{"bad resolver", func(c *Config) { c.Icons.Resolver = "carrier-pigeon" }, "unknown resolver"},
		{"zero concurrency", func(c *Config) { c.Icons.Concurrency = 0 }, "concurrency"},
		{"zero interval", func(c *Config) { c.Status.Interval = 0 }, "interval"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "unknown driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
