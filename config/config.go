package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the dashboard configuration
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Output   string         `yaml:"output" env:"DASHBOARD_OUTPUT"`
	Icons    IconsConfig    `yaml:"icons"`
	Status   StatusConfig   `yaml:"status"`
	Filters  FilterConfig   `yaml:"filters"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Telegram TelegramConfig `yaml:"telegram"`
	Sheets   SheetsConfig   `yaml:"sheets"`
}

// CatalogConfig points at the services CSV
type CatalogConfig struct {
	Path string `yaml:"path" env:"DASHBOARD_CATALOG"`
}

// IconsConfig controls how service icons are resolved and injected
type IconsConfig struct {
	// Source is a built-in icon source name ("fontawesome" or "simpleicons").
	Source string `yaml:"source" env:"DASHBOARD_ICON_SOURCE"`
	// BaseURL overrides the base address of Source when set.
	BaseURL       string        `yaml:"base_url" env:"DASHBOARD_ICON_BASE_URL"`
	MarkerClass   string        `yaml:"marker_class" env:"DASHBOARD_MARKER_CLASS"`
	FallbackIcon  string        `yaml:"fallback_icon" env:"DASHBOARD_FALLBACK_ICON"`
	Width         int           `yaml:"width"`
	MarginRight   int           `yaml:"margin_right"`
	Resolver      string        `yaml:"resolver" env:"DASHBOARD_ICON_RESOLVER"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout" env:"DASHBOARD_PROBE_TIMEOUT"`
	Concurrency   int           `yaml:"concurrency"`
	CacheTTL      time.Duration `yaml:"cache_ttl" env:"DASHBOARD_ICON_CACHE_TTL"`
	EscapeNames   bool          `yaml:"escape_names"`
	SkipDecorated bool          `yaml:"skip_decorated"`
}

// StatusConfig controls service reachability checks
type StatusConfig struct {
	Interval    time.Duration `yaml:"interval" env:"DASHBOARD_STATUS_INTERVAL"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// FilterConfig limits which categories end up on the dashboard
type FilterConfig struct {
	IncludeCategories []string `yaml:"include_categories"`
	ExcludeCategories []string `yaml:"exclude_categories"`
}

// DatabaseConfig selects the result store
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres". Empty disables persistence.
	Driver string `yaml:"driver" env:"DASHBOARD_DB_DRIVER"`
	DSN    string `yaml:"dsn" env:"DATABASE_URL"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr string `yaml:"addr" env:"DASHBOARD_ADDR"`
}

// TelegramConfig configures status change notifications
type TelegramConfig struct {
	Token  string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

// SheetsConfig configures the Google Sheets export
type SheetsConfig struct {
	SpreadsheetURL  string `yaml:"spreadsheet_url" env:"DASHBOARD_SPREADSHEET_URL"`
	CredentialsPath string `yaml:"credentials_path" env:"DASHBOARD_SHEETS_CREDENTIALS_PATH"`
}

// LoadConfig loads configuration from a YAML file on top of the defaults
// and applies environment overrides
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides configuration values from environment variables
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Catalog.Path = "/config/services.csv"
	cfg.Output = "dashboard.html"

	cfg.Icons.Source = "simpleicons"
	cfg.Icons.MarkerClass = "service"
	cfg.Icons.FallbackIcon = "/assets/default-icon.png"
	cfg.Icons.Width = 20
	cfg.Icons.MarginRight = 8
	cfg.Icons.Resolver = "http"
	cfg.Icons.ProbeTimeout = 10 * time.Second
	cfg.Icons.Concurrency = 8
	cfg.Icons.CacheTTL = 24 * time.Hour

	cfg.Status.Interval = 5 * time.Second
	cfg.Status.Timeout = 5 * time.Second
	cfg.Status.Concurrency = 8

	cfg.Server.Addr = ":8080"
	return cfg
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if c.Icons.Source == "" && c.Icons.BaseURL == "" {
		return fmt.Errorf("icons: either source or base_url must be set")
	}
	if strings.TrimSpace(c.Icons.MarkerClass) == "" {
		return fmt.Errorf("icons: marker_class must not be empty")
	}
	switch c.Icons.Resolver {
	case "http", "browser":
	default:
		return fmt.Errorf("icons: unknown resolver %q (want http or browser)", c.Icons.Resolver)
	}
	if c.Icons.Concurrency < 1 {
		return fmt.Errorf("icons: concurrency must be at least 1")
	}
	if c.Status.Interval <= 0 {
		return fmt.Errorf("status: interval must be positive")
	}
	switch c.Database.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	return nil
}
