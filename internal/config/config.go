// Package config provides configuration management for the tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "equity-tracker/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Database    DatabaseConfig `mapstructure:"database"`
	Market      MarketConfig   `mapstructure:"market"`
	Refresh     RefreshConfig  `mapstructure:"refresh"`
	UI          UIConfig       `mapstructure:"ui"`
	Credentials Credentials    `mapstructure:"-"` // Loaded separately
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MarketConfig holds market data configuration.
type MarketConfig struct {
	StatusCacheTTL time.Duration `mapstructure:"status_cache_ttl"`
	BatchPacing    time.Duration `mapstructure:"batch_pacing"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RefreshConfig holds background price refresh configuration.
type RefreshConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"` // cron expression with seconds
	UserID   string `mapstructure:"user_id"`
}

// UIConfig holds output formatting configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	Alpaca AlpacaCredentials `mapstructure:"alpaca"`
}

// AlpacaCredentials holds Alpaca API credentials and endpoints.
type AlpacaCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	TradeURL  string `mapstructure:"trade_url"`
	DataURL   string `mapstructure:"data_url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/equity-tracker"
	}
	return filepath.Join(home, ".config", "equity-tracker")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("database.path", filepath.Join(configDir, "tracker.db"))
	v.SetDefault("market.status_cache_ttl", "5m")
	v.SetDefault("market.batch_pacing", "100ms")
	v.SetDefault("market.request_timeout", "10s")
	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.schedule", "0 */5 * * * *")
	v.SetDefault("refresh.user_id", "default")
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("alpaca.trade_url", "https://paper-api.alpaca.markets")
	v.SetDefault("alpaca.data_url", "https://data.alpaca.markets")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateCredentials(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Credentials.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Credentials.Alpaca.APISecret = v
	}
	if v := os.Getenv("TRACKER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "database.path must not be empty")
	}
	if c.Market.StatusCacheTTL < 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "market.status_cache_ttl must not be negative")
	}
	if c.Market.BatchPacing < 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "market.batch_pacing must not be negative")
	}
	if c.Refresh.Enabled && c.Refresh.Schedule == "" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "refresh.schedule required when refresh is enabled")
	}
	return nil
}

// HasAlpacaCredentials reports whether a live price source is configured.
func (c *Config) HasAlpacaCredentials() bool {
	return c.Credentials.Alpaca.APIKey != "" && c.Credentials.Alpaca.APISecret != ""
}
