// Package config provides configuration management for the tradesim client.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/spf13/viper"

	apperrors "tradesim/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Display DisplayConfig `mapstructure:"display"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Dir is the directory the config was loaded from.
	Dir string `mapstructure:"-"`
}

// APIConfig holds trading API settings.
type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"` // 0 disables throttling
}

// SessionConfig holds session persistence settings.
type SessionConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// DisplayConfig holds terminal output settings.
type DisplayConfig struct {
	Currency     string `mapstructure:"currency"`
	ColorEnabled bool   `mapstructure:"color_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradesim"
	}
	return filepath.Join(home, ".config", "tradesim")
}

// ConfigPath returns the path of the config file inside configDir.
func ConfigPath(configDir string) string {
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config file is replaced by a template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{Dir: configDir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.requests_per_second", 0)

	v.SetDefault("session.db_path", filepath.Join(configDir, "session.db"))

	v.SetDefault("display.currency", money.USD)
	v.SetDefault("display.color_enabled", true)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "tradesim.log"))
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TRADESIM_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("TRADESIM_API_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "TRADESIM_API_TIMEOUT=%q", v)
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv("TRADESIM_SESSION_DB"); v != "" {
		cfg.Session.DBPath = v
	}
	if v := os.Getenv("TRADESIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "api.timeout must be positive")
	}
	if c.API.RequestsPerSecond < 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "api.requests_per_second must be non-negative")
	}
	if c.Session.DBPath == "" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "session.db_path is required")
	}
	if money.GetCurrency(strings.ToUpper(c.Display.Currency)) == nil {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "unknown display.currency %q", c.Display.Currency)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "disabled":
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "invalid logging.level: %s (must be debug, info, warn, error or disabled)", c.Logging.Level)
	}

	return nil
}
