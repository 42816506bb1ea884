// Package config loads the bot's configuration from TOML files and
// TRIAGE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/bugcrowd-triage/internal/classifier"
	"github.com/JaimeStill/bugcrowd-triage/internal/tracker"
	"github.com/JaimeStill/bugcrowd-triage/pkg/database"
	"github.com/JaimeStill/bugcrowd-triage/pkg/pagination"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvTriageEnv             = "TRIAGE_ENV"
	EnvTriageInterval        = "TRIAGE_INTERVAL"
	EnvTriageShutdownTimeout = "TRIAGE_SHUTDOWN_TIMEOUT"
	EnvTriageLogLevel        = "TRIAGE_LOG_LEVEL"
	EnvTriageVersion         = "TRIAGE_VERSION"
)

var databaseEnv = &database.Env{
	Host:              "TRIAGE_DB_HOST",
	Port:              "TRIAGE_DB_PORT",
	Name:              "TRIAGE_DB_NAME",
	User:              "TRIAGE_DB_USER",
	Password:          "TRIAGE_DB_PASSWORD",
	SSLMode:           "TRIAGE_DB_SSL_MODE",
	MaxOpenConns:      "TRIAGE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:      "TRIAGE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime:   "TRIAGE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:       "TRIAGE_DB_CONN_TIMEOUT",
	ConnRetries:       "TRIAGE_DB_CONN_RETRIES",
	ConnRetryInterval: "TRIAGE_DB_CONN_RETRY_INTERVAL",
	AutoMigrate:       "TRIAGE_DB_AUTO_MIGRATE",
}

var trackerEnv = &tracker.Env{
	BaseURL:       "TRIAGE_TRACKER_BASE_URL",
	Token:         "TRIAGE_TRACKER_TOKEN",
	TokenFallback: "BUGCROWD_API_KEY",
	Program:       "TRIAGE_TRACKER_PROGRAM",
	AssigneeID:    "TRIAGE_TRACKER_ASSIGNEE_ID",
	Timeout:       "TRIAGE_TRACKER_TIMEOUT",
	PageDelay:     "TRIAGE_TRACKER_PAGE_DELAY",
	Pagination: &pagination.ConfigEnv{
		PageSize:    "TRIAGE_TRACKER_PAGE_SIZE",
		MaxPageSize: "TRIAGE_TRACKER_MAX_PAGE_SIZE",
	},
}

var classifierEnv = &classifier.Env{
	APIKey:         "TRIAGE_CLASSIFIER_API_KEY",
	APIKeyFallback: "ANTHROPIC_API_KEY",
	Model:          "TRIAGE_CLASSIFIER_MODEL",
	Prompt:         "TRIAGE_CLASSIFIER_PROMPT",
	MaxTokens:      "TRIAGE_CLASSIFIER_MAX_TOKENS",
	Delay:          "TRIAGE_CLASSIFIER_DELAY",
}

// Config is the root configuration for the triage bot.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Tracker         tracker.Config    `toml:"tracker"`
	Classifier      classifier.Config `toml:"classifier"`
	Categories      CategoriesConfig  `toml:"categories"`
	Interval        string            `toml:"interval"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	LogLevel        string            `toml:"log_level"`
	Version         string            `toml:"version"`
}

// Env returns the TRIAGE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvTriageEnv); env != "" {
		return env
	}
	return "local"
}

// IntervalDuration returns Interval as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))
	return level
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Tracker.Merge(&overlay.Tracker)
	c.Classifier.Merge(&overlay.Classifier)
	c.Categories.Merge(&overlay.Categories)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Tracker.Finalize(trackerEnv); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	if err := c.Classifier.Finalize(classifierEnv); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Categories.Finalize(); err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.Interval == "" {
		c.Interval = "1m"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvTriageInterval); v != "" {
		c.Interval = v
	}
	if v := os.Getenv(EnvTriageShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvTriageLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvTriageVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if d, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvTriageEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
