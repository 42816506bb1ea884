package tracker

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/JaimeStill/bugcrowd-triage/pkg/pagination"
)

// Config holds the Bugcrowd API connection and query settings.
type Config struct {
	BaseURL    string            `toml:"base_url"`
	Token      string            `toml:"token"`
	Program    string            `toml:"program"`
	AssigneeID string            `toml:"assignee_id"`
	Timeout    string            `toml:"timeout"`
	PageDelay  string            `toml:"page_delay"`
	Pagination pagination.Config `toml:"pagination"`
}

// Env maps config fields to environment variable names for override injection.
// TokenFallback is consulted only when Token resolves to nothing.
type Env struct {
	BaseURL       string
	Token         string
	TokenFallback string
	Program       string
	AssigneeID    string
	Timeout       string
	PageDelay     string
	Pagination    *pagination.ConfigEnv
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// PageDelayDuration returns PageDelay as a time.Duration.
func (c *Config) PageDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.PageDelay)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	var pageEnv *pagination.ConfigEnv
	if env != nil {
		c.loadEnv(env)
		pageEnv = env.Pagination
	}
	if err := c.Pagination.Finalize(pageEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Program != "" {
		c.Program = overlay.Program
	}
	if overlay.AssigneeID != "" {
		c.AssigneeID = overlay.AssigneeID
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.PageDelay != "" {
		c.PageDelay = overlay.PageDelay
	}
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.bugcrowd.com"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.PageDelay == "" {
		c.PageDelay = "2s"
	}
}

func (c *Config) loadEnv(env *Env) {
	setString := func(key string, dst *string) {
		if key == "" {
			return
		}
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(env.BaseURL, &c.BaseURL)
	setString(env.Token, &c.Token)
	if c.Token == "" {
		setString(env.TokenFallback, &c.Token)
	}
	setString(env.Program, &c.Program)
	setString(env.AssigneeID, &c.AssigneeID)
	setString(env.Timeout, &c.Timeout)
	setString(env.PageDelay, &c.PageDelay)
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if c.Token == "" {
		return fmt.Errorf("token required")
	}
	if c.Program == "" {
		return fmt.Errorf("program required")
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if d, err := time.ParseDuration(c.PageDelay); err != nil {
		return fmt.Errorf("invalid page_delay: %w", err)
	} else if d < 0 {
		return fmt.Errorf("page_delay must not be negative")
	}
	return nil
}
