package classifier

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the completion request settings used for classification.
type Config struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	Prompt    string `toml:"prompt"`
	MaxTokens int    `toml:"max_tokens"`
	Delay     string `toml:"delay"`
}

// Env maps config fields to environment variable names for override injection.
// APIKeyFallback is consulted only when APIKey resolves to nothing.
type Env struct {
	APIKey         string
	APIKeyFallback string
	Model          string
	Prompt         string
	MaxTokens      string
	Delay          string
}

// DelayDuration returns Delay as a time.Duration.
func (c *Config) DelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.Delay)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Prompt != "" {
		c.Prompt = overlay.Prompt
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.Delay != "" {
		c.Delay = overlay.Delay
	}
}

func (c *Config) loadDefaults() {
	if c.Model == "" {
		c.Model = "claude-sonnet-4-5-20250929"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 512
	}
	if c.Delay == "" {
		c.Delay = "5s"
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

	setString(env.APIKey, &c.APIKey)
	if c.APIKey == "" {
		setString(env.APIKeyFallback, &c.APIKey)
	}
	setString(env.Model, &c.Model)
	setString(env.Prompt, &c.Prompt)
	setString(env.Delay, &c.Delay)

	if env.MaxTokens != "" {
		if v := os.Getenv(env.MaxTokens); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxTokens = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key required")
	}
	if c.Prompt == "" {
		return fmt.Errorf("prompt required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if d, err := time.ParseDuration(c.Delay); err != nil {
		return fmt.Errorf("invalid delay: %w", err)
	} else if d < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	return nil
}
