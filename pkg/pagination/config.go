package pagination

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds offset pagination settings for a remote list endpoint.
type Config struct {
	PageSize    int `toml:"page_size"`
	MaxPageSize int `toml:"max_page_size"`
}

// ConfigEnv maps environment variable names for pagination configuration.
type ConfigEnv struct {
	PageSize    string
	MaxPageSize string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *ConfigEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies non-zero values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	if overlay.PageSize != 0 {
		c.PageSize = overlay.PageSize
	}
	if overlay.MaxPageSize != 0 {
		c.MaxPageSize = overlay.MaxPageSize
	}
}

func (c *Config) loadDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	if env.PageSize != "" {
		if v := os.Getenv(env.PageSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.PageSize = n
			}
		}
	}
	if env.MaxPageSize != "" {
		if v := os.Getenv(env.MaxPageSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxPageSize = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be positive")
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("max_page_size must be positive")
	}
	if c.PageSize > c.MaxPageSize {
		return fmt.Errorf("page_size cannot exceed max_page_size")
	}
	return nil
}
