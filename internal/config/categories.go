package config

import "github.com/JaimeStill/bugcrowd-triage/internal/categories"

// CategoriesConfig declares the valid classifications, the fallback used for
// unrecognized classifier output, and the reply templates.
type CategoriesConfig struct {
	Valid    []string              `toml:"valid"`
	Default  string                `toml:"default"`
	Response []categories.Response `toml:"response"`
}

// Finalize validates the category configuration by building a Set from it.
func (c *CategoriesConfig) Finalize() error {
	_, err := c.Set()
	return err
}

// Merge replaces each list or value the overlay sets.
func (c *CategoriesConfig) Merge(overlay *CategoriesConfig) {
	if len(overlay.Valid) > 0 {
		c.Valid = overlay.Valid
	}
	if overlay.Default != "" {
		c.Default = overlay.Default
	}
	if len(overlay.Response) > 0 {
		c.Response = overlay.Response
	}
}

// Set builds the immutable category set.
func (c *CategoriesConfig) Set() (*categories.Set, error) {
	return categories.New(c.Valid, c.Default, c.Response)
}
