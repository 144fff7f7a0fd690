package i18n

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Func translates a message key. Callers treat a nil Func as Identity.
type Func func(key string) string

// Identity returns keys unchanged.
func Identity(key string) string {
	return key
}

// OrIdentity returns t, or Identity when t is nil.
func OrIdentity(t Func) Func {
	if t == nil {
		return Identity
	}
	return t
}

// Catalog is a flat key to translation map for one locale.
type Catalog struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.Locale = strings.ToLower(strings.TrimSpace(c.Locale))
	return &c, nil
}

// T translates key. Missing or empty translations pass the key through.
func (c *Catalog) T(key string) string {
	if c == nil {
		return key
	}
	if v, ok := c.Messages[key]; ok && v != "" {
		return v
	}
	return key
}

// Func returns the catalog as a translate function.
func (c *Catalog) Func() Func {
	if c == nil {
		return Identity
	}
	return c.T
}
