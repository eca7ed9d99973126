// Package config holds engine constants and the lumen.yaml runtime
// configuration.
//
// The configuration deliberately covers only embedding-level knobs (stack
// ceilings, call depth, library selection); language behavior is never
// configurable.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Limits are the per-VM runtime ceilings.
type Limits struct {
	// MaxStack caps a context's value stack, in slots.
	MaxStack int `yaml:"max_stack,omitempty"`

	// MaxCallDepth caps the call-frame chain.
	MaxCallDepth int `yaml:"max_call_depth,omitempty"`
}

// Config represents the top-level lumen.yaml configuration.
type Config struct {
	// Limits overrides the engine's default runtime ceilings.
	Limits Limits `yaml:"limits,omitempty"`

	// Libraries selects which standard libraries open_libs registers.
	// Empty means all of them.
	Libraries []string `yaml:"libraries,omitempty"`
}

// DefaultLimits returns the engine defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxStack:     DefaultMaxStack,
		MaxCallDepth: DefaultMaxCallDepth,
	}
}

// Default returns a configuration with engine defaults and all libraries.
func Default() *Config {
	return &Config{Limits: DefaultLimits()}
}

// Load reads and validates a lumen.yaml file. A missing file is not an
// error: the defaults are returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Limits.MaxStack <= 0 {
		c.Limits.MaxStack = DefaultMaxStack
	}
	if c.Limits.MaxCallDepth <= 0 {
		c.Limits.MaxCallDepth = DefaultMaxCallDepth
	}
	if c.Limits.MaxStack < InitialStackSize {
		return fmt.Errorf("limits.max_stack must be at least %d", InitialStackSize)
	}
	for _, lib := range c.Libraries {
		switch lib {
		case "base", "yaml", "sql", "rpc":
		default:
			return fmt.Errorf("unknown library %q", lib)
		}
	}
	return nil
}
