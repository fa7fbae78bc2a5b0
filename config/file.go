package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Load builds the effective node configuration: defaults, then the JSON
// config file at path. A missing file is not an error; the defaults stand.
// Validation is part of loading so a bad file fails fast.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("datadir is required")
	}
	if c.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if c.Relay.TimeoutSeconds < 0 {
		return fmt.Errorf("relay.timeout_seconds must not be negative")
	}
	if c.Relay.RecentSeconds < 0 {
		return fmt.Errorf("relay.recent_seconds must not be negative")
	}
	if c.Mining.Threads < 0 {
		return fmt.Errorf("mining.threads must not be negative")
	}
	return nil
}
