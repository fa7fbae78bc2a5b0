// Package config handles node configuration.
//
// Configuration is split into two categories:
//   - Currency rules: genesis digest, fee, and schedules; must match across
//     every node of a currency (currency.go)
//   - Node settings: data directory, relay endpoint, logging; can vary per
//     node (this file)
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds node-specific runtime settings. These can vary between
// nodes without breaking consensus.
type Config struct {
	// DataDir is the root of all on-disk state.
	DataDir string `json:"datadir,omitempty"`

	// Currency names the currency file to operate on.
	Currency string `json:"currency,omitempty"`

	Relay  RelayConfig  `json:"relay"`
	Mining MiningConfig `json:"mining"`
	Log    LogConfig    `json:"log"`
}

// RelayConfig holds the central relay server settings.
type RelayConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	APIKey   string `json:"apikey,omitempty"`

	// TimeoutSeconds bounds every relay HTTP request.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// RecentSeconds limits downloads to items the relay received within
	// this window. 0 downloads everything.
	RecentSeconds int `json:"recent_seconds,omitempty"`
}

// MiningConfig holds block production settings.
type MiningConfig struct {
	// Key is the keystore nickname whose address receives rewards.
	Key     string `json:"key,omitempty"`
	Threads int    `json:"threads,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
	JSON  bool   `json:"json,omitempty"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.ember
//	macOS:   ~/Library/Application Support/Ember
//	Windows: %APPDATA%\Ember
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ember"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Ember")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Ember")
		}
		return filepath.Join(home, "AppData", "Roaming", "Ember")
	default:
		return filepath.Join(home, ".ember")
	}
}

// WalletDir returns the keystore and tags directory.
func (c *Config) WalletDir() string {
	return filepath.Join(c.DataDir, "wallet")
}

// ArchiveDir returns the BadgerDB archive directory.
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.DataDir, "archive")
}

// CurrenciesDir returns the directory of currency definition files.
func (c *Config) CurrenciesDir() string {
	return filepath.Join(c.DataDir, "currencies")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// File returns the node config file path.
func (c *Config) File() string {
	return filepath.Join(c.DataDir, "ember.json")
}

// CurrencyFile returns the path of a currency definition file.
func (c *Config) CurrencyFile(name string) string {
	return filepath.Join(c.CurrenciesDir(), name+".json")
}

// EnsureDataDirs creates the data directory structure. Idempotent, safe to
// call on every startup.
func (c *Config) EnsureDataDirs() error {
	for _, dir := range []string{c.DataDir, c.WalletDir(), c.ArchiveDir(), c.CurrenciesDir(), c.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
