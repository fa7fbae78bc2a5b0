package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "ember.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Currency != "ember" {
		t.Errorf("currency = %q, want ember", cfg.Currency)
	}
	if cfg.Relay.TimeoutSeconds != 30 {
		t.Errorf("timeout = %d, want 30", cfg.Relay.TimeoutSeconds)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.json")
	cfg := Default()
	cfg.Currency = "testcoin"
	cfg.Relay.Endpoint = "https://relay.example.org/exchange"
	cfg.Mining.Threads = 4
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Currency != "testcoin" {
		t.Errorf("currency = %q, want testcoin", loaded.Currency)
	}
	if loaded.Relay.Endpoint != cfg.Relay.Endpoint {
		t.Errorf("endpoint = %q, want %q", loaded.Relay.Endpoint, cfg.Relay.Endpoint)
	}
	if loaded.Mining.Threads != 4 {
		t.Errorf("threads = %d, want 4", loaded.Mining.Threads)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.json")
	if err := os.WriteFile(path, []byte(`{"currency": "x", "mining": {"threads": -1}}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "threads") {
		t.Errorf("Load err = %v, want threads complaint", err)
	}
}

func TestEnsureDataDirs(t *testing.T) {
	cfg := Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "ember")
	if err := cfg.EnsureDataDirs(); err != nil {
		t.Fatalf("EnsureDataDirs: %v", err)
	}
	for _, dir := range []string{cfg.WalletDir(), cfg.ArchiveDir(), cfg.CurrenciesDir(), cfg.LogsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("Stat %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}
