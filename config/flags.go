package config

import "github.com/spf13/pflag"

// Flags holds the command-line overrides for node settings. Values are
// applied over the loaded config only when their flag was set explicitly,
// so flags always win over the file.
type Flags struct {
	ConfigFile string

	DataDir       string
	Currency      string
	RelayEndpoint string
	RelayAPIKey   string
	MiningKey     string
	Threads       int
	LogLevel      string
	LogFile       string
	LogJSON       bool
}

// Register binds the override flags to a flag set.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigFile, "config", "", "config file path (default <datadir>/ember.json)")
	fs.StringVar(&f.DataDir, "datadir", "", "data directory")
	fs.StringVar(&f.Currency, "currency", "", "currency name")
	fs.StringVar(&f.RelayEndpoint, "relay", "", "relay server endpoint URL")
	fs.StringVar(&f.RelayAPIKey, "apikey", "", "relay upload API key")
	fs.StringVar(&f.MiningKey, "mining-key", "", "keystore nickname receiving mining rewards")
	fs.IntVar(&f.Threads, "threads", 0, "mining threads")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "output logs as JSON")
}

// Apply copies explicitly-set flags onto the configuration.
func (f *Flags) Apply(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("datadir") {
		cfg.DataDir = f.DataDir
	}
	if fs.Changed("currency") {
		cfg.Currency = f.Currency
	}
	if fs.Changed("relay") {
		cfg.Relay.Endpoint = f.RelayEndpoint
	}
	if fs.Changed("apikey") {
		cfg.Relay.APIKey = f.RelayAPIKey
	}
	if fs.Changed("mining-key") {
		cfg.Mining.Key = f.MiningKey
	}
	if fs.Changed("threads") {
		cfg.Mining.Threads = f.Threads
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.LogLevel
	}
	if fs.Changed("log-file") {
		cfg.Log.File = f.LogFile
	}
	if fs.Changed("log-json") {
		cfg.Log.JSON = f.LogJSON
	}
}
