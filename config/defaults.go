package config

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		DataDir:  DefaultDataDir(),
		Currency: "ember",
		Relay: RelayConfig{
			TimeoutSeconds: 30,
			RecentSeconds:  0,
		},
		Mining: MiningConfig{
			Threads: 1,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
