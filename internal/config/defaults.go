package config

import "time"

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Companion: CompanionConfig{
			BaseURL:     "http://127.0.0.1:7123",
			Timeout:     3 * time.Second,
			SFXCacheTTL: 30 * time.Second,
		},
		Host: HostConfig{Address: "127.0.0.1"},
		Form: FormConfig{RetryDelay: 5 * time.Second},
		Log:  LogConfig{Level: "info"},
	}
}
