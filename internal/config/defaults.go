package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			Tabs:    "/tmp/rofi_chrome_tabs.json",
			History: "/tmp/rofi_chrome_history.json",
		},
		Bridge: BridgeConfig{
			Socket:           "/tmp/rofi_chrome.sock",
			AcceptTimeoutMS:  1000,
			RequestTimeoutMS: 2000,
			MaxRequestBytes:  4096,
		},
		Log: LogConfig{Level: "info"},
	}
}
