// Package config resolves, parses, validates, and defaults rofi-chrome host configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by the host.
type Config struct {
	Paths  PathsConfig
	Bridge BridgeConfig
	Menu   CommandConfig
	Log    LogConfig
}

// PathsConfig holds the default dump destinations.
type PathsConfig struct {
	Tabs    string
	History string
}

// BridgeConfig controls the local socket bridge.
type BridgeConfig struct {
	Socket           string
	AcceptTimeoutMS  int
	RequestTimeoutMS int
	MaxRequestBytes  int
}

// AcceptTimeout returns the accept deadline as a duration.
func (b BridgeConfig) AcceptTimeout() time.Duration {
	return time.Duration(b.AcceptTimeoutMS) * time.Millisecond
}

// RequestTimeout returns the per-connection read deadline as a duration.
func (b BridgeConfig) RequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutMS) * time.Millisecond
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// LogConfig controls the JSONL log sink. An empty Path selects the XDG state file.
type LogConfig struct {
	Level string
	Path  string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
