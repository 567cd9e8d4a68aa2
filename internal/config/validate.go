package config

import (
	"fmt"
	"path/filepath"
)

var logLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate enforces semantic constraints and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	for _, p := range []struct {
		key   string
		value string
	}{
		{key: "paths.tabs", value: cfg.Paths.Tabs},
		{key: "paths.history", value: cfg.Paths.History},
		{key: "bridge.socket", value: cfg.Bridge.Socket},
	} {
		if p.value == "" {
			return nil, fmt.Errorf("%s must not be empty", p.key)
		}
		if !filepath.IsAbs(p.value) {
			return nil, fmt.Errorf("%s must be an absolute path, got %q", p.key, p.value)
		}
	}
	if cfg.Paths.Tabs == cfg.Paths.History {
		return nil, fmt.Errorf("paths.tabs and paths.history must differ")
	}

	if cfg.Bridge.AcceptTimeoutMS <= 0 {
		return nil, fmt.Errorf("bridge.accept_timeout_ms must be > 0")
	}
	if cfg.Bridge.RequestTimeoutMS <= 0 {
		return nil, fmt.Errorf("bridge.request_timeout_ms must be > 0")
	}
	if cfg.Bridge.MaxRequestBytes <= 0 {
		return nil, fmt.Errorf("bridge.max_request_bytes must be > 0")
	}
	if len(cfg.Bridge.Socket) > 107 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("bridge.socket is %d bytes; unix socket paths longer than 107 bytes fail to bind on Linux", len(cfg.Bridge.Socket))})
	}

	if _, ok := logLevels[cfg.Log.Level]; !ok {
		return nil, fmt.Errorf("log.level must be one of debug|info|warn|error, got %q", cfg.Log.Level)
	}
	if cfg.Log.Path != "" && !filepath.IsAbs(cfg.Log.Path) {
		return nil, fmt.Errorf("log.path must be an absolute path, got %q", cfg.Log.Path)
	}

	return warnings, nil
}
