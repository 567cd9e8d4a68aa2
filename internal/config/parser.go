package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
)

type jsoncConfig struct {
	Paths   *jsoncPaths  `json:"paths"`
	Bridge  *jsoncBridge `json:"bridge"`
	MenuCmd *string      `json:"menu_cmd"`
	Log     *jsoncLog    `json:"log"`
}

type jsoncPaths struct {
	Tabs    *string `json:"tabs"`
	History *string `json:"history"`
}

type jsoncBridge struct {
	Socket           *string `json:"socket"`
	AcceptTimeoutMS  *int    `json:"accept_timeout_ms"`
	RequestTimeoutMS *int    `json:"request_timeout_ms"`
	MaxRequestBytes  *int    `json:"max_request_bytes"`
}

type jsoncLog struct {
	Level *string `json:"level"`
	Path  *string `json:"path"`
}

// Parse reads JSONC configuration content on top of base.
//
// Comments and trailing commas are allowed. Unknown keys are rejected.
func Parse(content string, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	}

	// ToJSON blanks comments in place, so decoder offsets still map onto content.
	normalized := string(jsonc.ToJSON([]byte(content)))

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(content, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(content, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Paths != nil {
		if payload.Paths.Tabs != nil {
			cfg.Paths.Tabs = strings.TrimSpace(*payload.Paths.Tabs)
		}
		if payload.Paths.History != nil {
			cfg.Paths.History = strings.TrimSpace(*payload.Paths.History)
		}
	}

	if payload.Bridge != nil {
		if payload.Bridge.Socket != nil {
			cfg.Bridge.Socket = strings.TrimSpace(*payload.Bridge.Socket)
		}
		if payload.Bridge.AcceptTimeoutMS != nil {
			cfg.Bridge.AcceptTimeoutMS = *payload.Bridge.AcceptTimeoutMS
		}
		if payload.Bridge.RequestTimeoutMS != nil {
			cfg.Bridge.RequestTimeoutMS = *payload.Bridge.RequestTimeoutMS
		}
		if payload.Bridge.MaxRequestBytes != nil {
			cfg.Bridge.MaxRequestBytes = *payload.Bridge.MaxRequestBytes
		}
	}

	if payload.MenuCmd != nil {
		raw := *payload.MenuCmd
		argv, err := splitCommandLine(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid menu_cmd: %w", err)
		}
		if strings.TrimSpace(raw) != "" && len(argv) == 0 {
			warnings = append(warnings, Warning{Message: "menu_cmd is commented out; legacy menu requests stay inert"})
		}
		cfg.Menu = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.Log != nil {
		if payload.Log.Level != nil {
			cfg.Log.Level = strings.ToLower(strings.TrimSpace(*payload.Log.Level))
		}
		if payload.Log.Path != nil {
			cfg.Log.Path = strings.TrimSpace(*payload.Log.Path)
		}
	}

	return warnings, nil
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
