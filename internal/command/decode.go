package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidShape marks a request that is valid JSON but not a known
// command shape.
var ErrInvalidShape = errors.New("invalid payload shape")

// envelope lists every field any command may carry. Unknown fields are
// rejected during decoding.
type envelope struct {
	Info      json.RawMessage `json:"info"`
	Path      json.RawMessage `json:"path"`
	JSON      json.RawMessage `json:"json"`
	Socket    json.RawMessage `json:"socket"`
	Spawn     json.RawMessage `json:"spawn"`
	RofiFlags json.RawMessage `json:"rofi_flags"`
	RofiOpts  json.RawMessage `json:"rofi-opts"`
	Choices   json.RawMessage `json:"choices"`
	Opts      json.RawMessage `json:"opts"`
}

// Decode parses one request payload into a Command. Variants are matched in
// order: dump commands, startBridge, a non-empty spawn list, then the legacy
// menu shape.
func Decode(payload []byte) (Command, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()

	var env envelope
	if err := decoder.Decode(&env); err != nil {
		return nil, shapeError("%v", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, shapeError("multiple JSON values are not allowed")
	}

	if isAbsent(env.Info) {
		return nil, shapeError("info is required")
	}
	var info string
	if err := json.Unmarshal(env.Info, &info); err != nil {
		return nil, shapeError("info must be a string")
	}

	switch info {
	case InfoDumpTabs, InfoDumpHistory:
		return decodeDump(info, env)
	case InfoStartBridge:
		socket, err := optionalString(env.Socket, "socket")
		if err != nil {
			return nil, err
		}
		return StartBridge{info: info, Socket: socket}, nil
	}

	if !isAbsent(env.Spawn) {
		argv, err := stringList(env.Spawn, "spawn")
		if err != nil {
			return nil, err
		}
		if len(argv) > 0 {
			return Spawn{info: info, Argv: argv}, nil
		}
	}

	return decodeLegacy(info, env)
}

func decodeDump(info string, env envelope) (Command, error) {
	if env.JSON == nil {
		return nil, shapeError("json is required for %s", info)
	}
	path, err := optionalString(env.Path, "path")
	if err != nil {
		return nil, err
	}

	target := DumpTabs
	if info == InfoDumpHistory {
		target = DumpHistory
	}
	return DumpJSON{info: info, Target: target, Path: path, Document: env.JSON}, nil
}

func decodeLegacy(info string, env envelope) (Command, error) {
	flagsRaw, flagsName := firstPresent(env.RofiFlags, "rofi_flags", env.RofiOpts, "rofi-opts")
	flags, err := stringList(flagsRaw, flagsName)
	if err != nil {
		return nil, err
	}

	choicesRaw, choicesName := firstPresent(env.Choices, "choices", env.Opts, "opts")
	choices, err := stringList(choicesRaw, choicesName)
	if err != nil {
		return nil, err
	}

	return Legacy{info: info, MenuFlags: flags, Choices: choices}, nil
}

func firstPresent(primary json.RawMessage, primaryName string, alias json.RawMessage, aliasName string) (json.RawMessage, string) {
	if primary == nil && alias != nil {
		return alias, aliasName
	}
	return primary, primaryName
}

func stringList(raw json.RawMessage, field string) ([]string, error) {
	if isAbsent(raw) {
		return nil, shapeError("%s must be a list of strings", field)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, shapeError("%s must be a list of strings", field)
	}
	return list, nil
}

func optionalString(raw json.RawMessage, field string) (string, error) {
	if isAbsent(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", shapeError("%s must be a string", field)
	}
	return s, nil
}

// isAbsent reports a field that was omitted or explicitly null.
func isAbsent(raw json.RawMessage) bool {
	return raw == nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func shapeError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidShape, fmt.Sprintf(format, args...))
}
