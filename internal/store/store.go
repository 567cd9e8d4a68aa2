// Package store persists JSON documents with atomic replace semantics.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// WriteJSON writes doc to path through a temporary file in the same
// directory followed by a rename, so readers never observe a partial file.
// doc must already be valid JSON; it is stored in compact form.
func WriteJSON(path string, doc json.RawMessage) error {
	if path == "" {
		return fmt.Errorf("write json: path is empty")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, doc); err != nil {
		return fmt.Errorf("write json %s: %w", path, err)
	}

	if err := atomic.WriteFile(path, &compact); err != nil {
		return fmt.Errorf("write json %s: %w", path, err)
	}
	return nil
}

// WriteValue marshals v with indentation and writes it like WriteJSON,
// creating the parent directory first. The written file gets mode perm.
func WriteValue(path string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}
