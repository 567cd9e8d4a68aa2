// Package logging configures runtime JSONL logging output.
//
// The host's stdout carries the browser protocol, so records only ever go to
// the state file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Options selects the log sink and threshold. Zero values pick the XDG
// state path and info level.
type Options struct {
	Path  string
	Level string
}

// Runtime bundles the configured logger and its open file handle lifecycle.
type Runtime struct {
	Logger  *slog.Logger
	Path    string
	Session string
	closer  io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Discard returns a Runtime whose logger drops every record.
func Discard() Runtime {
	return Runtime{Logger: slog.New(slog.DiscardHandler)}
}

// New builds a JSONL logger rooted at the resolved state path. Every record
// carries a per-process session id because several browser-launched hosts
// may append to the same file.
func New(opts Options) (Runtime, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return Runtime{}, err
	}

	path := opts.Path
	if path == "" {
		path, err = resolveLogPath()
		if err != nil {
			return Runtime{}, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, err
	}

	session := uuid.NewString()
	h := slog.NewJSONHandler(&bestEffortWriter{w: f}, &slog.HandlerOptions{Level: level})
	logger := slog.New(h).With("session", session, "pid", os.Getpid())
	return Runtime{Logger: logger, Path: path, Session: session, closer: f}, nil
}

// ParseLevel maps a config level name onto a slog level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// bestEffortWriter never reports a failure to the handler. A full disk must
// not take down the message loop.
type bestEffortWriter struct {
	w       io.Writer
	dropped atomic.Int64
}

func (b *bestEffortWriter) Write(p []byte) (int, error) {
	if _, err := b.w.Write(p); err != nil {
		b.dropped.Add(1)
	}
	return len(p), nil
}

// resolveLogPath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func resolveLogPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "rofi-chrome", "log.jsonl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "rofi-chrome", "log.jsonl"), nil
}
