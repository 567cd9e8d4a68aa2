// Package dispatch executes decoded browser commands.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rbright/rofi-chrome/internal/command"
	"github.com/rbright/rofi-chrome/internal/store"
)

// BridgeStarter starts the socket bridge once per process.
type BridgeStarter interface {
	Start(ctx context.Context, path string) (string, error)
}

// Launcher runs external programs.
type Launcher interface {
	Detach(argv []string) (int, error)
	MenuEnabled() bool
	Choose(ctx context.Context, flags []string, choices []string) (string, error)
}

// WriteFunc persists one JSON document atomically.
type WriteFunc func(path string, doc json.RawMessage) error

// Defaults are the paths used when a command leaves them out.
type Defaults struct {
	TabsPath    string
	HistoryPath string
	SocketPath  string
}

// Dispatcher maps each command to exactly one response or error.
type Dispatcher struct {
	logger   *slog.Logger
	defaults Defaults
	bridge   BridgeStarter
	launcher Launcher
	write    WriteFunc
}

// New constructs a Dispatcher. A nil write persists with store.WriteJSON.
func New(logger *slog.Logger, defaults Defaults, bridge BridgeStarter, launcher Launcher, write WriteFunc) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if write == nil {
		write = store.WriteJSON
	}
	return &Dispatcher{
		logger:   logger,
		defaults: defaults,
		bridge:   bridge,
		launcher: launcher,
		write:    write,
	}
}

// Dispatch runs cmd. Errors are returned to the caller, which owns the
// conversion to an error response.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) (command.Response, error) {
	switch c := cmd.(type) {
	case command.DumpJSON:
		return d.dump(c)
	case command.StartBridge:
		return d.startBridge(ctx, c)
	case command.Spawn:
		return d.spawn(c)
	case command.Legacy:
		return d.legacy(ctx, c)
	default:
		return command.Response{}, fmt.Errorf("unsupported command kind %q", cmd.Kind())
	}
}

func (d *Dispatcher) dump(c command.DumpJSON) (command.Response, error) {
	path := c.Path
	if path == "" {
		path = d.defaults.TabsPath
		if c.Target == command.DumpHistory {
			path = d.defaults.HistoryPath
		}
	}

	if err := d.write(path, c.Document); err != nil {
		return command.Response{}, fmt.Errorf("%s: %w", c.Info(), err)
	}
	d.logger.Info("document written", "info", c.Info(), "path", path, "bytes", len(c.Document))
	return command.Response{Result: command.ResultOK, Info: c.Info(), Path: path}, nil
}

func (d *Dispatcher) startBridge(ctx context.Context, c command.StartBridge) (command.Response, error) {
	if d.bridge == nil {
		return command.Response{}, fmt.Errorf("bridge is not available")
	}

	path := c.Socket
	if path == "" {
		path = d.defaults.SocketPath
	}
	bound, err := d.bridge.Start(ctx, path)
	if err != nil {
		return command.Response{}, fmt.Errorf("start bridge: %w", err)
	}
	return command.Response{Result: command.ResultOK, Info: c.Info(), Socket: bound}, nil
}

func (d *Dispatcher) spawn(c command.Spawn) (command.Response, error) {
	if d.launcher == nil {
		return command.Response{}, fmt.Errorf("launcher is not available")
	}

	pid, err := d.launcher.Detach(c.Argv)
	if err != nil {
		return command.Response{}, fmt.Errorf("spawn: %w", err)
	}
	d.logger.Info("process spawned", "info", c.Info(), "argv0", c.Argv[0], "pid", pid)
	return command.Response{Result: "", Info: c.Info()}, nil
}

// legacy serves the menu request shape. Without a configured menu program
// the request is only shape-checked.
func (d *Dispatcher) legacy(ctx context.Context, c command.Legacy) (command.Response, error) {
	if d.launcher == nil || !d.launcher.MenuEnabled() {
		d.logger.Debug("legacy request accepted", "info", c.Info(), "choices", len(c.Choices))
		return command.Response{Result: "", Info: c.Info()}, nil
	}

	selection, err := d.launcher.Choose(ctx, c.MenuFlags, c.Choices)
	if err != nil {
		return command.Response{}, err
	}
	return command.Response{Result: selection, Info: c.Info()}, nil
}
