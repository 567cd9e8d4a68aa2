// Package app wires parsed command lines to the host runtime.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rbright/rofi-chrome/internal/bridge"
	"github.com/rbright/rofi-chrome/internal/cli"
	"github.com/rbright/rofi-chrome/internal/config"
	"github.com/rbright/rofi-chrome/internal/dispatch"
	"github.com/rbright/rofi-chrome/internal/doctor"
	"github.com/rbright/rofi-chrome/internal/host"
	"github.com/rbright/rofi-chrome/internal/install"
	"github.com/rbright/rofi-chrome/internal/launch"
	"github.com/rbright/rofi-chrome/internal/logging"
	"github.com/rbright/rofi-chrome/internal/nativemsg"
	"github.com/rbright/rofi-chrome/internal/version"
	"golang.org/x/term"
)

const binaryName = "rofi-chrome-host"

// Runner executes one command. In serve mode Stdin and Stdout carry the
// browser protocol, so every human-facing message goes to Stderr.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(logging.Options{Path: cfgLoaded.Config.Log.Path, Level: cfgLoaded.Config.Log.Level})
	if err != nil {
		// The host keeps serving without a log file.
		fmt.Fprintf(r.Stderr, "warning: setup logging: %v\n", err)
		logRuntime = logging.Discard()
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
		"version", version.Version,
	)

	switch parsed.Command {
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger, parsed.Origin)
	case cli.CommandFocus:
		return r.commandFocus(ctx, cfgLoaded.Config, parsed.Focus)
	case cli.CommandInstall:
		return r.commandInstall(parsed.Install, logger)
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded, doctor.Options{})
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandServe runs the native messaging host until the browser closes
// stdin or ctx is cancelled.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger, origin string) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("host starting", "origin", origin)
	if f, ok := r.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(r.Stderr, "warning: stdin is a terminal; serve expects native messaging frames from a browser")
	}

	writer := nativemsg.NewWriter(r.Stdout)
	reader := nativemsg.NewReader(r.Stdin, nativemsg.DefaultMaxInbound)

	manager := bridge.NewManager(writer, logger, bridge.Options{
		AcceptTimeout:   cfg.Bridge.AcceptTimeout(),
		RequestTimeout:  cfg.Bridge.RequestTimeout(),
		MaxRequestBytes: cfg.Bridge.MaxRequestBytes,
	})
	launcher := launch.New(cfg.Menu.Argv, logger.With("component", "launch"))
	dispatcher := dispatch.New(logger.With("component", "dispatch"), dispatch.Defaults{
		TabsPath:    cfg.Paths.Tabs,
		HistoryPath: cfg.Paths.History,
		SocketPath:  cfg.Bridge.Socket,
	}, manager, launcher, nil)

	err := host.New(reader, writer, dispatcher, logger.With("component", "host")).Run(ctx)

	cancel()
	if done := manager.Done(); done != nil {
		<-done
	}

	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) commandFocus(ctx context.Context, cfg config.Config, args cli.FocusArgs) int {
	err := bridge.Focus(ctx, cfg.Bridge.Socket, args.TabID, args.WindowID, cfg.Bridge.RequestTimeout())
	if err != nil {
		if bridge.IsNotListening(err) {
			fmt.Fprintf(r.Stderr, "error: no rofi-chrome host is listening on %s\n", cfg.Bridge.Socket)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) commandInstall(args cli.InstallArgs, logger *slog.Logger) int {
	hostPath := args.HostPath
	if hostPath == "" {
		exe, err := os.Executable()
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: resolve host binary: %v\n", err)
			return 1
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		hostPath = exe
	}

	manifest, err := install.NewManifest(hostPath, args.ExtensionIDs)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	path, err := install.Write(manifest, install.Target{Browser: args.Browser, System: args.System})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logger.Info("manifest installed", "path", path, "browser", args.Browser, "system", args.System)
	fmt.Fprintln(r.Stdout, path)
	return 0
}
