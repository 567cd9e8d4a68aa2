// Package cli parses rofi-chrome-host command lines.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandFocus   Command = "focus"
	CommandInstall Command = "install"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandServe:   {},
	CommandFocus:   {},
	CommandInstall: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// FocusArgs are the arguments of the focus command.
type FocusArgs struct {
	TabID    int64
	WindowID *int64
}

// InstallArgs are the arguments of the install command.
type InstallArgs struct {
	Browser      string
	System       bool
	HostPath     string
	ExtensionIDs []string
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	// Origin is the caller a browser passed when it launched the host.
	Origin  string
	Focus   FocusArgs
	Install InstallArgs
}

// Parse reads args without the program name.
//
// Browsers start the host with the calling extension origin (Chromium) or the
// manifest path (Firefox) as the first argument; both select serve.
func Parse(args []string) (Parsed, error) {
	if len(args) > 0 && isBrowserLaunch(args[0]) {
		return Parsed{Command: CommandServe, Origin: args[0]}, nil
	}

	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	global := newFlagSet("rofi-chrome-host")
	global.SetInterspersed(false)
	help := global.BoolP("help", "h", false, "show help")
	showVersion := global.Bool("version", false, "show version")
	global.StringVar(&parsed.ConfigPath, "config", "", "config file path")
	if err := global.Parse(args); err != nil {
		return Parsed{}, err
	}

	switch {
	case *help:
		return parsed, nil
	case *showVersion:
		parsed.Command = CommandVersion
		parsed.ShowHelp = false
		return parsed, nil
	}

	rest := global.Args()
	if len(rest) == 0 {
		return parsed, nil
	}

	cmd := Command(rest[0])
	if _, ok := validCommands[cmd]; !ok {
		return Parsed{}, fmt.Errorf("unknown command: %s", rest[0])
	}
	parsed.Command = cmd
	parsed.ShowHelp = cmd == CommandHelp

	fs := newFlagSet(string(cmd))
	fs.StringVar(&parsed.ConfigPath, "config", parsed.ConfigPath, "config file path")

	var (
		tabID    int64
		windowID int64
	)
	switch cmd {
	case CommandFocus:
		fs.Int64Var(&tabID, "tab", 0, "tab id to focus")
		fs.Int64Var(&windowID, "window", 0, "window id holding the tab")
	case CommandInstall:
		fs.StringVar(&parsed.Install.Browser, "browser", "chrome", "chrome, chromium, or brave")
		fs.BoolVar(&parsed.Install.System, "system", false, "install for all users")
		fs.StringVar(&parsed.Install.HostPath, "host-path", "", "absolute path of the host binary (default: this executable)")
		fs.StringSliceVar(&parsed.Install.ExtensionIDs, "extension-id", nil, "extension id allowed to connect (repeatable)")
	}

	if err := fs.Parse(rest[1:]); err != nil {
		return Parsed{}, err
	}
	if fs.NArg() > 0 {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", rest[0])
	}

	switch cmd {
	case CommandFocus:
		if !fs.Changed("tab") {
			return Parsed{}, errors.New("focus requires --tab")
		}
		parsed.Focus.TabID = tabID
		if fs.Changed("window") {
			parsed.Focus.WindowID = &windowID
		}
	case CommandInstall:
		if len(parsed.Install.ExtensionIDs) == 0 {
			return Parsed{}, errors.New("install requires at least one --extension-id")
		}
	}

	return parsed, nil
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func isBrowserLaunch(arg string) bool {
	return strings.HasPrefix(arg, "chrome-extension://") ||
		(strings.HasPrefix(arg, "/") && strings.HasSuffix(arg, ".json"))
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [flags]

Commands:
  serve     Run the native messaging host on stdin/stdout
  focus     Ask a running host to focus a tab (--tab N [--window W])
  install   Write the browser manifest (--extension-id ID [--browser NAME] [--system])
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/rofi-chrome/config.jsonc)
  -h, --help      Show help
  --version       Show version

Browsers launch the host with the extension origin as the first argument;
that form is equivalent to serve.
`, binaryName)
}
