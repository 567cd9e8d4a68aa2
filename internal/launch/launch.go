// Package launch starts external programs on behalf of the browser: fully
// detached background processes and the optional interactive menu.
package launch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Launcher runs processes requested by the browser.
type Launcher struct {
	menu   []string
	logger *slog.Logger
}

// New returns a Launcher. menuArgv may be empty, in which case Choose is
// unavailable and MenuEnabled reports false.
func New(menuArgv []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Launcher{menu: append([]string(nil), menuArgv...), logger: logger}
}

// Detach starts argv in its own session with no inherited stdio and returns
// as soon as the process exists. The child is reaped in the background and
// its exit status is only logged.
func (l *Launcher) Detach(argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start command %s: %w", argv[0], err)
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		if err != nil {
			l.logger.Debug("detached process exited", "pid", pid, "argv0", argv[0], "error", err.Error())
			return
		}
		l.logger.Debug("detached process exited", "pid", pid, "argv0", argv[0])
	}()
	return pid, nil
}

// MenuEnabled reports whether a menu program is configured.
func (l *Launcher) MenuEnabled() bool {
	return len(l.menu) > 0
}

// Choose shows choices (one per line) in the configured menu program with
// extra flags appended and returns the selected line. A dismissed menu
// (exit status 1) yields an empty selection.
func (l *Launcher) Choose(ctx context.Context, flags []string, choices []string) (string, error) {
	if !l.MenuEnabled() {
		return "", fmt.Errorf("menu command is not configured")
	}

	argv := make([]string, 0, len(l.menu)+len(flags))
	argv = append(argv, l.menu...)
	argv = append(argv, flags...)

	out, err := runCommandWithInput(ctx, argv, strings.Join(choices, "\n"))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", fmt.Errorf("run menu: %w", err)
	}
	return strings.TrimRight(out, "\r\n"), nil
}

// runCommandWithInput executes argv, writes input to stdin, and returns
// stdout.
func runCommandWithInput(ctx context.Context, argv []string, input string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		trimmed := strings.TrimSpace(stderr.String())
		if trimmed == "" {
			return "", fmt.Errorf("%s failed: %w", argv[0], err)
		}
		return "", fmt.Errorf("%s failed: %w (%s)", argv[0], err, trimmed)
	}
	return stdout.String(), nil
}
