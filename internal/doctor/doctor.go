// Package doctor runs readiness diagnostics for config, dump paths, the
// bridge socket, the menu program, and the browser manifest.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/rofi-chrome/internal/bridge"
	"github.com/rbright/rofi-chrome/internal/config"
	"github.com/rbright/rofi-chrome/internal/install"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Options adjusts environment lookups for tests.
type Options struct {
	// Home overrides the user home used to find manifests.
	Home string
}

// Run executes config and environment checks for a loaded config.
func Run(cfg config.Loaded, opts Options) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	checks = append(checks, checkWritableDir("paths.tabs", cfg.Config.Paths.Tabs))
	checks = append(checks, checkWritableDir("paths.history", cfg.Config.Paths.History))
	checks = append(checks, checkWritableDir("bridge.socket", cfg.Config.Bridge.Socket))
	checks = append(checks, checkBridge(cfg.Config.Bridge.Socket))

	if len(cfg.Config.Menu.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Menu.Argv, "menu_cmd"))
	}

	checks = append(checks, checkManifest(opts.Home))

	return Report{Checks: checks}
}

// checkWritableDir verifies that files can be created next to path.
func checkWritableDir(name, path string) Check {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".rofi-chrome-doctor-*")
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("directory %s is not writable: %v", dir, err)}
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is writable", dir)}
}

// checkBridge reports whether a host is currently serving the socket. A
// missing listener is normal until the extension sends startBridge.
func checkBridge(socket string) Check {
	info, err := os.Stat(socket)
	if err != nil {
		return Check{Name: "bridge", Pass: true, Message: "no socket present (bridge starts on demand)"}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Check{Name: "bridge", Pass: false, Message: fmt.Sprintf("%s exists and is not a socket", socket)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := bridge.Probe(ctx, socket); err != nil {
		if bridge.IsNotListening(err) {
			return Check{Name: "bridge", Pass: true, Message: fmt.Sprintf("stale socket at %s (replaced on next start)", socket)}
		}
		return Check{Name: "bridge", Pass: false, Message: err.Error()}
	}
	return Check{Name: "bridge", Pass: true, Message: fmt.Sprintf("listening at %s", socket)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkManifest passes when any supported browser has the host manifest
// installed for the user or system wide.
func checkManifest(home string) Check {
	var searched []string
	for _, browser := range install.Browsers() {
		for _, system := range []bool{false, true} {
			path, err := install.Path(install.Target{Browser: browser, System: system, Home: home})
			if err != nil {
				continue
			}
			if _, err := os.Stat(path); err == nil {
				return Check{Name: "manifest", Pass: true, Message: fmt.Sprintf("%s manifest at %s", browser, path)}
			}
			searched = append(searched, path)
		}
	}
	return Check{Name: "manifest", Pass: false, Message: fmt.Sprintf("no manifest found; run install (searched %d locations)", len(searched))}
}
