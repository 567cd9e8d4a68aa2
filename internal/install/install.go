// Package install writes the native messaging host manifest that lets a
// Chromium-family browser launch rofi-chrome-host.
package install

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbright/rofi-chrome/internal/store"
)

// HostName is the native messaging host name the extension connects to.
const HostName = "io.github.tcode2k16.rofi.chrome"

// manifestType is the only transport browsers support for native hosts.
const manifestType = "stdio"

// Manifest models the native messaging host manifest JSON.
type Manifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Path           string   `json:"path"`
	AllowedOrigins []string `json:"allowed_origins"`
	Type           string   `json:"type"`
}

// Filename is the manifest file name without a directory.
func (m Manifest) Filename() string {
	return m.Name + ".json"
}

// NewManifest builds the manifest for the host binary at hostPath, allowing
// the given extension ids (or full chrome-extension:// origins).
func NewManifest(hostPath string, extensionIDs []string) (Manifest, error) {
	if !filepath.IsAbs(hostPath) {
		return Manifest{}, fmt.Errorf("host path must be absolute, got %q", hostPath)
	}
	if len(extensionIDs) == 0 {
		return Manifest{}, errors.New("at least one extension id is required")
	}

	origins := make([]string, 0, len(extensionIDs))
	for _, id := range extensionIDs {
		origin, err := originFor(id)
		if err != nil {
			return Manifest{}, err
		}
		origins = append(origins, origin)
	}

	return Manifest{
		Name:           HostName,
		Description:    "rofi-chrome native messaging host",
		Path:           hostPath,
		AllowedOrigins: origins,
		Type:           manifestType,
	}, nil
}

func originFor(id string) (string, error) {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "chrome-extension://")
	id = strings.TrimSuffix(id, "/")
	if id == "" || strings.ContainsAny(id, "/:") {
		return "", fmt.Errorf("invalid extension id %q", id)
	}
	return "chrome-extension://" + id + "/", nil
}

// Target selects where a manifest is installed.
type Target struct {
	Browser string
	System  bool
	// Home is the user home for user scope. Empty uses os.UserHomeDir.
	Home string
	// Root prefixes system directories. Empty means "/".
	Root string
}

type browserDirs struct {
	user   string
	system string
}

var browsers = map[string]browserDirs{
	"chrome":   {user: ".config/google-chrome/NativeMessagingHosts", system: "etc/opt/chrome/native-messaging-hosts"},
	"chromium": {user: ".config/chromium/NativeMessagingHosts", system: "etc/chromium/native-messaging-hosts"},
	"brave":    {user: ".config/BraveSoftware/Brave-Browser/NativeMessagingHosts", system: "etc/opt/chrome/native-messaging-hosts"},
}

// Browsers lists the supported browser names.
func Browsers() []string {
	return []string{"chrome", "chromium", "brave"}
}

// Dir returns the manifest directory for t.
func Dir(t Target) (string, error) {
	dirs, ok := browsers[t.Browser]
	if !ok {
		return "", fmt.Errorf("unsupported browser %q (want one of %s)", t.Browser, strings.Join(Browsers(), ", "))
	}

	if t.System {
		root := t.Root
		if root == "" {
			root = "/"
		}
		return filepath.Join(root, dirs.system), nil
	}

	home := t.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
	}
	return filepath.Join(home, dirs.user), nil
}

// Path returns the full manifest path for t.
func Path(t Target) (string, error) {
	dir, err := Dir(t)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, HostName+".json"), nil
}

// Write installs m for t and returns the written path.
func Write(m Manifest, t Target) (string, error) {
	dir, err := Dir(t)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, m.Filename())
	if err := store.WriteValue(path, m, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return path, nil
}
