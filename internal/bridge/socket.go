package bridge

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// listen binds a unix stream socket at path, replacing any stale socket
// file, and opens it to all local users.
func listen(path string) (*net.UnixListener, error) {
	if path == "" {
		return nil, fmt.Errorf("bridge socket path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure socket dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o666); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket %s: %w", path, err)
	}
	return listener, nil
}
