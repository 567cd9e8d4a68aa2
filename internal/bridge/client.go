package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// Send delivers one request to the bridge at path. The bridge never replies
// on the connection; delivery to the browser is asynchronous.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) error {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return nil
}

// Focus asks the browser behind the bridge at path to focus tabID, and
// windowID when it is not nil.
func Focus(ctx context.Context, path string, tabID int64, windowID *int64, timeout time.Duration) error {
	return Send(ctx, path, Request{Op: OpFocus, ID: &tabID, Win: windowID}, timeout)
}

// Probe reports whether a bridge is accepting connections at path without
// sending a request.
func Probe(ctx context.Context, path string) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return err
	}
	return conn.Close()
}

// IsNotListening reports dial failures caused by a missing socket file or
// a socket with no listener behind it.
func IsNotListening(err error) bool {
	return isSocketMissing(err) || isConnectionRefused(err)
}

// isSocketMissing reports absent-socket failures.
func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist)
}

// isConnectionRefused reports no-listener failures.
func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
