package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/rofi-chrome/internal/fsm"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	events chan []byte
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{events: make(chan []byte, 16)}
}

func (r *recordingEmitter) WriteMessage(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.events <- data
	return nil
}

func (r *recordingEmitter) next(t *testing.T) string {
	t.Helper()
	select {
	case data := <-r.events:
		return string(data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridge event")
		return ""
	}
}

func (r *recordingEmitter) requireNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case data := <-r.events:
		t.Fatalf("unexpected bridge event %s", data)
	case <-time.After(wait):
	}
}

func startManager(t *testing.T) (*Manager, *recordingEmitter, string) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "rc.sock")
	emitter := newRecordingEmitter()
	manager := NewManager(emitter, nil, Options{AcceptTimeout: 50 * time.Millisecond, RequestTimeout: 500 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		if done := manager.Done(); done != nil {
			<-done
		}
	})

	bound, err := manager.Start(ctx, socketPath)
	require.NoError(t, err)
	require.Equal(t, socketPath, bound)
	require.Equal(t, fsm.StateAccepting, manager.State())
	return manager, emitter, socketPath
}

func sendRaw(t *testing.T, socketPath string, payload []byte) []byte {
	t.Helper()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(payload)
	require.NoError(t, err)
	require.NoError(t, conn.(*net.UnixConn).CloseWrite())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	return reply
}

func TestFocusRequestEmitsExactlyOneEvent(t *testing.T) {
	_, emitter, socketPath := startManager(t)

	reply := sendRaw(t, socketPath, []byte(`{"op":"focus","id":42}`))
	require.Empty(t, reply, "bridge must not write back on the socket")

	require.JSONEq(t, `{"info":"focusTab","tabId":42,"windowId":null}`, emitter.next(t))
	emitter.requireNone(t, 100*time.Millisecond)
}

func TestFocusClientWithWindow(t *testing.T) {
	_, emitter, socketPath := startManager(t)

	win := int64(3)
	require.NoError(t, Focus(context.Background(), socketPath, 7, &win, time.Second))
	require.JSONEq(t, `{"info":"focusTab","tabId":7,"windowId":3}`, emitter.next(t))
}

func TestMalformedRequestDoesNotStopListener(t *testing.T) {
	manager, emitter, socketPath := startManager(t)

	sendRaw(t, socketPath, []byte(`not-json`))
	sendRaw(t, socketPath, []byte(`{"op":"focus"}`))
	sendRaw(t, socketPath, []byte(`{"op":"close","id":1}`))
	emitter.requireNone(t, 100*time.Millisecond)
	require.Equal(t, fsm.StateAccepting, manager.State())

	sendRaw(t, socketPath, []byte(`{"op":"focus","id":1}`))
	require.JSONEq(t, `{"info":"focusTab","tabId":1,"windowId":null}`, emitter.next(t))
}

func TestOversizedRequestIsDropped(t *testing.T) {
	_, emitter, socketPath := startManager(t)

	payload := `{"op":"focus","id":5,"pad":"` + strings.Repeat("x", DefaultMaxRequestBytes) + `"}`
	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	emitter.requireNone(t, 200*time.Millisecond)
}

func TestStartIsIdempotentWhileRunning(t *testing.T) {
	manager, _, socketPath := startManager(t)
	firstDone := manager.Done()

	otherPath := filepath.Join(t.TempDir(), "other.sock")
	bound, err := manager.Start(context.Background(), otherPath)
	require.NoError(t, err)
	require.Equal(t, socketPath, bound)
	require.Equal(t, firstDone, manager.Done())

	_, statErr := os.Stat(otherPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestStartReplacesStaleSocketAndOpensPermissions(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "rc.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	manager := NewManager(newRecordingEmitter(), nil, Options{AcceptTimeout: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := manager.Start(ctx, socketPath)
	require.NoError(t, err)

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&os.ModeSocket)
	require.Equal(t, os.FileMode(0o666), info.Mode().Perm())

	cancel()
	<-manager.Done()
}

func TestShutdownStopsListenerAndAllowsRestart(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "rc.sock")
	emitter := newRecordingEmitter()
	manager := NewManager(emitter, nil, Options{AcceptTimeout: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := manager.Start(ctx, socketPath)
	require.NoError(t, err)

	cancel()
	select {
	case <-manager.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop after cancellation")
	}
	require.Equal(t, fsm.StateStopped, manager.State())

	_, statErr := os.Stat(socketPath)
	require.True(t, os.IsNotExist(statErr))

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer func() {
		cancel2()
		<-manager.Done()
	}()
	_, err = manager.Start(ctx2, socketPath)
	require.NoError(t, err)
	require.NoError(t, Focus(context.Background(), socketPath, 9, nil, time.Second))
	require.JSONEq(t, `{"info":"focusTab","tabId":9,"windowId":null}`, emitter.next(t))
}

func TestStartBindFailureStopsBridge(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	manager := NewManager(newRecordingEmitter(), nil, Options{})
	_, err := manager.Start(context.Background(), filepath.Join(blocker, "rc.sock"))
	require.Error(t, err)
	require.Equal(t, fsm.StateStopped, manager.State())
	require.Nil(t, manager.Done())
}

func TestReadRequest(t *testing.T) {
	req, err := readRequest(strings.NewReader(`{"op":"focus","id":42,"win":2}`), DefaultMaxRequestBytes)
	require.NoError(t, err)
	require.Equal(t, OpFocus, req.Op)
	require.Equal(t, int64(42), *req.ID)
	require.Equal(t, int64(2), *req.Win)

	_, err = readRequest(strings.NewReader(`{"op":"focus","id":"42"}`), DefaultMaxRequestBytes)
	require.ErrorIs(t, err, ErrDecodeRequest)

	_, err = readRequest(strings.NewReader(`{"op":"focus"}`), DefaultMaxRequestBytes)
	require.ErrorIs(t, err, ErrDecodeRequest)

	_, err = readRequest(bytes.NewReader(bytes.Repeat([]byte(" "), 64)), 16)
	require.ErrorIs(t, err, ErrRequestTooLarge)

	_, err = readRequest(strings.NewReader(""), DefaultMaxRequestBytes)
	require.ErrorIs(t, err, ErrEmptyRequest)

	exact := `{"op":"focus","id":1}`
	_, err = readRequest(strings.NewReader(exact), len(exact))
	require.NoError(t, err)
}

func TestProbeDoesNotEmit(t *testing.T) {
	_, emitter, socketPath := startManager(t)

	require.NoError(t, Probe(context.Background(), socketPath))
	emitter.requireNone(t, 100*time.Millisecond)
}

func TestSendToMissingSocketIsNotListening(t *testing.T) {
	err := Focus(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), 1, nil, 100*time.Millisecond)
	require.Error(t, err)
	require.True(t, IsNotListening(err))
	require.False(t, IsNotListening(errors.New("other")))

	err = Probe(context.Background(), filepath.Join(t.TempDir(), "missing.sock"))
	require.True(t, IsNotListening(err))
}
