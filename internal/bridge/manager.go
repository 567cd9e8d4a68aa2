package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rbright/rofi-chrome/internal/command"
	"github.com/rbright/rofi-chrome/internal/fsm"
)

// Emitter delivers events to the browser. *nativemsg.Writer satisfies it.
type Emitter interface {
	WriteMessage(v any) error
}

// Options tune the accept loop and per-connection limits.
type Options struct {
	AcceptTimeout   time.Duration
	RequestTimeout  time.Duration
	MaxRequestBytes int
}

func (o Options) withDefaults() Options {
	if o.AcceptTimeout <= 0 {
		o.AcceptTimeout = time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 2 * time.Second
	}
	if o.MaxRequestBytes <= 0 {
		o.MaxRequestBytes = DefaultMaxRequestBytes
	}
	return o
}

// Manager owns the single bridge listener of a host process.
type Manager struct {
	emitter Emitter
	logger  *slog.Logger
	opts    Options

	mu    sync.Mutex
	state fsm.State
	path  string
	done  chan struct{}
}

// NewManager returns an idle bridge that will emit events through emitter.
func NewManager(emitter Emitter, logger *slog.Logger, opts Options) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		emitter: emitter,
		logger:  logger.With("component", "bridge"),
		opts:    opts.withDefaults(),
		state:   fsm.StateIdle,
	}
}

// Start binds the bridge at path and begins accepting in the background.
//
// While a previous listener is still running Start is a no-op and returns
// the path that listener is bound to. The listener stops when ctx is done
// or when accepting fails; a later Start may then bind again.
func (m *Manager) Start(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fsm.Running(m.state) {
		m.logger.Info("bridge already running", "socket", m.path, "requested", path)
		return m.path, nil
	}

	if err := m.transitionLocked(fsm.EventStart); err != nil {
		return "", err
	}
	listener, err := listen(path)
	if err != nil {
		_ = m.transitionLocked(fsm.EventFail)
		return "", err
	}
	if err := m.transitionLocked(fsm.EventListen); err != nil {
		_ = listener.Close()
		return "", err
	}

	m.path = path
	m.done = make(chan struct{})
	m.logger.Info("bridge listening", "socket", path)

	go m.serve(ctx, listener, m.done)
	return path, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() fsm.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done returns a channel closed when the most recently started listener has
// exited, or nil if the bridge was never started.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

func (m *Manager) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(m.state, event)
	if err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	m.state = next
	return nil
}

func (m *Manager) finish(event fsm.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.transitionLocked(event)
}

// serve runs the accept loop until ctx is done or Accept fails.
func (m *Manager) serve(ctx context.Context, listener *net.UnixListener, done chan struct{}) {
	var wg sync.WaitGroup
	defer close(done)
	defer wg.Wait()

	for {
		if ctx.Err() != nil {
			_ = listener.Close()
			m.finish(fsm.EventClose)
			m.logger.Info("bridge stopped", "reason", "shutdown")
			return
		}

		if err := listener.SetDeadline(time.Now().Add(m.opts.AcceptTimeout)); err != nil {
			m.fail(listener, fmt.Errorf("set accept deadline: %w", err))
			return
		}
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			m.fail(listener, fmt.Errorf("accept bridge connection: %w", err))
			return
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			m.handle(c)
		}(conn)
	}
}

func (m *Manager) fail(listener *net.UnixListener, err error) {
	_ = listener.Close()
	m.finish(fsm.EventFail)
	m.logger.Error("bridge stopped", "reason", "error", "error", err.Error())
}

// handle reads one request from conn and emits at most one event.
func (m *Manager) handle(conn net.Conn) {
	logger := m.logger
	if pid, uid, ok := peerCredentials(conn); ok {
		logger = logger.With("peer_pid", pid, "peer_uid", uid)
	}

	if err := conn.SetReadDeadline(time.Now().Add(m.opts.RequestTimeout)); err != nil {
		logger.Warn("bridge request dropped", "error", err.Error())
		return
	}

	req, err := readRequest(conn, m.opts.MaxRequestBytes)
	if errors.Is(err, ErrEmptyRequest) {
		logger.Debug("bridge probed")
		return
	}
	if err != nil {
		logger.Warn("bridge request dropped", "error", err.Error())
		return
	}

	switch req.Op {
	case OpFocus:
		event := command.NewFocusTabEvent(*req.ID, req.Win)
		if err := m.emitter.WriteMessage(event); err != nil {
			logger.Error("emit focus event failed", "tab_id", event.TabID, "error", err.Error())
			return
		}
		logger.Debug("focus event emitted", "tab_id", event.TabID)
	default:
		logger.Warn("bridge request dropped", "error", fmt.Sprintf("unknown op %q", req.Op))
	}
}

// readRequest decodes one request document of at most maxBytes bytes.
func readRequest(r io.Reader, maxBytes int) (Request, error) {
	limited := &io.LimitedReader{R: r, N: int64(maxBytes) + 1}

	var req Request
	err := json.NewDecoder(limited).Decode(&req)
	if limited.N <= 0 {
		return Request{}, fmt.Errorf("%w: more than %d bytes", ErrRequestTooLarge, maxBytes)
	}
	if errors.Is(err, io.EOF) {
		return Request{}, ErrEmptyRequest
	}
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrDecodeRequest, err)
	}
	if req.Op == OpFocus && req.ID == nil {
		return Request{}, fmt.Errorf("%w: focus request requires id", ErrDecodeRequest)
	}
	return req, nil
}
