// Package nativemsg implements the browser native messaging wire format:
// a 4-byte little-endian length followed by a UTF-8 JSON payload.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// headerLen is the number of bytes in the length prefix.
const headerLen = 4

const (
	// DefaultMaxInbound bounds a single frame read from the browser.
	DefaultMaxInbound = 64 << 20
	// MaxOutbound is the largest payload the browser accepts from a host.
	MaxOutbound = 1 << 20
)

var (
	// ErrFraming marks an unusable stream: partial prefix, oversized length,
	// or short payload. The read loop must stop after it.
	ErrFraming = errors.New("native messaging framing error")
	// ErrInvalidJSON marks a complete frame whose payload is not JSON. The
	// frame is consumed and the stream stays usable.
	ErrInvalidJSON = errors.New("native messaging payload is not valid JSON")
	// ErrMessageTooLarge is returned by WriteMessage before writing anything.
	ErrMessageTooLarge = errors.New("native messaging payload exceeds outbound limit")
)

// Reader reads frames from the browser. It is not safe for concurrent use.
type Reader struct {
	r          io.Reader
	maxPayload uint32
}

// NewReader returns a Reader over r. maxPayload <= 0 selects DefaultMaxInbound.
func NewReader(r io.Reader, maxPayload int) *Reader {
	if maxPayload <= 0 || maxPayload > DefaultMaxInbound {
		maxPayload = DefaultMaxInbound
	}
	return &Reader{r: r, maxPayload: uint32(maxPayload)}
}

// ReadMessage blocks for one frame and returns its JSON payload.
//
// It returns io.EOF when the stream ends cleanly on a frame boundary,
// an error wrapping ErrFraming when the stream is broken, and an error
// wrapping ErrInvalidJSON when the frame was read but is not JSON.
func (r *Reader) ReadMessage() (json.RawMessage, error) {
	var header [headerLen]byte
	switch n, err := io.ReadFull(r.r, header[:]); {
	case err == io.EOF:
		// Clean shutdown from the browser's end.
		return nil, io.EOF
	case err == io.ErrUnexpectedEOF:
		return nil, fmt.Errorf("%w: wanted %d-byte header, read %d bytes", ErrFraming, headerLen, n)
	case err != nil:
		return nil, fmt.Errorf("%w: read header: %v", ErrFraming, err)
	}

	payloadLen := binary.LittleEndian.Uint32(header[:])
	if payloadLen > r.maxPayload {
		return nil, fmt.Errorf("%w: want at most %d-byte payload, got %d", ErrFraming, r.maxPayload, payloadLen)
	}

	payload := make([]byte, payloadLen)
	if n, err := io.ReadFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("%w: wanted %d-byte payload, read %d bytes", ErrFraming, payloadLen, n)
	}

	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: %d-byte frame", ErrInvalidJSON, payloadLen)
	}
	return json.RawMessage(payload), nil
}

// flusher is implemented by buffered writers such as *bufio.Writer.
type flusher interface {
	Flush() error
}

// Writer writes frames to the browser. WriteMessage may be called from
// several goroutines; each call emits one whole frame.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage marshals v and writes it as one frame, then flushes.
func (w *Writer) WriteMessage(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if len(payload) > MaxOutbound {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}

	buf := make([]byte, headerLen+len(payload))
	binary.LittleEndian.PutUint32(buf[:headerLen], uint32(len(payload)))
	copy(buf[headerLen:], payload)

	w.mu.Lock()
	defer w.mu.Unlock()

	for len(buf) > 0 {
		switch n, err := w.w.Write(buf); {
		case err != nil:
			return fmt.Errorf("write message: %w", err)
		case n == 0:
			return fmt.Errorf("write message: %w", io.ErrShortWrite)
		default:
			buf = buf[n:]
		}
	}

	if f, ok := w.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush message: %w", err)
		}
	}
	return nil
}
