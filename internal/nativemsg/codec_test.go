package nativemsg

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

func frame(payload string) []byte {
	buf := make([]byte, headerLen+len(payload))
	binary.LittleEndian.PutUint32(buf[:headerLen], uint32(len(payload)))
	copy(buf[headerLen:], payload)
	return buf
}

func TestWriteMessageFramesLittleEndian(t *testing.T) {
	payloads := []string{`{}`, `[{"id":1}]`, `"snowman ☃"`, `{"info":"x","result":""}`}

	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, NewWriter(&out).WriteMessage(json.RawMessage(payload)))
			require.Equal(t, frame(payload), out.Bytes())

			got, err := NewReader(&out, 0).ReadMessage()
			require.NoError(t, err)
			require.Equal(t, payload, string(got))
		})
	}
}

func TestReadMessageCleanEOF(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil), 0).ReadMessage()
	require.ErrorIs(t, err, io.EOF)
	require.NotErrorIs(t, err, ErrFraming)
}

func TestReadMessagePartialHeaderIsFraming(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x05, 0x00}), 0).ReadMessage()
	require.ErrorIs(t, err, ErrFraming)
	require.Contains(t, err.Error(), "read 2 bytes")
}

func TestReadMessageShortPayloadIsFraming(t *testing.T) {
	wire := append([]byte{10, 0, 0, 0}, []byte(`{"a`)...)

	_, err := NewReader(bytes.NewReader(wire), 0).ReadMessage()
	require.ErrorIs(t, err, ErrFraming)
	require.Contains(t, err.Error(), "wanted 10-byte payload, read 3 bytes")
}

func TestReadMessageRejectsOversizedLength(t *testing.T) {
	wire := frame(`{"too":"big"}`)

	_, err := NewReader(bytes.NewReader(wire), 4).ReadMessage()
	require.ErrorIs(t, err, ErrFraming)
}

func TestReadMessageInvalidJSONKeepsStreamUsable(t *testing.T) {
	var wire bytes.Buffer
	wire.Write(frame(`not-json`))
	wire.Write(frame(`{"info":"next"}`))

	r := NewReader(&wire, 0)
	_, err := r.ReadMessage()
	require.ErrorIs(t, err, ErrInvalidJSON)
	require.NotErrorIs(t, err, ErrFraming)

	got, err := r.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"info":"next"}`, string(got))

	_, err = r.ReadMessage()
	require.ErrorIs(t, err, io.EOF)
}

// Test the reader having a source that returns fewer bytes than asked for.
func TestReadMessagePartialReads(t *testing.T) {
	wire := frame(`{"request":1}`)
	r := NewReader(iotest.OneByteReader(bytes.NewReader(wire)), 0)

	got, err := r.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, `{"request":1}`, string(got))
}

func TestWriteMessageRejectsOversizedPayload(t *testing.T) {
	var out bytes.Buffer
	err := NewWriter(&out).WriteMessage(strings.Repeat("x", MaxOutbound))
	require.ErrorIs(t, err, ErrMessageTooLarge)
	require.Zero(t, out.Len())
}

func TestWriteMessageFlushesBufferedWriter(t *testing.T) {
	var out bytes.Buffer
	buffered := bufio.NewWriterSize(&out, 4096)

	require.NoError(t, NewWriter(buffered).WriteMessage(map[string]string{"info": "x"}))
	require.Equal(t, frame(`{"info":"x"}`), out.Bytes())
}

func TestWriteMessageReportsWriterError(t *testing.T) {
	err := NewWriter(failingWriter{}).WriteMessage("x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "write message")
}

func TestConcurrentWritersNeverInterleave(t *testing.T) {
	pr, pw := io.Pipe()
	w := NewWriter(pw)

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			msg := map[string]any{"writer": id, "pad": strings.Repeat("p", 100*id)}
			for j := 0; j < perWriter; j++ {
				_ = w.WriteMessage(msg)
			}
		}(i)
	}
	go func() {
		wg.Wait()
		_ = pw.Close()
	}()

	r := NewReader(pr, 0)
	count := 0
	for {
		payload, err := r.ReadMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)

		var msg struct {
			Writer int    `json:"writer"`
			Pad    string `json:"pad"`
		}
		require.NoError(t, json.Unmarshal(payload, &msg))
		require.Len(t, msg.Pad, 100*msg.Writer)
		count++
	}
	require.Equal(t, writers*perWriter, count)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}
