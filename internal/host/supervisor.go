// Package host runs the native messaging read/dispatch/respond loop.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/rbright/rofi-chrome/internal/command"
	"github.com/rbright/rofi-chrome/internal/nativemsg"
)

// Dispatcher executes one decoded command.
type Dispatcher interface {
	Dispatch(context.Context, command.Command) (command.Response, error)
}

// Supervisor owns the browser channel for the lifetime of the process.
type Supervisor struct {
	reader     *nativemsg.Reader
	writer     *nativemsg.Writer
	dispatcher Dispatcher
	logger     *slog.Logger
}

// New returns a Supervisor reading from reader and answering on writer.
// writer may be shared with other producers such as the socket bridge.
func New(reader *nativemsg.Reader, writer *nativemsg.Writer, dispatcher Dispatcher, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Supervisor{
		reader:     reader,
		writer:     writer,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type inbound struct {
	payload json.RawMessage
	err     error
}

// Run answers browser messages until the input stream ends or ctx is done.
//
// A clean end of input or cancellation returns nil. A broken frame or a
// failed response write returns an error; handler failures never do.
func (s *Supervisor) Run(ctx context.Context) error {
	frames := make(chan inbound)

	// This goroutine has exclusive access to the reader. It may stay blocked
	// in a read after Run returns on cancellation; the process is exiting.
	go func() {
		defer close(frames)
		for {
			payload, err := s.reader.ReadMessage()
			select {
			case frames <- inbound{payload: payload, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, nativemsg.ErrInvalidJSON) {
				return
			}
		}
	}()

	for {
		var frame inbound
		select {
		case <-ctx.Done():
			s.logger.Info("host stopping", "reason", "shutdown")
			return nil
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			frame = f
		}

		switch {
		case errors.Is(frame.err, io.EOF):
			s.logger.Info("host stopping", "reason", "input closed")
			return nil
		case errors.Is(frame.err, nativemsg.ErrInvalidJSON):
			s.logger.Warn("skipping malformed message", "error", frame.err.Error())
			continue
		case frame.err != nil:
			s.logger.Error("host stopping", "reason", "framing", "error", frame.err.Error())
			return fmt.Errorf("read message: %w", frame.err)
		}

		resp := s.handle(ctx, frame.payload)
		if err := s.respond(resp); err != nil {
			s.logger.Error("host stopping", "reason", "write", "error", err.Error())
			return err
		}
	}
}

// handle turns one payload into exactly one response.
func (s *Supervisor) handle(ctx context.Context, payload json.RawMessage) (resp command.Response) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("command panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			resp = command.ErrorResponse(fmt.Errorf("internal error: %v", r))
		}
	}()

	cmd, err := command.Decode(payload)
	if err != nil {
		s.logger.Warn("command rejected", "error", err.Error())
		return command.ErrorResponse(err)
	}

	resp, err = s.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		s.logger.Error("command failed",
			"info", cmd.Info(),
			"kind", cmd.Kind(),
			"error", err.Error(),
		)
		return command.ErrorResponse(err)
	}

	s.logger.Info("command handled",
		"info", cmd.Info(),
		"kind", cmd.Kind(),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return resp
}

// respond writes resp, replacing it with an error response when it is too
// large for the browser to accept.
func (s *Supervisor) respond(resp command.Response) error {
	err := s.writer.WriteMessage(resp)
	if errors.Is(err, nativemsg.ErrMessageTooLarge) {
		s.logger.Warn("response too large", "info", resp.Info, "error", err.Error())
		err = s.writer.WriteMessage(command.ErrorResponse(err))
	}
	if err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
