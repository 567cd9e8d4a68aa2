// Package bridge runs the local socket side channel that lets other local
// programs push events into the browser's native messaging stream.
package bridge

import "errors"

// OpFocus asks the browser to focus a tab.
const OpFocus = "focus"

// DefaultMaxRequestBytes bounds one socket request.
const DefaultMaxRequestBytes = 4096

var (
	// ErrDecodeRequest marks a socket request that is not a valid request
	// document. The connection is dropped and the listener keeps running.
	ErrDecodeRequest = errors.New("decode bridge request")
	// ErrRequestTooLarge marks a socket request longer than the configured
	// limit. It is handled like ErrDecodeRequest.
	ErrRequestTooLarge = errors.New("bridge request too large")
	// ErrEmptyRequest marks a connection closed without sending anything,
	// which is how Probe checks for a listener.
	ErrEmptyRequest = errors.New("empty bridge request")
)

// Request is one document sent by a local client. Nothing is written back
// on the connection.
type Request struct {
	Op  string `json:"op"`
	ID  *int64 `json:"id,omitempty"`
	Win *int64 `json:"win,omitempty"`
}
