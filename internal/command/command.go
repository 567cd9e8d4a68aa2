// Package command decodes browser requests into typed commands and defines
// the response shapes sent back over the native messaging channel.
package command

import "encoding/json"

// Discriminator values understood by the host.
const (
	InfoDumpTabs    = "dumpTabsJson"
	InfoDumpHistory = "dumpHistoryJson"
	InfoStartBridge = "startBridge"

	// InfoError is the info value of every error response.
	InfoError = "error"
	// InfoFocusTab is the info value of bridge focus events.
	InfoFocusTab = "focusTab"
)

// ResultOK is the result value for successful dump and bridge commands.
const ResultOK = "ok"

// Kind identifies one command variant.
type Kind string

const (
	KindDumpJSON    Kind = "dump"
	KindStartBridge Kind = "startBridge"
	KindSpawn       Kind = "spawn"
	KindLegacy      Kind = "legacy"
)

// Command is one decoded browser request. The concrete type is one of
// DumpJSON, StartBridge, Spawn, or Legacy.
type Command interface {
	Kind() Kind
	// Info returns the request discriminator, echoed in the response.
	Info() string
}

// DumpTarget selects which document a dump command persists.
type DumpTarget string

const (
	DumpTabs    DumpTarget = "tabs"
	DumpHistory DumpTarget = "history"
)

// DumpJSON persists Document at Path. An empty Path means the configured
// default for Target.
type DumpJSON struct {
	info     string
	Target   DumpTarget
	Path     string
	Document json.RawMessage
}

func (c DumpJSON) Kind() Kind   { return KindDumpJSON }
func (c DumpJSON) Info() string { return c.info }

// StartBridge starts the local socket bridge. An empty Socket means the
// configured default path.
type StartBridge struct {
	info   string
	Socket string
}

func (c StartBridge) Kind() Kind   { return KindStartBridge }
func (c StartBridge) Info() string { return c.info }

// Spawn launches Argv as a detached process.
type Spawn struct {
	info string
	Argv []string
}

func (c Spawn) Kind() Kind   { return KindSpawn }
func (c Spawn) Info() string { return c.info }

// Legacy is the menu request shape sent by older extension builds.
type Legacy struct {
	info      string
	MenuFlags []string
	Choices   []string
}

func (c Legacy) Kind() Kind   { return KindLegacy }
func (c Legacy) Info() string { return c.info }

// Response is the reply to one browser request.
type Response struct {
	Result string `json:"result"`
	Info   string `json:"info"`
	Path   string `json:"path,omitempty"`
	Socket string `json:"socket,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse builds the reply sent when a request cannot be served.
func ErrorResponse(err error) Response {
	return Response{Result: "", Info: InfoError, Error: err.Error()}
}

// FocusTabEvent is pushed to the browser when a local client asks for a tab
// to be focused. WindowID is null when the client did not name a window.
type FocusTabEvent struct {
	Info     string `json:"info"`
	TabID    int64  `json:"tabId"`
	WindowID *int64 `json:"windowId"`
}

// NewFocusTabEvent builds a focusTab event.
func NewFocusTabEvent(tabID int64, windowID *int64) FocusTabEvent {
	return FocusTabEvent{Info: InfoFocusTab, TabID: tabID, WindowID: windowID}
}
