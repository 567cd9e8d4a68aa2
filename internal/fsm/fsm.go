// Package fsm defines the socket bridge lifecycle states and their legal
// transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateBinding   State = "binding"
	StateAccepting State = "accepting"
	StateStopped   State = "stopped"
)

const (
	EventStart  Event = "start"
	EventListen Event = "listen"
	EventFail   Event = "fail"
	EventClose  Event = "close"
)

// Transition returns the state reached from current on event.
//
// A stopped bridge may be started again; a failed bind or accept loop always
// ends in StateStopped.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateStopped, nil
	}

	switch current {
	case StateIdle, StateStopped:
		switch event {
		case EventStart:
			return StateBinding, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateBinding:
		switch event {
		case EventListen:
			return StateAccepting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAccepting:
		switch event {
		case EventClose:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Running reports whether a bridge in state s owns its socket.
func Running(s State) bool {
	return s == StateBinding || s == StateAccepting
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
