// Package feed owns the single long-lived websocket subscription to the
// discover feed. It tracks connection state, reconnects with a bounded retry
// policy and exposes an ordered event stream plus a send operation.
package feed

import "fmt"

// State is the lifecycle state of a Manager.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateClosing
	StateClosed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EventKind identifies a lifecycle notification.
type EventKind int

const (
	EventOpen EventKind = iota + 1
	EventMessage
	EventClose
	EventError
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one notification delivered through Manager.Events.
// Events for a Manager are delivered on a single channel in arrival order.
type Event struct {
	Kind      EventKind
	SessionID string // manager session that produced the event
	Data      []byte // raw frame, EventMessage only
	Err       error  // close cause or failure, EventClose/EventError only
	Attempt   int    // reconnect attempt counter at the time of the event
}
