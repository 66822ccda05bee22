package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Send whenever the manager is not Open.
	ErrNotConnected = errors.New("feed: not connected")

	// ErrMaxRetriesExceeded is terminal: the manager gave up reconnecting.
	ErrMaxRetriesExceeded = errors.New("feed: max reconnect attempts exceeded")

	// ErrAlreadyRunning is returned when Run is called more than once.
	ErrAlreadyRunning = errors.New("feed: manager already running")

	// ErrClosed is returned when Run is called after Close.
	ErrClosed = errors.New("feed: manager closed")
)

// ConnectError reports that a transport could not be created.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("feed: connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
