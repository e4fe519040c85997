package browser

import (
	"errors"
	"fmt"
)

// ErrPopupTimeout is returned when no popup surface appears within the
// caller-supplied wait.
var ErrPopupTimeout = errors.New("no popup window detected within timeout")

// ErrNoSession is returned when an operation requires a live session and
// none exists. This is a structural failure.
var ErrNoSession = errors.New("no active browser session")

// SessionError is a fatal failure to create or attach a browser session.
// Launching a browser process is not retried automatically.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s failed: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
