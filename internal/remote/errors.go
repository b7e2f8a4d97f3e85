package remote

import (
	"errors"
	"fmt"
)

// ErrTransport marks calls that never completed: connection refused, timeout,
// DNS failure. A completed call with an error status is never a transport
// failure.
var ErrTransport = errors.New("transport failure")

// ErrApplication marks completed calls the server explicitly rejected with a
// non-2xx status. These are never queued; the caller must handle them.
var ErrApplication = errors.New("application error")

// StatusError carries the HTTP status and server-provided message of a
// rejected request. It unwraps to ErrApplication.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: server returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: server returned %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrApplication }
