package stream

import (
	"context"
	"errors"
	"fmt"
)

// ErrReadTimeout is the cancellation cause of a session whose upstream body
// stayed silent longer than the configured read timeout.
var ErrReadTimeout = errors.New("upstream read timed out")

// TransportError reports a failure of the upstream connection: the request
// could not be built or sent, or a body read failed.
type TransportError struct {
	// Op is the failed operation: "request", "connect" or "read".
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports an upstream response with a non-success status code.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.Code, e.Body)
}

// EmitError reports a Sink that rejected a record.
type EmitError struct {
	Err error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emitting record: %v", e.Err)
}

func (e *EmitError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err ended a session. Cancellation is not fatal: it
// is requested by the caller.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var (
		transportErr *TransportError
		statusErr    *StatusError
		emitErr      *EmitError
	)
	switch {
	case errors.As(err, &transportErr), errors.As(err, &statusErr), errors.As(err, &emitErr):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}
