package eventstream

import "errors"

var (
	// ErrNilSessionEvent indicates a nil session event payload was provided to a publisher.
	ErrNilSessionEvent = errors.New("nil session event")

	// ErrMissingSessionID indicates an event whose session record has no id.
	ErrMissingSessionID = errors.New("session event without a session id")
)
