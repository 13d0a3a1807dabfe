package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/relay/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionCompleted is emitted after a streaming session reached
	// a terminal state and its record was stored.
	EventTypeSessionCompleted = "relay.session.completed"
)

// SessionCompletedEvent is a transport-neutral event payload for a finished
// streaming session.
type SessionCompletedEvent struct {
	SchemaVersion int                   `json:"schema_version"`
	EventType     string                `json:"event_type"`
	EventID       string                `json:"event_id"`
	EmittedAt     time.Time             `json:"emitted_at"`
	Source        EventSource           `json:"source"`
	Session       storage.SessionRecord `json:"session"`
}

// EventSource identifies where the session originated.
type EventSource struct {
	// Path is the relay route that served the session, empty for the CLI.
	Path     string `json:"path,omitempty"`
	Provider string `json:"provider"`
}

// NewSessionCompletedEvent wraps rec in a new event.
func NewSessionCompletedEvent(rec *storage.SessionRecord, path string) *SessionCompletedEvent {
	return &SessionCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSessionCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			Path:     path,
			Provider: rec.Provider,
		},
		Session: *rec,
	}
}

// Validate reports whether e can be published. Every publisher calls it.
func (e *SessionCompletedEvent) Validate() error {
	if e == nil {
		return ErrNilSessionEvent
	}
	if e.Session.ID == "" {
		return ErrMissingSessionID
	}
	return nil
}
