// Package eventstream defines the events the relay publishes for finished
// sessions and the interface publishers implement.
package eventstream

import "context"

// Publisher publishes session events to an event stream backend.
type Publisher interface {
	PublishSession(ctx context.Context, event *SessionCompletedEvent) error
	Close() error
}
