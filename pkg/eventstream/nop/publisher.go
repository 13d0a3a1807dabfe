// Package nop provides the publisher used when no event stream backend is
// configured.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/relay/pkg/eventstream"
)

// Publisher validates and discards session events, counting the ones it
// accepted.
type Publisher struct {
	published atomic.Uint64
}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishSession validates event and drops it.
func (p *Publisher) PublishSession(_ context.Context, event *eventstream.SessionCompletedEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	p.published.Add(1)
	return nil
}

// Published returns how many events were accepted.
func (p *Publisher) Published() uint64 {
	return p.published.Load()
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
