// Package storage
package storage

import (
	"context"
)

// Driver defines the interface for persisting and retrieving session records
// in a storage backend.
type Driver interface {
	// Put stores a record. A record with the same ID is replaced.
	Put(ctx context.Context, rec *SessionRecord) error

	// Get retrieves a record by its session ID.
	Get(ctx context.Context, id string) (*SessionRecord, error)

	// List returns the most recent records, newest first. A limit of zero
	// or less returns every record.
	List(ctx context.Context, limit int) ([]*SessionRecord, error)

	// Stats aggregates every stored record without loading them.
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the store and releases any resources.
	Close() error
}
