// Package inmemory provides a map backed storage driver for tests and
// ephemeral relays.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/relay/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of records
	mu sync.RWMutex

	// records is the in memory map of session records keyed by session ID
	records map[string]*storage.SessionRecord
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*storage.SessionRecord),
	}
}

// Put stores a copy of rec, replacing any record with the same ID.
func (s *Driver) Put(_ context.Context, rec *storage.SessionRecord) error {
	if rec == nil {
		return storage.ErrNilRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	s.records[rec.ID] = &stored
	return nil
}

// Get retrieves a record by its session ID.
func (s *Driver) Get(_ context.Context, id string) (*storage.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	found := *rec
	return &found, nil
}

// List returns the most recent records, newest first.
func (s *Driver) List(_ context.Context, limit int) ([]*storage.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*storage.SessionRecord, 0, len(s.records))
	for _, rec := range s.records {
		r := *rec
		records = append(records, &r)
	}

	slices.SortFunc(records, func(a, b *storage.SessionRecord) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Stats aggregates the stored records in place.
func (s *Driver) Stats(_ context.Context) (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]storage.StatsGroup, 0, len(s.records))
	for _, rec := range s.records {
		groups = append(groups, rec.Group())
	}
	return storage.NewStats(groups...), nil
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}
