// Package inmem provides an in-memory execution.Store for tests and local
// development. Records live in a map keyed by execution id with no durability;
// production deployments should use features/execution/mongo.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"flowline.dev/flowline/engine/execution"
)

// Store implements execution.Store in memory. All operations are thread-safe
// and records are defensively copied on both write and read.
type Store struct {
	mu      sync.RWMutex
	records map[string]execution.Record
}

// New constructs an empty Store.
func New() *Store {
	return &Store{records: make(map[string]execution.Record)}
}

// Save writes the full record, replacing any previous version.
func (s *Store) Save(_ context.Context, rec execution.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("execution id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec.Clone()
	return nil
}

// Get returns the record by id, filtered by owning organization.
func (s *Store) Get(_ context.Context, id, organizationID string) (execution.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok || rec.OrganizationID != organizationID {
		return execution.Record{}, fmt.Errorf("%w: %s", execution.ErrNotFound, id)
	}
	return rec.Clone(), nil
}
