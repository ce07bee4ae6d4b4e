// Package mongo implements execution.Store on MongoDB. Each record is split
// across two collections: a row holding the queryable fields and a trace blob
// holding the serialized node executions. Save writes the row first and the
// blob next; a blob failure marks the row errored so readers never see a
// completed row with a missing trace.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"flowline.dev/flowline/engine/execution"
	mongoclient "flowline.dev/flowline/features/execution/mongo/clients/mongo"
)

type (
	// Options configures the Mongo execution store.
	Options struct {
		// Client is the Mongo execution client. Required.
		Client mongoclient.Client
	}

	// Store implements execution.Store on MongoDB.
	Store struct {
		client mongoclient.Client
	}
)

// New constructs a Store.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	return &Store{client: opts.Client}, nil
}

// Save writes the full record. The row goes first so the execution is always
// discoverable; if the trace blob write fails afterwards the row is marked
// errored and the failure is returned.
func (s *Store) Save(ctx context.Context, rec execution.Record) error {
	if err := s.client.UpsertRow(ctx, rec); err != nil {
		return fmt.Errorf("save execution row: %w", err)
	}
	trace, err := json.Marshal(rec.NodeExecutions)
	if err != nil {
		return fmt.Errorf("encode execution trace: %w", err)
	}
	if err := s.client.UpsertTrace(ctx, rec.ID, trace); err != nil {
		msg := fmt.Sprintf("trace persistence failed: %s", err)
		if markErr := s.client.MarkRowError(ctx, rec.ID, msg); markErr != nil {
			return fmt.Errorf("save execution trace: %w (row not marked: %s)", err, markErr)
		}
		return fmt.Errorf("save execution trace: %w", err)
	}
	return nil
}

// Get returns the record by id within the organization, reassembled from its
// row and trace blob. A missing trace yields a record with no node executions.
func (s *Store) Get(ctx context.Context, id, organizationID string) (execution.Record, error) {
	rec, err := s.client.FindRow(ctx, id, organizationID)
	if err != nil {
		return execution.Record{}, err
	}
	trace, err := s.client.FindTrace(ctx, id)
	if err != nil {
		return execution.Record{}, fmt.Errorf("load execution trace: %w", err)
	}
	if len(trace) > 0 {
		if err := json.Unmarshal(trace, &rec.NodeExecutions); err != nil {
			return execution.Record{}, fmt.Errorf("decode execution trace: %w", err)
		}
	}
	return rec, nil
}
