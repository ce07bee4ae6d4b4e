// Package snapshot persists the namespaced JSON artifacts that accompany
// workflows and executions in the object bucket: the canonical workflow
// definition, the final execution record, and the frozen copy of the graph as
// it was executed. Artifacts are plain JSON documents with small custom
// metadata headers so hosts can inspect them without decoding the body.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flowline.dev/flowline/engine/execution"
	"flowline.dev/flowline/engine/object"
	"flowline.dev/flowline/engine/workflow"
)

const contentTypeJSON = "application/json"

// Bucket keys for the three artifact namespaces.
func workflowKey(id string) string  { return fmt.Sprintf("workflows/%s.json", id) }
func executionKey(id string) string { return fmt.Sprintf("executions/%s/execution.json", id) }
func executionWorkflowKey(id string) string {
	return fmt.Sprintf("executions/%s/workflow.json", id)
}

// Store reads and writes workflow and execution snapshots on a Bucket.
type Store struct {
	bucket object.Bucket
	now    func() time.Time
}

// New constructs a snapshot Store over the given bucket.
func New(bucket object.Bucket) (*Store, error) {
	if bucket == nil {
		return nil, errors.New("bucket is required")
	}
	return &Store{bucket: bucket, now: time.Now}, nil
}

// WriteWorkflow stores the canonical workflow definition at workflows/{id}.json.
func (s *Store) WriteWorkflow(ctx context.Context, wf workflow.Workflow) error {
	if wf.ID == "" {
		return errors.New("workflow id is required")
	}
	meta := map[string]string{
		"workflowId": wf.ID,
		"name":       wf.Name,
		"type":       string(wf.Trigger),
		"updatedAt":  s.timestamp(),
	}
	return s.putJSON(ctx, workflowKey(wf.ID), wf, meta)
}

// ReadWorkflow loads the canonical workflow definition.
func (s *Store) ReadWorkflow(ctx context.Context, id string) (workflow.Workflow, error) {
	var wf workflow.Workflow
	if err := s.getJSON(ctx, workflowKey(id), &wf); err != nil {
		return workflow.Workflow{}, err
	}
	return wf, nil
}

// DeleteWorkflow removes the canonical workflow definition.
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	return s.delete(ctx, workflowKey(id))
}

// WriteExecution stores the execution record at executions/{id}/execution.json.
func (s *Store) WriteExecution(ctx context.Context, rec execution.Record) error {
	if rec.ID == "" {
		return errors.New("execution id is required")
	}
	meta := map[string]string{
		"workflowId": rec.WorkflowID,
		"status":     string(rec.Status),
		"updatedAt":  s.timestamp(),
	}
	return s.putJSON(ctx, executionKey(rec.ID), rec, meta)
}

// ReadExecution loads an execution record snapshot.
func (s *Store) ReadExecution(ctx context.Context, id string) (execution.Record, error) {
	var rec execution.Record
	if err := s.getJSON(ctx, executionKey(id), &rec); err != nil {
		return execution.Record{}, err
	}
	return rec, nil
}

// DeleteExecution removes an execution record snapshot.
func (s *Store) DeleteExecution(ctx context.Context, id string) error {
	return s.delete(ctx, executionKey(id))
}

// WriteExecutionWorkflow stores the frozen copy of the graph as executed at
// executions/{id}/workflow.json.
func (s *Store) WriteExecutionWorkflow(ctx context.Context, executionID string, wf workflow.Workflow) error {
	if executionID == "" {
		return errors.New("execution id is required")
	}
	meta := map[string]string{
		"executionId": executionID,
		"workflowId":  wf.ID,
		"updatedAt":   s.timestamp(),
	}
	return s.putJSON(ctx, executionWorkflowKey(executionID), wf, meta)
}

// ReadExecutionWorkflow loads the frozen graph for an execution.
func (s *Store) ReadExecutionWorkflow(ctx context.Context, executionID string) (workflow.Workflow, error) {
	var wf workflow.Workflow
	if err := s.getJSON(ctx, executionWorkflowKey(executionID), &wf); err != nil {
		return workflow.Workflow{}, err
	}
	return wf, nil
}

func (s *Store) putJSON(ctx context.Context, key string, doc any, meta map[string]string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", key, err)
	}
	opts := object.PutOptions{
		ContentType:    contentTypeJSON,
		CacheControl:   object.CacheControl,
		CustomMetadata: meta,
	}
	if err := s.bucket.Put(ctx, key, data, opts); err != nil {
		return fmt.Errorf("%w: %s", object.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, out any) error {
	obj, err := s.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %s", object.ErrUnavailable, err)
	}
	if err := json.Unmarshal(obj.Data, out); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %s", object.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
