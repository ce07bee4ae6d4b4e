// Package execution defines the per-run execution record: the authoritative
// report of one workflow run, with one NodeExecution entry per resolved node.
// The engine exclusively owns the record while the run is in flight; it is
// persisted once at the end and streamed incrementally to observers.
package execution

import (
	"context"
	"errors"
	"time"

	"flowline.dev/flowline/engine/param"
)

// Status is the lifecycle state of an execution or of one node within it.
// Workflow-level records only ever use idle, executing, completed and error;
// skipped applies to nodes on un-taken conditional branches.
type Status string

const (
	// StatusIdle means not yet started.
	StatusIdle Status = "idle"
	// StatusExecuting means currently running.
	StatusExecuting Status = "executing"
	// StatusCompleted means finished successfully.
	StatusCompleted Status = "completed"
	// StatusSkipped means the node was reachable only through an un-taken
	// conditional branch and never executed.
	StatusSkipped Status = "skipped"
	// StatusError means the node or execution failed.
	StatusError Status = "error"
)

// Visibility controls whether execution-scoped objects are readable outside
// the owning organization.
type Visibility string

const (
	// VisibilityPrivate restricts reads to the owning organization.
	VisibilityPrivate Visibility = "private"
	// VisibilityPublic allows anyone holding an object reference to read
	// objects owned by this execution.
	VisibilityPublic Visibility = "public"
)

// ErrNotFound indicates no execution record exists for the requested id
// within the requesting organization.
var ErrNotFound = errors.New("execution not found")

type (
	// NodeExecution is the trace entry for one node.
	NodeExecution struct {
		// NodeID is the workflow node this entry belongs to.
		NodeID string `json:"nodeId"`
		// Status is the terminal node state (completed, skipped or error).
		Status Status `json:"status"`
		// Outputs holds the node's wire-form outputs by output name.
		Outputs map[string]param.Value `json:"outputs,omitempty"`
		// Error carries the node error message when Status is error.
		Error string `json:"error,omitempty"`
		// Usage is the compute cost charged for this node (zero unless completed).
		Usage int64 `json:"usage,omitempty"`
	}

	// Record is the full execution report persisted at the end of a run and
	// pushed to monitoring observers while it progresses.
	Record struct {
		ID             string          `json:"id"`
		WorkflowID     string          `json:"workflowId"`
		DeploymentID   string          `json:"deploymentId,omitempty"`
		OrganizationID string          `json:"organizationId"`
		Status         Status          `json:"status"`
		NodeExecutions []NodeExecution `json:"nodeExecutions"`
		Error          string          `json:"error,omitempty"`
		StartedAt      *time.Time      `json:"startedAt,omitempty"`
		EndedAt        *time.Time      `json:"endedAt,omitempty"`
		Visibility     Visibility      `json:"visibility"`
		CreatedAt      time.Time       `json:"createdAt"`
		UpdatedAt      time.Time       `json:"updatedAt"`
	}

	// Store persists execution records. Implementations split the record into
	// a row (status, error, timestamps) and a blob (node executions) but must
	// present Save as atomic from the caller's perspective: on blob failure
	// the row is reverted or marked errored.
	Store interface {
		// Save writes the full record, replacing any previous version.
		Save(ctx context.Context, rec Record) error
		// Get returns the record by id, filtered by owning organization.
		// Returns ErrNotFound if no matching record exists.
		Get(ctx context.Context, id, organizationID string) (Record, error)
	}
)

// Node returns the node execution entry for the given node id.
func (r Record) Node(nodeID string) (NodeExecution, bool) {
	for _, ne := range r.NodeExecutions {
		if ne.NodeID == nodeID {
			return ne, true
		}
	}
	return NodeExecution{}, false
}

// Usage sums the usage across all node executions. The total equals what the
// run reports to the credit service.
func (r Record) Usage() int64 {
	var total int64
	for _, ne := range r.NodeExecutions {
		total += ne.Usage
	}
	return total
}

// Clone returns a deep copy of the record, safe to hand to observers while
// the scheduler keeps mutating the original.
func (r Record) Clone() Record {
	out := r
	if r.StartedAt != nil {
		ts := *r.StartedAt
		out.StartedAt = &ts
	}
	if r.EndedAt != nil {
		ts := *r.EndedAt
		out.EndedAt = &ts
	}
	if r.NodeExecutions != nil {
		out.NodeExecutions = make([]NodeExecution, len(r.NodeExecutions))
		for i, ne := range r.NodeExecutions {
			copied := ne
			if ne.Outputs != nil {
				copied.Outputs = make(map[string]param.Value, len(ne.Outputs))
				for k, v := range ne.Outputs {
					copied.Outputs[k] = v
				}
			}
			out.NodeExecutions[i] = copied
		}
	}
	return out
}
