// Package monitor provides the fire-and-forget channel the scheduler pushes
// incremental execution snapshots into. Sinks deliver snapshots to interactive
// observers (SSE, WebSockets, Pulse streams); they must never block execution,
// and delivery failures are logged and swallowed by the caller.
package monitor

import (
	"context"

	"flowline.dev/flowline/engine/execution"
)

type (
	// Update is one execution snapshot pushed to an observer.
	Update struct {
		// SessionID identifies the observer session. The scheduler skips the
		// send entirely when no session is attached to the run.
		SessionID string
		// Final marks the terminal snapshot emitted once at run completion.
		Final bool
		// Execution is a deep copy of the record at the time of the update;
		// sinks may retain it without racing the scheduler.
		Execution execution.Record
	}

	// Sink delivers execution snapshots to observers. Implementations must be
	// safe for concurrent Send calls: a host runs many executions in parallel
	// against one sink.
	Sink interface {
		// Send pushes one snapshot. Errors indicate delivery failure only; the
		// scheduler logs and swallows them, never failing the run.
		Send(ctx context.Context, update Update) error
		// Close releases sink resources. Idempotent.
		Close(ctx context.Context) error
	}

	// NoopSink discards every update. It is the default when a run has no
	// observer and the test default.
	NoopSink struct{}
)

// Send discards the update.
func (NoopSink) Send(context.Context, Update) error { return nil }

// Close is a no-op.
func (NoopSink) Close(context.Context) error { return nil }
