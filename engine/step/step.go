// Package step abstracts the named sub-units of work within one execution.
// On a step-capable host each Do call can become a durable, at-most-once
// checkpoint; the default Direct runner simply calls the function with a
// wall-clock budget. The engine never assumes anything beyond the Runner
// interface, so hosts can substitute durable implementations without touching
// scheduler code.
package step

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout indicates a step exceeded its wall-clock budget. Callers surface
// it as the node (or run) error message "timeout".
var ErrTimeout = errors.New("timeout")

// DefaultTimeout is the per-step wall-clock budget applied when a runner is
// constructed without one.
const DefaultTimeout = 10 * time.Minute

type (
	// Runner executes one named step. Implementations may persist the step
	// outcome (durable hosts) or call fn directly.
	Runner interface {
		// Do runs fn under the step's wall-clock budget. The context passed to
		// fn carries the deadline; fn is expected to respect it, and Do maps
		// deadline exhaustion to ErrTimeout regardless.
		Do(ctx context.Context, name string, fn func(ctx context.Context) error) error
	}

	// Direct is the default Runner: it calls fn in the caller's goroutine with
	// a per-step timeout and no durability.
	Direct struct {
		// Timeout is the per-step wall-clock budget. Zero means DefaultTimeout.
		Timeout time.Duration
	}
)

// Do calls fn with a derived deadline context and maps deadline exhaustion to
// ErrTimeout.
func (d Direct) Do(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	budget := d.Timeout
	if budget <= 0 {
		budget = DefaultTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	err := fn(stepCtx)
	if errors.Is(err, context.DeadlineExceeded) || (err == nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded)) {
		return ErrTimeout
	}
	return err
}
