// Package telemetry defines the observability seams the engine emits through:
// structured logging, metrics and tracing. The interfaces are intentionally
// small so hosts can plug their own stack; the provided implementations
// delegate to goa.design/clue/log and the global OpenTelemetry providers, with
// no-op variants as the test default.
package telemetry

import (
	"context"
	"time"
)

type (
	// Logger emits structured log entries with alternating key/value pairs.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, err error, msg string, keyvals ...any)
	}

	// Metrics records engine instrumentation. Tags are alternating key/value
	// string pairs.
	Metrics interface {
		// AddCounter increments the named counter.
		AddCounter(name string, value float64, tags ...string)
		// RecordDuration records a duration histogram sample.
		RecordDuration(name string, d time.Duration, tags ...string)
	}

	// Tracer opens spans around engine operations. End the span by calling the
	// returned function.
	Tracer interface {
		Start(ctx context.Context, name string) (context.Context, func(err error))
	}
)
