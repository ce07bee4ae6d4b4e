package telemetry

import (
	"context"
	"time"
)

type (
	// NoopLogger discards all log entries. Test default.
	NoopLogger struct{}

	// NoopMetrics discards all measurements. Test default.
	NoopMetrics struct{}

	// NoopTracer creates no spans. Test default.
	NoopTracer struct{}
)

// NewNoopLogger constructs a Logger that discards everything.
func NewNoopLogger() Logger { return NoopLogger{} }

// NewNoopMetrics constructs a Metrics recorder that discards everything.
func NewNoopMetrics() Metrics { return NoopMetrics{} }

// NewNoopTracer constructs a Tracer that opens no spans.
func NewNoopTracer() Tracer { return NoopTracer{} }

// Debug discards the entry.
func (NoopLogger) Debug(context.Context, string, ...any) {}

// Info discards the entry.
func (NoopLogger) Info(context.Context, string, ...any) {}

// Warn discards the entry.
func (NoopLogger) Warn(context.Context, string, ...any) {}

// Error discards the entry.
func (NoopLogger) Error(context.Context, error, string, ...any) {}

// AddCounter discards the measurement.
func (NoopMetrics) AddCounter(string, float64, ...string) {}

// RecordDuration discards the measurement.
func (NoopMetrics) RecordDuration(string, time.Duration, ...string) {}

// Start returns the context unchanged and a no-op end function.
func (NoopTracer) Start(ctx context.Context, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}
