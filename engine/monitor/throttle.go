package monitor

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// Throttled wraps a Sink with a non-blocking rate limiter. Intermediate
// snapshots beyond the configured rate are dropped silently; Final snapshots
// always pass so observers never miss the terminal state. Use this in front of
// network-backed sinks so chatty executions cannot saturate the transport.
type Throttled struct {
	next    Sink
	limiter *rate.Limiter
}

// NewThrottled wraps next, allowing at most perSecond intermediate updates per
// second with the given burst.
func NewThrottled(next Sink, perSecond float64, burst int) (*Throttled, error) {
	if next == nil {
		return nil, errors.New("sink is required")
	}
	if perSecond <= 0 {
		return nil, errors.New("rate must be positive")
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}, nil
}

// Send forwards the update unless it is an intermediate snapshot over the
// configured rate, in which case it is dropped without blocking.
func (t *Throttled) Send(ctx context.Context, update Update) error {
	if !update.Final && !t.limiter.Allow() {
		return nil
	}
	return t.next.Send(ctx, update)
}

// Close closes the wrapped sink.
func (t *Throttled) Close(ctx context.Context) error {
	return t.next.Close(ctx)
}
