// Package credit defines the compute credit accounting consumed by the
// runtime: a pre-flight balance check before any node runs and a single usage
// record at the end of the run.
package credit

import "context"

// Service is consulted once at the start of a run and once at the end.
type Service interface {
	// HasEnoughCredits reports whether the organization may start a run.
	HasEnoughCredits(ctx context.Context, organizationID string) (bool, error)
	// RecordUsage charges the summed usage of all completed node executions.
	RecordUsage(ctx context.Context, organizationID string, usage int64) error
}

// Unlimited is a Service that always approves and discards usage. It is the
// default when the host does not bill runs, and the test default.
type Unlimited struct{}

// HasEnoughCredits always returns true.
func (Unlimited) HasEnoughCredits(context.Context, string) (bool, error) { return true, nil }

// RecordUsage discards the usage.
func (Unlimited) RecordUsage(context.Context, string, int64) error { return nil }
