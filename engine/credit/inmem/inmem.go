// Package inmem provides an in-memory credit.Service for tests and local
// development. It mirrors the counter model of features/credit/redis: a fixed
// balance per organization, a usage counter that only ever grows, and
// has-credits meaning usage strictly below balance.
package inmem

import (
	"context"
	"sync"
)

// Ledger implements credit.Service with per-organization counters held in
// memory. All operations are thread-safe.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
	usage    map[string]int64
}

// New constructs a Ledger with the given balances. Organizations without a
// balance entry have no credits.
func New(balances map[string]int64) *Ledger {
	copied := make(map[string]int64, len(balances))
	for org, credits := range balances {
		copied[org] = credits
	}
	return &Ledger{balances: copied, usage: make(map[string]int64)}
}

// HasEnoughCredits reports whether the organization's recorded usage is below
// its balance. A missing balance denies.
func (l *Ledger) HasEnoughCredits(_ context.Context, organizationID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[organizationID]
	if !ok {
		return false, nil
	}
	return l.usage[organizationID] < balance, nil
}

// RecordUsage accumulates usage for the organization. The balance is never
// modified. Zero or negative usage is a no-op.
func (l *Ledger) RecordUsage(_ context.Context, organizationID string, usage int64) error {
	if usage <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.usage[organizationID] += usage
	return nil
}

// Recorded returns the total usage recorded for an organization. Test helper,
// not part of credit.Service.
func (l *Ledger) Recorded(organizationID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage[organizationID]
}
