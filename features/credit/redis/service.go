// Package redis implements credit.Service on Redis counters: a balance key
// written by the billing system and a usage counter the engine advances after
// every run. An organization has credits while its recorded usage stays below
// its balance.
package redis

import (
	"context"
	"errors"
	"fmt"

	redisclient "flowline.dev/flowline/features/credit/redis/clients/redis"
)

const (
	balanceKeyPrefix = "credits:"
	usageKeyPrefix   = "usage:"
)

type (
	// Options configures the Redis credit service.
	Options struct {
		// Client is the Redis credit client. Required.
		Client redisclient.Client
	}

	// Service implements credit.Service on Redis counters.
	Service struct {
		client redisclient.Client
	}
)

// New constructs a Service.
func New(opts Options) (*Service, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Service{client: opts.Client}, nil
}

// HasEnoughCredits reports whether the organization's recorded usage is below
// its balance. An organization with no balance key has no credits.
func (s *Service) HasEnoughCredits(ctx context.Context, organizationID string) (bool, error) {
	if organizationID == "" {
		return false, errors.New("organization id is required")
	}
	balance, ok, err := s.client.GetInt(ctx, balanceKeyPrefix+organizationID)
	if err != nil {
		return false, fmt.Errorf("read balance: %w", err)
	}
	if !ok {
		return false, nil
	}
	usage, _, err := s.client.GetInt(ctx, usageKeyPrefix+organizationID)
	if err != nil {
		return false, fmt.Errorf("read usage: %w", err)
	}
	return usage < balance, nil
}

// RecordUsage advances the organization's usage counter by the given amount.
func (s *Service) RecordUsage(ctx context.Context, organizationID string, usage int64) error {
	if organizationID == "" {
		return errors.New("organization id is required")
	}
	if usage <= 0 {
		return nil
	}
	if _, err := s.client.IncrBy(ctx, usageKeyPrefix+organizationID, usage); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}
