// Package redis hosts the Redis client used by the credit service: plain
// integer counters read with GET and advanced with INCRBY.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"goa.design/clue/health"
)

const (
	defaultOpTimeout = 5 * time.Second
	clientName       = "credit-redis"
)

type (
	// Client exposes the counter operations required by the credit service.
	Client interface {
		health.Pinger

		// GetInt reads the integer value at key. A missing key returns ok=false.
		GetInt(ctx context.Context, key string) (value int64, ok bool, err error)
		// IncrBy advances the counter at key and returns the new value.
		IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	}

	// Options configures the Redis credit client.
	Options struct {
		// Redis is the backing connection. Required.
		Redis *goredis.Client
		// Timeout bounds individual operations. Defaults to 5s.
		Timeout time.Duration
	}

	client struct {
		redis   *goredis.Client
		timeout time.Duration
	}
)

// New returns a Client backed by the given Redis connection.
func New(opts Options) (Client, error) {
	if opts.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &client{redis: opts.Redis, timeout: timeout}, nil
}

func (c *client) Name() string {
	return clientName
}

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.redis.Ping(ctx).Err()
}

func (c *client) GetInt(ctx context.Context, key string) (int64, bool, error) {
	if key == "" {
		return 0, false, errors.New("key is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	value, err := c.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return value, true, nil
}

func (c *client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if key == "" {
		return 0, errors.New("key is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.redis.IncrBy(ctx, key, delta).Result()
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
