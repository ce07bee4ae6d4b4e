// Package redis hosts the Redis client used by the object bucket. Callers
// build a go-redis connection, pass it to New, and receive a typed interface
// exposing only the hash operations the bucket needs.
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
	clientName       = "object-redis"
)

type (
	// Client exposes the Redis operations required by the object bucket.
	Client interface {
		health.Pinger

		// SetHash writes every field of the hash at key, creating it if needed.
		SetHash(ctx context.Context, key string, fields map[string]string) error
		// GetHash returns the full hash at key. A missing key returns ok=false.
		GetHash(ctx context.Context, key string) (fields map[string]string, ok bool, err error)
		// Delete removes the key, reporting whether it existed.
		Delete(ctx context.Context, key string) (bool, error)
	}

	// Options configures the Redis object client.
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

func (c *client) SetHash(ctx context.Context, key string, fields map[string]string) error {
	if key == "" {
		return errors.New("key is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	args := make(map[string]any, len(fields))
	for k, v := range fields {
		args[k] = v
	}
	return c.redis.HSet(ctx, key, args).Err()
}

func (c *client) GetHash(ctx context.Context, key string) (map[string]string, bool, error) {
	if key == "" {
		return nil, false, errors.New("key is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	fields, err := c.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, err
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return fields, true, nil
}

func (c *client) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	removed, err := c.redis.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
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
