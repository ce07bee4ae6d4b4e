// Package inmem provides an in-memory object.Bucket for tests and local
// development. Blobs live in a map keyed by bucket key with no durability.
// Production deployments should use a real backend such as
// features/object/redis.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"flowline.dev/flowline/engine/object"
)

// Bucket implements object.Bucket in memory. All operations are thread-safe
// and data is defensively copied on both write and read.
type Bucket struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	data        []byte
	contentType string
	custom      map[string]string
}

// New constructs an empty Bucket ready for use.
func New() *Bucket {
	return &Bucket{entries: make(map[string]entry)}
}

// Put stores data under key, replacing any previous value.
func (b *Bucket) Put(_ context.Context, key string, data []byte, opts object.PutOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = entry{
		data:        append([]byte(nil), data...),
		contentType: opts.ContentType,
		custom:      cloneMeta(opts.CustomMetadata),
	}
	return nil
}

// Get returns the value stored under key or object.ErrNotFound.
func (b *Bucket) Get(_ context.Context, key string) (*object.BucketObject, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, key)
	}
	return &object.BucketObject{
		Data:           append([]byte(nil), e.data...),
		ContentType:    e.contentType,
		CustomMetadata: cloneMeta(e.custom),
	}, nil
}

// Delete removes the value stored under key. Missing keys are not an error.
func (b *Bucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

// Len reports the number of stored blobs. Test helper, not part of object.Bucket.
func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func cloneMeta(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
