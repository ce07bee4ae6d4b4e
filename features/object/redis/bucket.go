// Package redis implements object.Bucket on Redis hashes. Each bucket key
// maps to one hash holding the blob bytes, the HTTP metadata and the custom
// metadata fields. Redis strings are binary-safe, so blob bytes travel as a
// regular hash field.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowline.dev/flowline/engine/object"
	redisclient "flowline.dev/flowline/features/object/redis/clients/redis"
)

const (
	defaultKeyPrefix = "flowline:objects:"

	fieldData         = "data"
	fieldContentType  = "contentType"
	fieldCacheControl = "cacheControl"
	metaFieldPrefix   = "meta:"
)

type (
	// Options configures the Redis bucket.
	Options struct {
		// Client is the Redis object client. Required.
		Client redisclient.Client
		// KeyPrefix namespaces every bucket key. Defaults to "flowline:objects:".
		KeyPrefix string
	}

	// Bucket implements object.Bucket on Redis hashes.
	Bucket struct {
		client redisclient.Client
		prefix string
	}
)

// New constructs a Bucket.
func New(opts Options) (*Bucket, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Bucket{client: opts.Client, prefix: prefix}, nil
}

// Put stores the blob and its metadata under key, replacing any previous value.
func (b *Bucket) Put(ctx context.Context, key string, data []byte, opts object.PutOptions) error {
	if key == "" {
		return errors.New("key is required")
	}
	fields := make(map[string]string, 3+len(opts.CustomMetadata))
	fields[fieldData] = string(data)
	if opts.ContentType != "" {
		fields[fieldContentType] = opts.ContentType
	}
	if opts.CacheControl != "" {
		fields[fieldCacheControl] = opts.CacheControl
	}
	for k, v := range opts.CustomMetadata {
		fields[metaFieldPrefix+k] = v
	}
	if err := b.client.SetHash(ctx, b.prefix+key, fields); err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}

// Get returns the blob stored under key, or object.ErrNotFound.
func (b *Bucket) Get(ctx context.Context, key string) (*object.BucketObject, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", object.ErrNotFound)
	}
	fields, ok, err := b.client.GetHash(ctx, b.prefix+key)
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	if !ok {
		return nil, object.ErrNotFound
	}
	obj := &object.BucketObject{
		Data:        []byte(fields[fieldData]),
		ContentType: fields[fieldContentType],
	}
	for k, v := range fields {
		if name, found := strings.CutPrefix(k, metaFieldPrefix); found {
			if obj.CustomMetadata == nil {
				obj.CustomMetadata = make(map[string]string)
			}
			obj.CustomMetadata[name] = v
		}
	}
	return obj, nil
}

// Delete removes the blob stored under key. A missing key returns
// object.ErrNotFound, which the object store treats as success.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if key == "" {
		return object.ErrNotFound
	}
	removed, err := b.client.Delete(ctx, b.prefix+key)
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	if !removed {
		return object.ErrNotFound
	}
	return nil
}
