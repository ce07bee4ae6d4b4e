// Package object provides content-addressed blob storage for binary workflow
// parameters. Blobs are stored in a Bucket — the minimal key/value surface the
// host provides (R2, S3, filesystem, Redis) — under server-chosen, time-ordered
// ids. The engine never exposes raw bucket keys to nodes; values travel between
// nodes as References and are materialized back into bytes by the parameter
// system immediately before a node executes.
//
// Access control is deliberately absent here: the store records the owning
// organization and execution in the object metadata and callers decide who may
// read a reference (see runtime.AuthorizeObjectRead).
package object

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// CacheControl is the HTTP cache policy applied to every stored object.
	// Objects are immutable once written, so aggressive caching is safe.
	CacheControl = "public, max-age=31536000"

	metaID           = "id"
	metaCreatedAt    = "createdAt"
	metaOrganization = "organizationId"
	metaExecution    = "executionId"
)

var (
	// ErrNotFound indicates the requested object or key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrUnavailable indicates the backing bucket could not serve the request.
	// Callers decide whether to retry; the store never does.
	ErrUnavailable = errors.New("object storage unavailable")
)

type (
	// Reference identifies a stored blob. It is the wire form of every binary
	// parameter value: nodes exchange references, never raw bytes.
	Reference struct {
		// ID is the server-chosen object identifier (UUIDv7, time-ordered).
		ID string `json:"id"`
		// MimeType records the content type the blob was written with.
		MimeType string `json:"mimeType"`
	}

	// Ownership names the principals an object belongs to. Objects written
	// during a run carry the execution id and live as long as the execution
	// record; objects without one are organization assets.
	Ownership struct {
		// OrganizationID is the owning organization. Required.
		OrganizationID string
		// ExecutionID is the owning execution, if the object was produced by a run.
		ExecutionID string
	}

	// Metadata is the custom metadata stored alongside each object at write time.
	Metadata struct {
		ID             string
		CreatedAt      time.Time
		OrganizationID string
		ExecutionID    string
	}

	// Object pairs blob bytes with the metadata recorded when they were written.
	Object struct {
		Data     []byte
		Metadata Metadata
	}

	// Store is the engine-facing object storage contract.
	Store interface {
		// WriteObject stores data under a fresh id and returns the reference.
		WriteObject(ctx context.Context, data []byte, mimeType string, owner Ownership) (Reference, error)
		// ReadObject returns the blob and its write-time metadata.
		// Returns ErrNotFound if the reference does not resolve.
		ReadObject(ctx context.Context, ref Reference) (Object, error)
		// DeleteObject removes the blob. Deleting a missing object is not an error.
		DeleteObject(ctx context.Context, ref Reference) error
	}

	// Bucket is the blob surface the host supplies. Implementations translate
	// Put/Get/Delete onto their backend and surface ErrNotFound for missing keys.
	// No other semantics (listing, atomicity across keys) are assumed.
	Bucket interface {
		Put(ctx context.Context, key string, data []byte, opts PutOptions) error
		Get(ctx context.Context, key string) (*BucketObject, error)
		Delete(ctx context.Context, key string) error
	}

	// PutOptions carries the HTTP and custom metadata stored with a blob.
	PutOptions struct {
		ContentType    string
		CacheControl   string
		CustomMetadata map[string]string
	}

	// BucketObject is the result of a Bucket read.
	BucketObject struct {
		Data           []byte
		ContentType    string
		CustomMetadata map[string]string
	}

	// BucketStore implements Store on top of any Bucket.
	BucketStore struct {
		bucket Bucket
		now    func() time.Time
		newID  func() (string, error)
	}
)

// ObjectKey returns the bucket key for a stored object id.
func ObjectKey(id string) string {
	return fmt.Sprintf("objects/%s/object.data", id)
}

// NewStore builds a BucketStore over the given bucket.
func NewStore(bucket Bucket) (*BucketStore, error) {
	if bucket == nil {
		return nil, errors.New("bucket is required")
	}
	return &BucketStore{
		bucket: bucket,
		now:    time.Now,
		newID:  newObjectID,
	}, nil
}

// WriteObject stores data under a fresh time-ordered id. The custom metadata
// records the id, creation time and ownership so readers can enforce access
// control without a second lookup.
func (s *BucketStore) WriteObject(ctx context.Context, data []byte, mimeType string, owner Ownership) (Reference, error) {
	if owner.OrganizationID == "" {
		return Reference{}, errors.New("organization id is required")
	}
	id, err := s.newID()
	if err != nil {
		return Reference{}, fmt.Errorf("generate object id: %w", err)
	}
	meta := map[string]string{
		metaID:           id,
		metaCreatedAt:    s.now().UTC().Format(time.RFC3339Nano),
		metaOrganization: owner.OrganizationID,
	}
	if owner.ExecutionID != "" {
		meta[metaExecution] = owner.ExecutionID
	}
	opts := PutOptions{
		ContentType:    mimeType,
		CacheControl:   CacheControl,
		CustomMetadata: meta,
	}
	if err := s.bucket.Put(ctx, ObjectKey(id), data, opts); err != nil {
		return Reference{}, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	return Reference{ID: id, MimeType: mimeType}, nil
}

// ReadObject returns the blob bytes and write-time metadata for ref.
func (s *BucketStore) ReadObject(ctx context.Context, ref Reference) (Object, error) {
	if ref.ID == "" {
		return Object{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	obj, err := s.bucket.Get(ctx, ObjectKey(ref.ID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Object{}, err
		}
		return Object{}, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	return Object{Data: obj.Data, Metadata: parseMetadata(obj.CustomMetadata)}, nil
}

// DeleteObject removes the blob for ref.
func (s *BucketStore) DeleteObject(ctx context.Context, ref Reference) error {
	if ref.ID == "" {
		return nil
	}
	if err := s.bucket.Delete(ctx, ObjectKey(ref.ID)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	return nil
}

func parseMetadata(custom map[string]string) Metadata {
	meta := Metadata{
		ID:             custom[metaID],
		OrganizationID: custom[metaOrganization],
		ExecutionID:    custom[metaExecution],
	}
	if raw := custom[metaCreatedAt]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			meta.CreatedAt = ts
		}
	}
	return meta
}

// newObjectID returns a time-ordered UUID so object keys sort by creation time.
func newObjectID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
