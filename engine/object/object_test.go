package object_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"flowline.dev/flowline/engine/object"
	"flowline.dev/flowline/engine/object/inmem"
)

func TestWriteReadDelete(t *testing.T) {
	ctx := context.Background()
	bucket := inmem.New()
	store, err := object.NewStore(bucket)
	require.NoError(t, err)

	ref, err := store.WriteObject(ctx, []byte("payload"), "text/plain", object.Ownership{
		OrganizationID: "org-1",
		ExecutionID:    "exec-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, ref.ID)
	require.Equal(t, "text/plain", ref.MimeType)

	obj, err := store.ReadObject(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), obj.Data)
	require.Equal(t, ref.ID, obj.Metadata.ID)
	require.Equal(t, "org-1", obj.Metadata.OrganizationID)
	require.Equal(t, "exec-1", obj.Metadata.ExecutionID)
	require.False(t, obj.Metadata.CreatedAt.IsZero())

	require.NoError(t, store.DeleteObject(ctx, ref))
	_, err = store.ReadObject(ctx, ref)
	require.ErrorIs(t, err, object.ErrNotFound)
}

func TestWriteObjectRequiresOrganization(t *testing.T) {
	store, err := object.NewStore(inmem.New())
	require.NoError(t, err)
	_, err = store.WriteObject(context.Background(), []byte("x"), "text/plain", object.Ownership{})
	require.Error(t, err)
}

func TestTimeOrderedIDs(t *testing.T) {
	ctx := context.Background()
	store, err := object.NewStore(inmem.New())
	require.NoError(t, err)
	owner := object.Ownership{OrganizationID: "org"}

	first, err := store.WriteObject(ctx, []byte("a"), "text/plain", owner)
	require.NoError(t, err)
	second, err := store.WriteObject(ctx, []byte("b"), "text/plain", owner)
	require.NoError(t, err)
	require.Less(t, first.ID, second.ID, "object ids must sort by creation time")
}

func TestReadEmptyReference(t *testing.T) {
	store, err := object.NewStore(inmem.New())
	require.NoError(t, err)
	_, err = store.ReadObject(context.Background(), object.Reference{})
	require.ErrorIs(t, err, object.ErrNotFound)
}

func TestDeleteMissingObject(t *testing.T) {
	store, err := object.NewStore(inmem.New())
	require.NoError(t, err)
	require.NoError(t, store.DeleteObject(context.Background(), object.Reference{ID: "missing"}))
}

func TestBucketKeyLayout(t *testing.T) {
	ctx := context.Background()
	bucket := inmem.New()
	store, err := object.NewStore(bucket)
	require.NoError(t, err)

	ref, err := store.WriteObject(ctx, []byte("x"), "application/octet-stream", object.Ownership{OrganizationID: "org"})
	require.NoError(t, err)

	obj, err := bucket.Get(ctx, object.ObjectKey(ref.ID))
	require.NoError(t, err)
	require.Equal(t, "application/octet-stream", obj.ContentType)
	require.Equal(t, ref.ID, obj.CustomMetadata["id"])
}
