package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeClient implements the narrow counter surface in memory.
type fakeClient struct {
	counters map[string]int64
	err      error
}

func newFakeClient() *fakeClient {
	return &fakeClient{counters: make(map[string]int64)}
}

func (f *fakeClient) Name() string               { return "fake" }
func (f *fakeClient) Ping(context.Context) error { return f.err }

func (f *fakeClient) GetInt(_ context.Context, key string) (int64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	value, ok := f.counters[key]
	return value, ok, nil
}

func (f *fakeClient) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counters[key] += delta
	return f.counters[key], nil
}

func TestHasEnoughCredits(t *testing.T) {
	ctx := context.Background()
	fake := newFakeClient()
	fake.counters["credits:org"] = 100
	svc, err := New(Options{Client: fake})
	require.NoError(t, err)

	ok, err := svc.HasEnoughCredits(ctx, "org")
	require.NoError(t, err)
	require.True(t, ok)

	fake.counters["usage:org"] = 100
	ok, err = svc.HasEnoughCredits(ctx, "org")
	require.NoError(t, err)
	require.False(t, ok, "usage at the balance denies runs")
}

func TestHasEnoughCreditsUnknownOrganization(t *testing.T) {
	svc, err := New(Options{Client: newFakeClient()})
	require.NoError(t, err)
	ok, err := svc.HasEnoughCredits(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, ok, "no balance key means no credits")
}

func TestRecordUsage(t *testing.T) {
	ctx := context.Background()
	fake := newFakeClient()
	svc, err := New(Options{Client: fake})
	require.NoError(t, err)

	require.NoError(t, svc.RecordUsage(ctx, "org", 5))
	require.NoError(t, svc.RecordUsage(ctx, "org", 3))
	require.Equal(t, int64(8), fake.counters["usage:org"])

	require.NoError(t, svc.RecordUsage(ctx, "org", 0), "zero usage is a no-op")
	require.Equal(t, int64(8), fake.counters["usage:org"])
}

func TestServiceSurfacesClientErrors(t *testing.T) {
	fake := newFakeClient()
	fake.err = errors.New("connection refused")
	svc, err := New(Options{Client: fake})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.HasEnoughCredits(ctx, "org")
	require.Error(t, err)
	require.Error(t, svc.RecordUsage(ctx, "org", 1))
}
