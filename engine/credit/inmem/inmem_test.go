package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	ctx := context.Background()
	ledger := New(map[string]int64{"org": 10})

	ok, err := ledger.HasEnoughCredits(ctx, "org")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, ledger.RecordUsage(ctx, "org", 10))
	require.Equal(t, int64(10), ledger.Recorded("org"))

	ok, err = ledger.HasEnoughCredits(ctx, "org")
	require.NoError(t, err)
	require.False(t, ok, "exhausted balance denies further runs")
}

func TestLedgerUnknownOrganization(t *testing.T) {
	ok, err := New(nil).HasEnoughCredits(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLedgerBalanceIsNeverDebited(t *testing.T) {
	ctx := context.Background()
	ledger := New(map[string]int64{"org": 10})

	require.NoError(t, ledger.RecordUsage(ctx, "org", 3))
	ok, err := ledger.HasEnoughCredits(ctx, "org")
	require.NoError(t, err)
	require.True(t, ok, "usage below the balance keeps credits available")

	require.NoError(t, ledger.RecordUsage(ctx, "org", 7))
	ok, err = ledger.HasEnoughCredits(ctx, "org")
	require.NoError(t, err)
	require.False(t, ok, "usage at the balance denies runs")

	require.NoError(t, ledger.RecordUsage(ctx, "org", 0))
	require.Equal(t, int64(10), ledger.Recorded("org"), "zero usage is a no-op")
}
