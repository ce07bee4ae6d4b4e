package step_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowline.dev/flowline/engine/step"
)

func TestDirectRunsFunction(t *testing.T) {
	ran := false
	err := step.Direct{}.Do(context.Background(), "unit", func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestDirectPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := step.Direct{}.Do(context.Background(), "unit", func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestDirectMapsDeadlineToTimeout(t *testing.T) {
	runner := step.Direct{Timeout: 10 * time.Millisecond}
	err := runner.Do(context.Background(), "unit", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, step.ErrTimeout)
	require.Equal(t, "timeout", step.ErrTimeout.Error())
}

func TestDirectMapsSilentOverrunToTimeout(t *testing.T) {
	runner := step.Direct{Timeout: 10 * time.Millisecond}
	err := runner.Do(context.Background(), "unit", func(ctx context.Context) error {
		// A function that ignores the deadline and returns nil late still
		// reports a timeout.
		time.Sleep(30 * time.Millisecond)
		return nil
	})
	require.ErrorIs(t, err, step.ErrTimeout)
}
