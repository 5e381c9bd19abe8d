package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), Config{MaxAttempts: 3, Delay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), Config{MaxAttempts: 2, Delay: time.Millisecond, Backoff: true}, func(context.Context) error {
		calls++
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), Config{MaxAttempts: 5}, func(context.Context) error {
		calls++
		return Permanent(errBoom)
	})
	require.ErrorIs(t, err, errBoom)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := WithRetry(ctx, Config{MaxAttempts: 3, Delay: time.Second}, func(context.Context) error {
		return errBoom
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = WithRetry(context.Background(), Config{}, func(context.Context) error {
		calls++
		return errBoom
	})
	assert.Equal(t, 1, calls)
}
