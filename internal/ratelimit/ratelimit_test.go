package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_DailyBudget(t *testing.T) {
	l := New("gemini", 0, 1, 2)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	err := l.Wait(ctx)
	require.ErrorIs(t, err, ErrBudgetExhausted)

	s := l.Stats()
	assert.Equal(t, 2, s.Used)
	assert.Equal(t, 1, s.Denied)
}

func TestLimiter_BudgetResetsAfterDay(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New("newsapi", 0, 1, 1)
	l.now = func() time.Time { return clock }
	l.resetTime = clock.Add(24 * time.Hour)

	require.NoError(t, l.Wait(context.Background()))
	require.Error(t, l.Wait(context.Background()))

	clock = clock.Add(25 * time.Hour)
	assert.NoError(t, l.Wait(context.Background()))
	assert.Equal(t, 1, l.Stats().Used)
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := New("reddit", time.Hour, 1, 0)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestLimiter_PacesRequests(t *testing.T) {
	l := New("hn", 30*time.Millisecond, 1, 0)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_NilIsUnlimited(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Wait(context.Background()))
	assert.NoError(t, Unlimited("x").Wait(context.Background()))
}
