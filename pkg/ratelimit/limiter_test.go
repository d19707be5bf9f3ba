package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, l Limiter, timeout time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.Wait(ctx)
}

func TestTokenBucketBurst(t *testing.T) {
	tb := NewTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, waitFor(t, tb, 10*time.Millisecond))
	}
	assert.Error(t, waitFor(t, tb, 10*time.Millisecond))
}

func TestTokenBucketWaitRefills(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)
	require.NoError(t, tb.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestPerMinute(t *testing.T) {
	assert.Nil(t, PerMinute(0))
	assert.Nil(t, PerMinute(-5))

	l := PerMinute(60)
	require.NotNil(t, l)
	require.NoError(t, waitFor(t, l, 10*time.Millisecond))
	assert.Error(t, waitFor(t, l, 10*time.Millisecond))
}
