package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	l := NewRateLimiter(1000, 2)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))

	// third call needs to wait for a refill at 1000/s, but at a minimum it
	// must not be instantaneous with an empty bucket.
	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.Greater(t, time.Since(start), time.Duration(0))
}

func TestRateLimiter_DeferRefill_BlocksUntilWindowElapses(t *testing.T) {
	l := NewRateLimiter(1000, 5)
	l.DeferRefill(30 * time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestRateLimiter_Wait_RespectsCancellation(t *testing.T) {
	l := NewRateLimiter(1, 1)
	require.NoError(t, l.Wait(context.Background())) // drain the single token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
}
