package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiter_BurstPerHost(t *testing.T) {
	l := NewHostLimiter(1, 2)

	assert.True(t, l.Allow("a.example"))
	assert.True(t, l.Allow("a.example"))
	assert.False(t, l.Allow("a.example"), "burst exhausted")

	// other hosts have their own bucket
	assert.True(t, l.Allow("b.example"))
}

func TestHostLimiter_Reset(t *testing.T) {
	l := NewHostLimiter(0.001, 1)
	require.True(t, l.Allow("a.example"))
	require.False(t, l.Allow("a.example"))

	l.Reset()
	assert.True(t, l.Allow("a.example"))
}

func TestHostLimiter_Unlimited(t *testing.T) {
	l := Unlimited()
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("a.example"))
	}
	assert.NoError(t, l.Wait(context.Background(), "a.example"))
}

func TestHostLimiter_WaitHonoursContext(t *testing.T) {
	l := NewHostLimiter(0.001, 1)
	require.NoError(t, l.Wait(context.Background(), "a.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, l.Wait(ctx, "a.example"))
}

func TestHostLimiter_WaitPaces(t *testing.T) {
	l := NewHostLimiter(50, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, "a.example"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
