package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/bank-ledger/internal/ratelimit"
	"github.com/josh-kwaku/bank-ledger/internal/testutil"
)

func TestLimiter_FixedWindow(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	l := ratelimit.New(client, "test", 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "login", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 3-i, d.Remaining())
	}

	d, err := l.Allow(ctx, "login", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining())
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	d, err = l.Allow(ctx, "login", "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "other subjects have their own budget")

	d, err = l.Allow(ctx, "deposit", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "other scopes have their own budget")
}

func TestLimiter_WindowExpires(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	l := ratelimit.New(client, "test", 1, time.Second)
	ctx := context.Background()

	d, err := l.Allow(ctx, "login", "10.0.0.1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = l.Allow(ctx, "login", "10.0.0.1")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	require.Eventually(t, func() bool {
		d, err := l.Allow(ctx, "login", "10.0.0.1")
		return err == nil && d.Allowed
	}, 5*time.Second, 200*time.Millisecond)
}

func TestLimiter_Disabled(t *testing.T) {
	l := ratelimit.New(nil, "", 5, time.Minute)
	assert.False(t, l.Enabled())

	d, err := l.Allow(context.Background(), "login", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
