package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInMemory_AllowsUpToLimit counts down the remaining quota and denies the
// request over it with a retry hint.
func TestInMemory_AllowsUpToLimit(t *testing.T) {
	lim := NewInMemory(3, time.Minute)
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		d, err := lim.Admit(ctx, "partner-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, want, d.Remaining)
	}

	d, err := lim.Admit(ctx, "partner-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

// TestInMemory_WindowExpiryReadmits.
func TestInMemory_WindowExpiryReadmits(t *testing.T) {
	lim := NewInMemory(1, 50*time.Millisecond)
	ctx := context.Background()

	d, err := lim.Admit(ctx, "partner-1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = lim.Admit(ctx, "partner-1")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	time.Sleep(60 * time.Millisecond)

	d, err = lim.Admit(ctx, "partner-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

// TestInMemory_KeysAreIndependent: one partner burning its quota must not
// throttle another.
func TestInMemory_KeysAreIndependent(t *testing.T) {
	lim := NewInMemory(1, time.Minute)
	ctx := context.Background()

	d, err := lim.Admit(ctx, "partner-1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = lim.Admit(ctx, "partner-1")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	d, err = lim.Admit(ctx, "partner-2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
