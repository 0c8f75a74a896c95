package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstThenBlocks(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 1, Burst: 3})
	fixed := time.Now()
	lim.now = func() time.Time { return fixed }
	lim.last = fixed

	assert.True(t, lim.Allow())
	assert.True(t, lim.Allow())
	assert.True(t, lim.Allow())
	assert.False(t, lim.Allow(), "bucket should be empty after burst")
}

func TestLimiter_Refills(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 10, Burst: 1})
	now := time.Now()
	lim.now = func() time.Time { return now }
	lim.last = now

	require.True(t, lim.Allow())
	require.False(t, lim.Allow())

	now = now.Add(150 * time.Millisecond)
	assert.True(t, lim.Allow(), "one token should refill after 100ms at 10 rps")
}

func TestLimiter_DisabledAlwaysAllows(t *testing.T) {
	lim := New(Config{})
	for range 100 {
		require.True(t, lim.Allow())
	}
}

func TestLimiter_CooldownHoldsAfterBlock(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 100, Burst: 1, Cooldown: time.Second})
	now := time.Now()
	lim.now = func() time.Time { return now }
	lim.last = now

	require.True(t, lim.Allow())
	require.False(t, lim.Allow())

	now = now.Add(500 * time.Millisecond)
	assert.False(t, lim.Allow(), "cooldown still active even though tokens refilled")

	now = now.Add(600 * time.Millisecond)
	assert.True(t, lim.Allow())
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 0.001, Burst: 1})
	require.True(t, lim.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := lim.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_PerKeyLimiters(t *testing.T) {
	m := NewManager(Config{RequestsPerSecond: 1, Burst: 1})

	a := m.GetLimiter("a.pamdas.org")
	b := m.GetLimiter("b.pamdas.org")
	assert.NotSame(t, a, b)
	assert.Same(t, a, m.GetLimiter("a.pamdas.org"))

	require.NoError(t, m.Wait(context.Background(), "a.pamdas.org"))
	require.NoError(t, m.Wait(context.Background(), "b.pamdas.org"), "keys do not share buckets")
}
