package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBucket(rpm, burst int) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tb := NewTokenBucket(rpm, burst)
	tb.now = clock.Now
	tb.last = clock.Now()
	return tb, clock
}

// tryTake reports whether a token was available without waiting
func tryTake(tb *TokenBucket) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.take() == 0
}

func TestTokenBucketBurst(t *testing.T) {
	tb, _ := newTestBucket(60, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, tryTake(tb), "token %d", i+1)
	}
	assert.False(t, tryTake(tb))
}

func TestTokenBucketRefill(t *testing.T) {
	tb, clock := newTestBucket(60, 2)
	require.True(t, tryTake(tb))
	require.True(t, tryTake(tb))
	require.False(t, tryTake(tb))

	clock.Advance(500 * time.Millisecond)
	assert.False(t, tryTake(tb))

	clock.Advance(500 * time.Millisecond)
	assert.True(t, tryTake(tb))

	// refill is capped at the burst size
	clock.Advance(time.Hour)
	assert.True(t, tryTake(tb))
	assert.True(t, tryTake(tb))
	assert.False(t, tryTake(tb))
}

func TestTokenBucketTimeUntilToken(t *testing.T) {
	tb, clock := newTestBucket(60, 1)
	require.True(t, tryTake(tb))

	tb.mu.Lock()
	wait := tb.take()
	tb.mu.Unlock()
	assert.Equal(t, time.Second, wait)

	clock.Advance(750 * time.Millisecond)
	tb.mu.Lock()
	wait = tb.take()
	tb.mu.Unlock()
	assert.Equal(t, 250*time.Millisecond, wait)
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(6000, 1) // one token every 10ms

	require.NoError(t, tb.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tryTake(tb))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	assert.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}
