package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	fterrors "github.com/Rusty-starlightExpress/fantiadl/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{9, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	var retried []int

	p := fastPolicy(5)
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return fterrors.New(fterrors.ErrorTypeNetwork, 0, "connection reset")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		attempts++
		return fterrors.FromStatusCode(404, "https://fantia.jp/api/v1/posts/1")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, fterrors.IsType(err, fterrors.ErrorTypeNotFound))
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	sentinel := errors.New("flaky")

	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		attempts++
		return sentinel
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDoSingleAttemptReturnsRawError(t *testing.T) {
	sentinel := errors.New("once")
	err := Do(context.Background(), Policy{}, func(ctx context.Context) error { return sentinel })
	assert.Equal(t, sentinel, err)
}

func TestDoUsesRateLimitBackoff(t *testing.T) {
	var delays []time.Duration
	p := fastPolicy(2)
	p.RateLimitBackoff = &ConstantBackoff{Delay: 2 * time.Millisecond}
	p.OnRetry = func(_ int, _ error, d time.Duration) { delays = append(delays, d) }

	_ = Do(context.Background(), p, func(ctx context.Context) error {
		return fterrors.FromStatusCode(429, "u")
	})

	assert.Equal(t, []time.Duration{2 * time.Millisecond}, delays)
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, Backoff: &ConstantBackoff{Delay: time.Hour}}

	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, p, func(ctx context.Context) error {
		attempts++
		return errors.New("temporary")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", fterrors.FromStatusCode(503, "u")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(fterrors.FromStatusCode(401, "u")))
	assert.True(t, DefaultRetryIf(fterrors.FromStatusCode(500, "u")))
	assert.True(t, DefaultRetryIf(errors.New("dial tcp: timeout")))
}
