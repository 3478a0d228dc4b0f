package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	fterrors "github.com/Rusty-starlightExpress/fantiadl/pkg/errors"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/logger"
)

// Operation is a single attempt of a retryable request
type Operation func(ctx context.Context) error

// Policy describes how a request is retried
type Policy struct {
	// MaxAttempts counts the first try; values below 1 mean a single attempt
	MaxAttempts int
	Backoff     BackoffStrategy
	// RateLimitBackoff replaces Backoff after a 429 response
	RateLimitBackoff BackoffStrategy
	RetryIf          func(error) bool
	OnRetry          func(attempt int, err error, delay time.Duration)
	Logger           logger.Logger
}

// DefaultPolicy returns the policy used for Fantia requests when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:      3,
		Backoff:          DefaultExponentialBackoff(),
		RateLimitBackoff: DefaultRateLimitBackoff(),
		RetryIf:          DefaultRetryIf,
	}
}

// DefaultRetryIf retries typed transient errors and untyped transport errors
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *fterrors.Error
	if errors.As(err, &apiErr) {
		return fterrors.IsRetryable(apiErr.Type)
	}

	return true
}

// Do runs op until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done.
func Do(ctx context.Context, p Policy, op Operation) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = DefaultExponentialBackoff()
	}
	if p.RetryIf == nil {
		p.RetryIf = DefaultRetryIf
	}
	log := p.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !p.RetryIf(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		backoff := p.Backoff
		if p.RateLimitBackoff != nil && fterrors.IsType(err, fterrors.ErrorTypeRateLimit) {
			backoff = p.RateLimitBackoff
		}
		delay := backoff.NextDelay(attempt)

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		log.WarnWithFields("retrying request", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": p.MaxAttempts,
			"delay_ms":     delay.Milliseconds(),
			"error":        err.Error(),
		})

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	if p.MaxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", p.MaxAttempts, lastErr)
}

// DoWithResult is Do for operations producing a value
func DoWithResult[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
