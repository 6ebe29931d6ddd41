package util

import (
	"context"
	"errors"
	"time"
)

// BackoffPolicy controls how external calls (LLM extraction, persistence) are
// retried: number of attempts and the delay before each retry. A zero Delay
// function means no waiting between attempts.
type BackoffPolicy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
}

// ExponentialBackoff returns a policy that waits base<<attempt between
// retries, capped at max.
func ExponentialBackoff(maxAttempts int, base, max time.Duration) BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: maxAttempts,
		Delay: func(attempt int) time.Duration {
			d := base << attempt
			if d > max {
				return max
			}
			return d
		},
	}
}

func (p BackoffPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p BackoffPolicy) wait(ctx context.Context, attempt int) error {
	if p.Delay == nil {
		return ctx.Err()
	}
	d := p.Delay(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry calls fn until it returns nil error, up to the policy's attempt
// budget or until ctx is done. Context cancellation is never retried.
func (p BackoffPolicy) Retry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for i := 0; i < p.attempts(); i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i > 0 {
			if err := p.wait(ctx, i-1); err != nil {
				return err
			}
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// RetryValue is Retry for functions returning a value.
func RetryValue[T any](ctx context.Context, p BackoffPolicy, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := p.Retry(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
