package collector

import (
	"context"
	"errors"
	"math"
	"time"
)

const maxBackoff = 5 * time.Minute

// RetryPolicy configures the bounded exponential backoff loop wrapped around
// collector calls.
type RetryPolicy struct {
	MaxAttempts       int
	BackoffSeconds    int
	BackoffMultiplier float64
}

// DefaultRetryPolicy returns the default retry configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BackoffSeconds:    2,
		BackoffMultiplier: 2.0,
	}
}

// Backoff returns the wait duration before the given attempt number (1-based).
// Exponential: base * multiplier^(attempt-1), capped at maxBackoff.
func Backoff(policy RetryPolicy, attempt int) time.Duration {
	if attempt <= 1 {
		return time.Duration(policy.BackoffSeconds) * time.Second
	}
	multiplier := policy.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	backoff := float64(policy.BackoffSeconds) * math.Pow(multiplier, float64(attempt-1))
	d := time.Duration(backoff) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// permanenter is implemented by errors that should never be retried.
type permanenter interface {
	Permanent() bool
}

// WithRetry runs fn up to policy.MaxAttempts times, sleeping with exponential
// backoff between attempts. Permanent errors and context cancellation stop the
// loop immediately; the last error is returned.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		var p permanenter
		if errors.As(err, &p) && p.Permanent() {
			return err
		}
		if attempt == attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Backoff(policy, attempt)):
		}
	}
	return err
}
