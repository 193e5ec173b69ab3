package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"
)

// BackoffStrategy computes the delay before a retry attempt.
type BackoffStrategy interface {
	NextDelay(retryCount int) time.Duration
}

// ExponentialBackoff doubles (by Multiplier) the delay per attempt up to
// MaxDelay.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// NewExponentialBackoff returns an exponential strategy with 1s base,
// 1m cap, and doubling.
func NewExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
	}
}

// NextDelay calculates the exponential backoff delay.
func (eb *ExponentialBackoff) NextDelay(retryCount int) time.Duration {
	delay := time.Duration(float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(retryCount)))
	if delay > eb.MaxDelay {
		return eb.MaxDelay
	}
	return delay
}

// LinearBackoff grows the delay by BaseDelay per attempt up to MaxDelay.
type LinearBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NextDelay calculates the linear backoff delay.
func (lb *LinearBackoff) NextDelay(retryCount int) time.Duration {
	delay := lb.BaseDelay * time.Duration(retryCount+1)
	if delay > lb.MaxDelay {
		return lb.MaxDelay
	}
	return delay
}

// RetryPolicy describes how an operation is retried. Retrying is opt-in;
// operations run once unless wrapped through a policy.
type RetryPolicy struct {
	MaxRetries int
	Backoff    BackoffStrategy
}

// DefaultRetryPolicy retries 3 times with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Backoff:    NewExponentialBackoff(),
	}
}

// Wrap returns an operation that retries the given one according to the
// policy, waiting between attempts unless the context expires first.
func (p RetryPolicy) Wrap(op Operation) Operation {
	return func(ctx context.Context) (any, error) {
		var lastErr error
		for attempt := 0; attempt <= p.MaxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-time.After(p.Backoff.NextDelay(attempt - 1)):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			value, err := op(ctx)
			if err == nil {
				return value, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("failed after %d retries: %w", p.MaxRetries, lastErr)
	}
}
