// internal/warehouse/retry.go
package warehouse

import (
	"context"
	"time"
)

// RetryPolicy retries rate-limited catalog calls with a short fixed delay.
// Not-found and permission errors are never retried.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns the policy used for catalog calls: one retry
// after 500ms, and only for explicit rate-limit signals.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 2,
		Delay:       500 * time.Millisecond,
	}
}

// Do runs fn up to MaxAttempts times, sleeping Delay between attempts when
// the error is retryable. Returns nil on success, the last error otherwise.
func (p *RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !rateLimited(err) || attempt == p.MaxAttempts {
			return err
		}
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
