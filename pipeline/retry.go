package pipeline

import (
	"context"
	"time"
)

// RetryPolicy bounds stage execution attempts and shapes the backoff
// between them. Backoff doubles per attempt from Initial up to Max.
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

// DefaultRetryPolicy matches the pipeline defaults: three attempts with
// exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Initial:     time.Second,
		Max:         30 * time.Second,
	}
}

// Backoff returns the delay before the given retry. attempt is the number
// of the attempt that just failed, starting at 1.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Execute runs op under the policy, retrying only failures marked
// transient. onRetry is invoked before each backoff wait with the attempt
// number that failed. The final error is returned when attempts are
// exhausted or the failure is not retryable.
func (p RetryPolicy) Execute(ctx context.Context, op func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == p.MaxAttempts {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff(attempt)):
		}
	}
	return err
}
