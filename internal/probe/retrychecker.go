package probe

import (
	"context"
	"time"
)

// RetryChecker re-runs the inner checker within a single tick. With
// Attempts=1 it is a pass-through; scheduled re-checks between ticks are
// the scheduler's job, not this decorator's.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
}

func (r *RetryChecker) Check(ctx context.Context, target string) CheckResult {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last CheckResult
	for i := 0; i < attempts; i++ {
		last = r.Inner.Check(ctx, target)
		if last.Success {
			return last
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return last
			case <-time.After(r.Backoff):
			}
		}
	}
	if attempts > 1 {
		last.Message = last.Message + " (after retries)"
	}
	return last
}
