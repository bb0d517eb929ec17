package retry

import (
	"context"
	"time"
)

// MaxBackoff caps a single delay.
const MaxBackoff = 30 * time.Second

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt: base * 2^attempt, capped at MaxBackoff.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return MaxBackoff
	}
	d := base * (1 << attempt)
	if d > MaxBackoff || d <= 0 {
		return MaxBackoff
	}
	return d
}

// Wait sleeps for the backoff of attempt, returning early with ctx.Err() if ctx ends first.
func Wait(ctx context.Context, attempt int, base time.Duration) error {
	t := time.NewTimer(ExponentialBackoff(attempt, base))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
