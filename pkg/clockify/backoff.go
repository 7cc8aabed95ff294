package clockify

import (
	"context"
	"math"
	"time"
)

const maxBackoff = 60 * time.Second

// backoff returns the wait after the given zero-based rate-limited attempt:
// 1s, 2s, 4s, ... capped at maxBackoff.
func backoff(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	seconds := math.Pow(2, float64(attempt))
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
