// Package retry implements the bounded, fixed-delay retry policy used for
// sink connection acquisition. The budget is deliberately small and the delay
// constant: the only thing worth retrying is the database not being reachable
// yet (e.g. the container is still starting); everything else is fatal and
// handled by the caller.
package retry

import (
	"context"
	"fmt"
	"time"
)

// DefaultAttempts and DefaultDelay mirror the connection policy of the
// ingestion service: five attempts, five seconds apart.
const (
	DefaultAttempts = 5
	DefaultDelay    = 5 * time.Second
)

// Policy is a fixed-delay retry budget. The zero value retries nothing
// beyond the first attempt.
type Policy struct {
	// Attempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	Attempts int

	// Delay is the fixed pause between consecutive attempts.
	Delay time.Duration

	// OnRetry, when set, is invoked before each re-attempt with the attempt
	// number just failed (1-based) and its error.
	OnRetry func(attempt int, err error)
}

// Execute runs op until it succeeds, the budget is exhausted, or ctx is done.
// The returned error is the last attempt's error wrapped with the attempt
// count, or the context error when canceled mid-wait.
func (p Policy) Execute(ctx context.Context, op func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
