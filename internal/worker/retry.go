package worker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// exhaustedError is returned by withRetry when every attempt failed.
type exhaustedError struct {
	attempts int
	err      error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.attempts, e.err)
}

func (e *exhaustedError) Unwrap() error { return e.err }

// attemptsOf reports how many runs produced err (1 unless it came from withRetry).
func attemptsOf(err error) int {
	var ex *exhaustedError
	if errors.As(err, &ex) {
		return ex.attempts
	}
	return 1
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = base, 3 = 2*base, ...
// Returns nil if any attempt succeeds; an *exhaustedError wrapping the last
// error otherwise.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := base << uint(i-1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return &exhaustedError{attempts: maxAttempts, err: lastErr}
}
