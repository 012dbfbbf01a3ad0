package review

import (
	"context"
	"fmt"
	"time"
)

const (
	// defaultMaxRetries is the default number of retry attempts
	defaultMaxRetries = 3
)

// retryWithBackoff executes fn with backoff retry logic. The backoff is
// error-aware: rate limit and overload errors wait for the provider's
// token window to reset, everything else backs off exponentially. Waits
// end early when ctx is cancelled.
// Returns the result of the first successful call or the last error after maxAttempts.
func retryWithBackoff[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var err error
		result, err = fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if attempt < maxAttempts {
			select {
			case <-time.After(getBackoffDuration(err, attempt)):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, fmt.Errorf("all retry attempts failed: %w", lastErr)
}
