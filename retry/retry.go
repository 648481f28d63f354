// Package retry re-runs flaky operations a bounded number of times.
package retry

import (
	"context"
	"fmt"

	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
)

// Op is an attempt at producing a value.
type Op[T any] func(ctx context.Context) (T, error)

// WithRetry calls op until it succeeds or maxAttempts calls have failed, and
// returns the first success or the last error. There is no backoff and every
// error counts as retryable. A cancelled context stops further attempts.
func WithRetry[T any](ctx context.Context, maxAttempts int, op Op[T]) (T, error) {
	var zero T
	if maxAttempts < 1 {
		return zero, fmt.Errorf("%w: maxAttempts must be at least 1, got %d", errorskg.ErrInvalidInput, maxAttempts)
	}
	logger := logging.WithComponent("retry")

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%w (last attempt: %v)", err, lastErr)
			}
			return zero, err
		}
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		logger.Warn("attempt failed", "attempt", attempt, "max_attempts", maxAttempts, "error", err)
	}
	return zero, lastErr
}
