package bridge

import (
	"context"
	"fmt"
	"time"
)

// pollUntil runs fn up to attempts times, waiting interval between tries.
// Submission and result observation are separate fallible steps on a real
// network, so this wraps only the read side; mutating calls are never
// retried through it.
func pollUntil[T any](ctx context.Context, attempts int, interval time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(interval):
			}
		}
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, fmt.Errorf("%w after %d attempts: %v", ErrResultNotAvailable, attempts, lastErr)
}
