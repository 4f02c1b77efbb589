package manifest

import (
	"context"
	goerrors "errors"
	"time"
)

// Remote stores retry transient failures this many times in total.
const retryAttempts = 3

// retryDelay is the wait before the second attempt; it doubles afterwards.
var retryDelay = 200 * time.Millisecond

// transientError marks a backend failure worth another attempt, such as a
// dropped connection or a network timeout.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// transient wraps err so that [retry] attempts the operation again.
func transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func isTransient(err error) bool {
	return goerrors.As(err, new(*transientError))
}

// retry runs fn until it succeeds, fails with a non-transient error, or
// retryAttempts is reached. Backoff waits honor ctx.
func retry(ctx context.Context, fn func() error) error {
	delay := retryDelay
	var lastErr error

	for i := range retryAttempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isTransient(err) {
			return err
		}

		if i < retryAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
