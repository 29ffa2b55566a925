package cache

import (
	"context"
	"errors"
	"net"
	"time"
)

// ErrUnavailable reports a remote backend that could not be reached after
// retrying.
var ErrUnavailable = errors.New("cache backend unavailable")

// transientError marks a failure that may succeed when repeated.
type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// transient wraps network errors so that a backoff retries them. Other
// errors, including nil, are returned as is.
func transient(err error) error {
	var netErr net.Error
	if err == nil || !errors.As(err, &netErr) {
		return err
	}
	return transientError{err: errors.Join(ErrUnavailable, err)}
}

func isTransient(err error) bool {
	var te transientError
	return errors.As(err, &te)
}

// backoff repeats an operation that failed transiently, doubling the pause
// after each attempt.
type backoff struct {
	attempts int
	delay    time.Duration
}

var redisBackoff = backoff{attempts: 3, delay: 50 * time.Millisecond}

// do runs fn until it succeeds, fails permanently, runs out of attempts or
// ctx ends. The last error is returned with its transient marker removed.
func (b backoff) do(ctx context.Context, fn func() error) error {
	delay := b.delay
	for attempt := 1; ; attempt++ {
		err := fn()
		if !isTransient(err) {
			return err
		}
		if attempt >= b.attempts {
			return errors.Unwrap(err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}
