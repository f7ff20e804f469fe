package retry

import (
	"context"
	"time"
)

// Retry calls fn until it succeeds, backoff is exhausted (Next returns
// Stop), or ctx is done, whichever comes first. notify, if non-nil, is
// called with the error and the delay before each retry (not before the
// first attempt).
func Retry(ctx context.Context, backoff Backoff, fn func() error, notify func(error, time.Duration)) error {
	backoff.Reset()
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := backoff.Next()
		if delay == Stop {
			return err
		}
		if notify != nil {
			notify(err, delay)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
