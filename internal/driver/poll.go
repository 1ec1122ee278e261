package driver

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned by Until when the condition never held.
var ErrWaitTimeout = errors.New("condition not met before timeout")

// Condition reports whether a polled state has been reached. A non-nil error stops polling.
type Condition func(ctx context.Context) (bool, error)

// Until evaluates cond every interval until it returns true, returns an error,
// the context is done, or timeout elapses. The condition is always evaluated at
// least once, so a zero timeout means "check now".
func Until(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if !time.Now().Before(deadline) {
			return ErrWaitTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
