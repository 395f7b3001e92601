// SPDX-License-Identifier: MPL-2.0

// Package retry runs an operation again with exponential backoff while it
// reports a transient failure.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Op is one attempt. It returns (retry, err): retry=false ends the loop with
// err (nil on success); retry=true schedules another attempt.
type Op func(attempt int) (retry bool, err error)

// WithBackoff runs op up to maxAttempts times, sleeping base, 2*base, 4*base...
// between attempts. Cancellation of ctx interrupts the wait immediately.
// When attempts run out, the last error is returned.
func WithBackoff(ctx context.Context, maxAttempts int, base time.Duration, op Op) error {
	var lastErr error
	for attempt := range max(maxAttempts, 1) {
		if attempt > 0 {
			timer := time.NewTimer(base * time.Duration(1<<(attempt-1)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-timer.C:
			}
		}

		again, err := op(attempt)
		if err == nil {
			return nil
		}
		if !again {
			return err
		}
		lastErr = err
	}
	return lastErr
}
