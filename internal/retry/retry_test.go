// SPDX-License-Identifier: MPL-2.0

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()
	calls := 0
	err := WithBackoff(context.Background(), 3, time.Millisecond, func(int) (bool, error) {
		calls++
		return false, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithBackoff_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	calls := 0
	err := WithBackoff(context.Background(), 5, time.Millisecond, func(attempt int) (bool, error) {
		calls++
		if attempt < 2 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithBackoff_ExhaustsAttempts(t *testing.T) {
	t.Parallel()
	calls := 0
	err := WithBackoff(context.Background(), 3, time.Millisecond, func(int) (bool, error) {
		calls++
		return true, errors.New("always transient")
	})
	if err == nil || err.Error() != "always transient" {
		t.Fatalf("expected last error, got: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithBackoff_PermanentErrorStops(t *testing.T) {
	t.Parallel()
	permanent := errors.New("permanent")
	calls := 0
	err := WithBackoff(context.Background(), 5, time.Millisecond, func(int) (bool, error) {
		calls++
		return false, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithBackoff_CancelledBetweenAttempts(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithBackoff(ctx, 5, time.Hour, func(int) (bool, error) {
		calls++
		cancel()
		return true, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
