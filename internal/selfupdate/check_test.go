// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fakeIndex struct {
	latest string
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeIndex) LatestVersion(ctx context.Context, name string) (string, error) {
	f.calls.Add(1)
	if name != PackageName {
		return "", errors.New("unexpected package " + name)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.latest, f.err
}

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		current  string
		latest   string
		outdated bool
	}{
		{"older", "0.3.1", "0.4.0", true},
		{"same", "0.4.0", "0.4.0", false},
		{"newer than published", "1.0.0", "0.4.0", false},
		{"v prefix tolerated", "v0.3.1", "0.3.2", true},
		{"two components", "0.3", "0.3.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewChecker(&fakeIndex{latest: tt.latest}, tt.current)
			res, err := c.Check(context.Background())
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if res.Outdated != tt.outdated {
				t.Errorf("Outdated = %v, want %v", res.Outdated, tt.outdated)
			}
		})
	}
}

func TestCheck_InvalidVersions(t *testing.T) {
	t.Parallel()

	if _, err := NewChecker(&fakeIndex{latest: "1.0.0"}, "not-a-version").Check(context.Background()); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("current: error = %v, want ErrInvalidVersion", err)
	}
	if _, err := NewChecker(&fakeIndex{latest: "1.0.0rc1"}, "0.1.0").Check(context.Background()); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("latest: error = %v, want ErrInvalidVersion", err)
	}
}

func TestCheck_Timeout(t *testing.T) {
	t.Parallel()

	c := NewChecker(&fakeIndex{latest: "9.9.9", delay: time.Second}, "0.1.0", WithTimeout(10*time.Millisecond))
	if _, err := c.Check(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Check() error = %v, want DeadlineExceeded", err)
	}
}

func TestCheckAsync(t *testing.T) {
	t.Parallel()

	t.Run("outdated delivers a result", func(t *testing.T) {
		t.Parallel()
		res, ok := <-NewChecker(&fakeIndex{latest: "0.5.0"}, "0.4.0").CheckAsync(context.Background())
		if !ok || res == nil {
			t.Fatal("expected a result")
		}
		if !strings.Contains(res.Message(), "0.5.0") {
			t.Errorf("Message() = %q", res.Message())
		}
	})

	t.Run("up to date closes", func(t *testing.T) {
		t.Parallel()
		if res, ok := <-NewChecker(&fakeIndex{latest: "0.4.0"}, "0.4.0").CheckAsync(context.Background()); ok {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("failure closes", func(t *testing.T) {
		t.Parallel()
		idx := &fakeIndex{err: errors.New("offline")}
		if _, ok := <-NewChecker(idx, "0.4.0").CheckAsync(context.Background()); ok {
			t.Error("a failed check must not deliver a result")
		}
	})

	t.Run("dev build is not checked", func(t *testing.T) {
		t.Parallel()
		idx := &fakeIndex{latest: "9.9.9"}
		if _, ok := <-NewChecker(idx, DevVersion).CheckAsync(context.Background()); ok {
			t.Error("dev build must not deliver a result")
		}
		if idx.calls.Load() != 0 {
			t.Error("dev build must not query the index")
		}
	})
}

func TestPending(t *testing.T) {
	t.Parallel()

	if Pending(nil) != nil {
		t.Error("Pending(nil) should be nil")
	}

	ch := make(chan *Result, 1)
	if Pending(ch) != nil {
		t.Error("Pending() must not wait on an empty channel")
	}
	ch <- &Result{Latest: "1.0.0", Outdated: true}
	if res := Pending(ch); res == nil || res.Latest != "1.0.0" {
		t.Errorf("Pending() = %+v", res)
	}
}

func TestResult_Message(t *testing.T) {
	t.Parallel()

	var nilResult *Result
	if nilResult.Message() != "" {
		t.Error("nil result should have no message")
	}
	if (&Result{Outdated: false}).Message() != "" {
		t.Error("up to date result should have no message")
	}
	msg := (&Result{Current: "0.1.0", Latest: "0.2.0", Outdated: true, Method: InstallMethodHomebrew}).Message()
	if !strings.Contains(msg, "brew upgrade spvm") {
		t.Errorf("Message() = %q", msg)
	}
}
