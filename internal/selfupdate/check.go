// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"
)

const (
	// PackageName is the name spvm is published under.
	PackageName = "spvm"

	// DevVersion is the version of a binary built without ldflags.
	DevVersion = "dev"

	defaultTimeout = 5 * time.Second
)

// ErrInvalidVersion indicates the version string cannot be compared.
var ErrInvalidVersion = errors.New("invalid semantic version")

type (
	// Index is the part of the package index client the check needs.
	Index interface {
		LatestVersion(ctx context.Context, name string) (string, error)
	}

	// Result is the outcome of a freshness check.
	Result struct {
		Current  string
		Latest   string
		Outdated bool
		Method   InstallMethod
	}

	// Checker compares the running version with the latest published one.
	Checker struct {
		index   Index
		current string
		timeout time.Duration
		logger  *log.Logger
	}

	// Option configures a Checker.
	Option func(*Checker)
)

// WithTimeout bounds a single check.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// NewChecker returns a Checker for the running version current.
func NewChecker(index Index, current string, opts ...Option) *Checker {
	c := &Checker{index: index, current: current, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// Message is the notice shown to the user when a newer version exists.
func (r *Result) Message() string {
	if r == nil || !r.Outdated {
		return ""
	}
	return fmt.Sprintf("spvm %s is available (you have %s). To upgrade, run:\n  %s",
		r.Latest, r.Current, r.Method.UpgradeCommand())
}

// Check asks the index for the latest published version.
func (c *Checker) Check(ctx context.Context) (*Result, error) {
	current, err := normalizeVersion(c.current)
	if err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	latestRaw, err := c.index.LatestVersion(ctx, PackageName)
	if err != nil {
		return nil, fmt.Errorf("fetching latest version: %w", err)
	}
	latest, err := normalizeVersion(latestRaw)
	if err != nil {
		return nil, fmt.Errorf("latest version: %w", err)
	}

	res := &Result{
		Current:  c.current,
		Latest:   latestRaw,
		Outdated: semver.Compare(current, latest) < 0,
	}
	if res.Outdated {
		res.Method = DetectInstallMethod(executablePath())
	}
	return res, nil
}

// CheckAsync runs Check in the background. The returned channel receives one
// result when a newer version exists and is closed otherwise. Failures are
// logged at debug level only. Development builds are never checked.
func (c *Checker) CheckAsync(ctx context.Context) <-chan *Result {
	out := make(chan *Result, 1)
	if c.current == "" || c.current == DevVersion {
		close(out)
		return out
	}

	go func() {
		defer close(out)
		res, err := c.Check(ctx)
		if err != nil {
			c.logger.Debug("version check failed", "err", err)
			return
		}
		c.logger.Debug("version check", "current", res.Current, "latest", res.Latest)
		if res.Outdated {
			out <- res
		}
	}()
	return out
}

// Pending returns the result of a CheckAsync channel if it is already
// available, without waiting.
func Pending(ch <-chan *Result) *Result {
	if ch == nil {
		return nil
	}
	select {
	case res := <-ch:
		return res
	default:
		return nil
	}
}

// normalizeVersion adds the "v" prefix the semver package requires.
func normalizeVersion(v string) (string, error) {
	norm := strings.TrimSpace(v)
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return norm, nil
}

func executablePath() string {
	path, err := os.Executable()
	if err != nil {
		return ""
	}
	return path
}
