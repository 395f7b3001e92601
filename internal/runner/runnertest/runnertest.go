// SPDX-License-Identifier: MPL-2.0

// Package runnertest provides a recording runner.Runner for tests.
package runnertest

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/WIN32GG/spvm/internal/runner"
	"github.com/WIN32GG/spvm/pkg/types"
)

type (
	// HandlerFunc produces the outcome of a recorded invocation. stdin holds
	// whatever the invocation would have fed to the process.
	HandlerFunc func(inv runner.Invocation, stdin string) (*runner.Result, error)

	// Fake records every invocation and answers through Handler.
	// The zero value succeeds with empty output.
	Fake struct {
		Handler HandlerFunc

		mu    sync.Mutex
		calls []runner.Invocation
	}
)

// Run implements runner.Runner.
func (f *Fake) Run(ctx context.Context, inv runner.Invocation) (*runner.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stdin string
	if inv.Stdin != nil {
		b, err := io.ReadAll(inv.Stdin)
		if err != nil {
			return nil, err
		}
		stdin = string(b)
	}

	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	if f.Handler == nil {
		return &runner.Result{}, nil
	}
	return f.Handler(inv, stdin)
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []runner.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Commands returns each recorded invocation as "name arg...", without quoting.
func (f *Fake) Commands() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = strings.Join(append([]string{c.Name}, c.Args...), " ")
	}
	return out
}

// Exit builds the outcome a real runner reports for the given exit code,
// honouring the invocation's OKExitCodes.
func Exit(inv runner.Invocation, code types.ExitCode, stderr string) (*runner.Result, error) {
	res := &runner.Result{ExitCode: code, Stderr: stderr}
	if code == 0 || slices.Contains(inv.OKExitCodes, code) {
		return res, nil
	}
	return res, &runner.ExitStatusError{Command: inv.String(), Code: code, Stderr: stderr}
}

// HasArg reports whether inv carries arg anywhere in its argument vector.
func HasArg(inv runner.Invocation, arg string) bool {
	return slices.Contains(inv.Args, arg)
}
