// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"

	"github.com/WIN32GG/spvm/pkg/types"
)

var (
	// ErrToolNotFound is the sentinel error wrapped by ToolNotFoundError.
	ErrToolNotFound = errors.New("tool not found")

	// ErrExitStatus is the sentinel error wrapped by ExitStatusError.
	ErrExitStatus = errors.New("tool exited with a non-accepted status")

	// ErrTimeout is the sentinel error wrapped by TimeoutError.
	ErrTimeout = errors.New("tool timed out")
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// Tests replace it to avoid spawning real tools.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Invocation describes one external tool run.
	Invocation struct {
		// Name is the executable, resolved through PATH.
		Name string
		// Args is the argument vector, passed verbatim.
		Args []string
		// Dir is the working directory. Empty means the current directory.
		Dir string
		// Env holds extra KEY=VALUE entries appended to the inherited environment.
		Env []string
		// Stdin is fed to the process when set.
		Stdin io.Reader
		// Stdout and Stderr receive a live copy of the output when set.
		Stdout io.Writer
		Stderr io.Writer
		// Timeout bounds the run. Zero means no bound besides the context.
		Timeout time.Duration
		// OKExitCodes lists non-zero exit codes that still count as success.
		OKExitCodes []types.ExitCode
	}

	// Result is the outcome of a completed invocation.
	Result struct {
		ExitCode types.ExitCode
		Stdout   string
		Stderr   string
	}

	// Runner executes invocations.
	Runner interface {
		Run(ctx context.Context, inv Invocation) (*Result, error)
	}

	// ExecRunner runs invocations as child processes.
	ExecRunner struct {
		execCommand ExecCommandFunc
		logger      *log.Logger
	}

	// Option configures an ExecRunner.
	Option func(*ExecRunner)

	// ToolNotFoundError is returned when the executable cannot be located.
	ToolNotFoundError struct {
		Name string
		Err  error
	}

	// ExitStatusError is returned when the tool exits with a code that is
	// neither zero nor listed in OKExitCodes. The Result is still returned
	// alongside it so callers can classify the code.
	ExitStatusError struct {
		Command string
		Code    types.ExitCode
		Stderr  string
	}

	// TimeoutError is returned when the invocation exceeded its Timeout.
	TimeoutError struct {
		Command string
		Timeout time.Duration
	}
)

// Error implements the error interface.
func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s: executable not found in PATH", e.Name)
}

// Unwrap exposes ErrToolNotFound and the underlying lookup error.
func (e *ToolNotFoundError) Unwrap() []error { return []error{ErrToolNotFound, e.Err} }

// Error implements the error interface.
func (e *ExitStatusError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

// Unwrap returns ErrExitStatus so callers can use errors.Is.
func (e *ExitStatusError) Unwrap() error { return ErrExitStatus }

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Command, e.Timeout)
}

// Unwrap returns ErrTimeout so callers can use errors.Is.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(r *ExecRunner) {
		r.execCommand = fn
	}
}

// WithLogger sets the logger used for debug traces of each invocation.
func WithLogger(l *log.Logger) Option {
	return func(r *ExecRunner) {
		r.logger = l
	}
}

// NewExecRunner creates an ExecRunner backed by exec.CommandContext.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{
		execCommand: exec.CommandContext,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes inv and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	rendered := inv.String()
	r.logger.Debug("running", "cmd", rendered, "dir", inv.Dir)

	cmd := r.execCommand(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(cmd.Environ(), inv.Env...)
	}
	if inv.Stdin != nil {
		cmd.Stdin = inv.Stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = teeTo(&stdout, inv.Stdout)
	cmd.Stderr = teeTo(&stderr, inv.Stderr)

	runErr := cmd.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if runErr == nil {
		return result, nil
	}

	if errors.Is(runErr, exec.ErrNotFound) {
		return nil, &ToolNotFoundError{Name: inv.Name, Err: runErr}
	}

	if inv.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &TimeoutError{Command: rendered, Timeout: inv.Timeout}
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", rendered, ctxErr)
		}
		return nil, fmt.Errorf("%s: %w", rendered, runErr)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", rendered, ctxErr)
	}

	result.ExitCode = types.ExitCode(exitErr.ExitCode())
	if slices.Contains(inv.OKExitCodes, result.ExitCode) {
		r.logger.Debug("accepted exit status", "cmd", inv.Name, "code", result.ExitCode)
		return result, nil
	}

	return result, &ExitStatusError{Command: rendered, Code: result.ExitCode, Stderr: result.Stderr}
}

// String renders the invocation as a shell-quoted command line for logs.
func (inv Invocation) String() string {
	words := make([]string, 0, len(inv.Args)+1)
	for _, w := range append([]string{inv.Name}, inv.Args...) {
		q, err := syntax.Quote(w, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", w)
		}
		words = append(words, q)
	}
	return strings.Join(words, " ")
}

// ExitCodeOf extracts the process exit code carried by err, if any.
func ExitCodeOf(err error) (types.ExitCode, bool) {
	var statusErr *ExitStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code, true
	}
	return 0, false
}

func teeTo(buf *bytes.Buffer, live io.Writer) io.Writer {
	if live == nil {
		return buf
	}
	return io.MultiWriter(buf, live)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
