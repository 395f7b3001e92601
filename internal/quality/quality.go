// SPDX-License-Identifier: MPL-2.0

package quality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/runner"
	"github.com/WIN32GG/spvm/pkg/types"
)

const (
	// pytestNoTests is the pytest exit status when no test was collected.
	pytestNoTests types.ExitCode = 5

	defaultPython = "python3"
)

var (
	// ErrNotConform is returned when conformance tools report problems.
	ErrNotConform = errors.New("code is not conform")
	// ErrTestsFailed is returned when the test suite fails.
	ErrTestsFailed = errors.New("tests failed")
	// ErrBuildFailed is returned when the distributions could not be built.
	ErrBuildFailed = errors.New("build failed")
)

type (
	// Report lists the problems found by the conformance tools.
	Report struct {
		// Errors are pyflakes findings (undefined names, unused imports...).
		Errors []string `json:"errors" yaml:"errors"`
		// Conformity are pycodestyle findings.
		Conformity []string `json:"conformity" yaml:"conformity"`
	}

	// ConformanceError reports a failed conformance check.
	ConformanceError struct {
		Errors     int
		Conformity int
	}

	// TestsFailedError reports a failing pytest run.
	TestsFailedError struct {
		Code types.ExitCode
	}

	// TestOutcome is the result of a successful test run.
	TestOutcome int

	// Toolchain runs the Python tools inside a project directory.
	Toolchain struct {
		runner runner.Runner
		dir    string
		python string
		live   io.Writer
		logger *log.Logger
	}

	// Option configures a Toolchain.
	Option func(*Toolchain)
)

const (
	// TestsPassed means pytest collected and passed tests.
	TestsPassed TestOutcome = iota
	// NoTestsFound means pytest collected nothing; tolerated with a warning.
	NoTestsFound
)

func (e *ConformanceError) Error() string {
	return fmt.Sprintf("%d error(s) and %d conformity problem(s) found", e.Errors, e.Conformity)
}

func (e *ConformanceError) Unwrap() error { return ErrNotConform }

func (e *TestsFailedError) Error() string {
	return fmt.Sprintf("pytest exited with status %d", int(e.Code))
}

func (e *TestsFailedError) Unwrap() error { return ErrTestsFailed }

// Total is the number of problems in the report.
func (r *Report) Total() int {
	return len(r.Errors) + len(r.Conformity)
}

// Err returns a ConformanceError when the report is not empty.
func (r *Report) Err() error {
	if r.Total() == 0 {
		return nil
	}
	return &ConformanceError{Errors: len(r.Errors), Conformity: len(r.Conformity)}
}

// WithPython sets the interpreter. Defaults to python3.
func WithPython(python string) Option {
	return func(t *Toolchain) { t.python = python }
}

// WithOutput streams the output of long-running tools (pytest, pip) to w.
func WithOutput(w io.Writer) Option {
	return func(t *Toolchain) { t.live = w }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(t *Toolchain) { t.logger = l }
}

// New returns a Toolchain working in dir.
func New(r runner.Runner, dir string, opts ...Option) *Toolchain {
	t := &Toolchain{runner: r, dir: dir, python: defaultPython}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.New(io.Discard)
	}
	return t
}

// Check runs pyflakes and pycodestyle over the project, skipping the
// pycodestyle codes in ignored. Findings are returned, not treated as errors.
func (t *Toolchain) Check(ctx context.Context, ignored []string) (*Report, error) {
	flakes, err := t.module(ctx, "pyflakes", []string{"."}, 1)
	if err != nil {
		return nil, err
	}

	args := []string{"."}
	if codes := compact(ignored); len(codes) > 0 {
		args = append([]string{"--ignore=" + strings.Join(codes, ",")}, args...)
	}
	style, err := t.module(ctx, "pycodestyle", args, 1)
	if err != nil {
		return nil, err
	}

	report := &Report{Errors: lines(flakes.Stdout), Conformity: lines(style.Stdout)}
	t.logger.Debug("conformance checked", "errors", len(report.Errors), "conformity", len(report.Conformity))
	return report, nil
}

// Test runs pytest. Collecting no test is tolerated and reported as NoTestsFound.
func (t *Toolchain) Test(ctx context.Context) (TestOutcome, error) {
	res, err := t.runner.Run(ctx, runner.Invocation{
		Name:        t.python,
		Args:        []string{"-m", "pytest"},
		Dir:         t.dir,
		Stdout:      t.live,
		Stderr:      t.live,
		OKExitCodes: []types.ExitCode{pytestNoTests},
	})
	if err != nil {
		if code, ok := runner.ExitCodeOf(err); ok {
			if missing := missingModule(err, "pytest"); missing != nil {
				return 0, missing
			}
			return 0, &TestsFailedError{Code: code}
		}
		return 0, err
	}

	if res.ExitCode == pytestNoTests {
		t.logger.Warn("no tests were found; this is not fatal but strongly discouraged")
		return NoTestsFound, nil
	}
	return TestsPassed, nil
}

// Repair rewrites the sources in place with autopep8.
func (t *Toolchain) Repair(ctx context.Context) error {
	_, err := t.module(ctx, "autopep8", []string{"-r", "-a", "--in-place", "."})
	return err
}

// Build creates the sdist and wheel in distDir and returns the files built.
func (t *Toolchain) Build(ctx context.Context, distDir string) ([]string, error) {
	_, err := t.runner.Run(ctx, runner.Invocation{
		Name: t.python,
		Args: []string{"setup.py", "sdist", "-d", distDir, "bdist_wheel", "-d", distDir},
		Dir:  t.dir,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	entries, err := os.ReadDir(distDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(distDir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no distribution produced in %s", ErrBuildFailed, distDir)
	}
	t.logger.Info("built distributions", "count", len(files), "dir", distDir)
	return files, nil
}

// module runs `python -m <name> args...`. A missing module is reported as
// runner.ToolNotFoundError rather than as a failed run.
func (t *Toolchain) module(ctx context.Context, name string, args []string, okCodes ...types.ExitCode) (*runner.Result, error) {
	res, err := t.runner.Run(ctx, runner.Invocation{
		Name:        t.python,
		Args:        append([]string{"-m", name}, args...),
		Dir:         t.dir,
		OKExitCodes: okCodes,
	})
	if err == nil && res != nil && isMissingModule(res.Stderr, name) {
		return nil, &runner.ToolNotFoundError{Name: t.python + " -m " + name, Err: errors.New(strings.TrimSpace(res.Stderr))}
	}
	if err != nil {
		if missing := missingModule(err, name); missing != nil {
			return nil, missing
		}
		return nil, err
	}
	return res, nil
}

func missingModule(err error, name string) error {
	var statusErr *runner.ExitStatusError
	if errors.As(err, &statusErr) && isMissingModule(statusErr.Stderr, name) {
		return &runner.ToolNotFoundError{Name: "python -m " + name, Err: err}
	}
	return nil
}

func isMissingModule(stderr, name string) bool {
	return strings.Contains(stderr, "No module named "+name) ||
		strings.Contains(stderr, "No module named '"+name+"'")
}

func lines(out string) []string {
	var result []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimRight(l, "\r "); l != "" {
			result = append(result, l)
		}
	}
	return result
}

func compact(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
