// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/WIN32GG/spvm/internal/issue"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine implements the operations shared by CLI engines.
	// Docker and Podman embed it and add engine-specific probing.
	BaseCLIEngine struct {
		name        string
		binaryPath  string
		execCommand ExecCommandFunc
	}
)

// WithExecCommand replaces process creation, for tests.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.execCommand = fn }
}

// WithBinaryPath pins the client binary instead of resolving it through PATH.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.binaryPath = path }
}

// NewBaseCLIEngine returns an engine driving binaryPath.
func NewBaseCLIEngine(name, binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		name:        name,
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BinaryPath returns the client binary, empty when it was not found.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// BuildArgs constructs arguments for a build command.
//
// Generated command: <binary> build [-f file] [-t tag] [--build-arg k=v]... [--label k=v]... <context>
func (e *BaseCLIEngine) BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}

	if opts.Dockerfile != "" {
		dockerfile := opts.Dockerfile
		if !filepath.IsAbs(dockerfile) && opts.ContextDir != "" {
			dockerfile = filepath.Join(opts.ContextDir, dockerfile)
		}
		args = append(args, "-f", dockerfile)
	}

	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}

	for _, k := range slices.Sorted(maps.Keys(opts.BuildArgs)) {
		args = append(args, "--build-arg", k+"="+opts.BuildArgs[k])
	}
	for _, k := range slices.Sorted(maps.Keys(opts.Labels)) {
		args = append(args, "--label", k+"="+opts.Labels[k])
	}

	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	return append(args, contextDir)
}

// PushArgs constructs arguments for a push command.
func (e *BaseCLIEngine) PushArgs(opts PushOptions) []string {
	return []string{"push", opts.Tag}
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandWithOutput runs the client and returns its stdout.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w: %s", e.binaryPath, args, err, strings.TrimSpace(errOut.String()))
	}
	return out.String(), nil
}

// Build builds an image from a Dockerfile.
func (e *BaseCLIEngine) Build(ctx context.Context, opts BuildOptions) error {
	if opts.Tag == "" {
		return fmt.Errorf("build container image: tag is required")
	}

	var stderr bytes.Buffer
	cmd := e.CreateCommand(ctx, e.BuildArgs(opts)...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = teeStderr(&stderr, opts.Stderr)

	if err := cmd.Run(); err != nil {
		return buildContainerError(e.name, opts, withStderr(err, stderr.String()))
	}
	return nil
}

// Push uploads an image to its registry.
func (e *BaseCLIEngine) Push(ctx context.Context, opts PushOptions) error {
	if opts.Tag == "" {
		return fmt.Errorf("push container image: tag is required")
	}

	var stderr bytes.Buffer
	cmd := e.CreateCommand(ctx, e.PushArgs(opts)...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = teeStderr(&stderr, opts.Stderr)

	if err := cmd.Run(); err != nil {
		return pushContainerError(e.name, opts, withStderr(err, stderr.String()))
	}
	return nil
}

// buildContainerError creates an actionable error for image build failures.
func buildContainerError(engine string, opts BuildOptions, cause error) error {
	ctx := issue.NewErrorContext().WithOperation("build container image")

	switch {
	case opts.Dockerfile != "":
		ctx.WithResource(opts.Dockerfile)
	case opts.ContextDir != "":
		ctx.WithResource(filepath.Join(opts.ContextDir, "Dockerfile"))
	default:
		ctx.WithResource(opts.Tag)
	}

	return ctx.
		WithSuggestion("Check Dockerfile syntax for errors").
		WithSuggestion("Ensure base images are available (try: " + engine + " pull <base-image>)").
		WithSuggestion("Run with --verbose to see the full build output").
		Wrap(cause).
		BuildError()
}

// pushContainerError creates an actionable error for image push failures.
func pushContainerError(engine string, opts PushOptions, cause error) error {
	return issue.NewErrorContext().
		WithOperation("push container image").
		WithResource(opts.Tag).
		WithSuggestion("Log in to the registry first (try: " + engine + " login <registry>)").
		WithSuggestion("Check that docker_repository in pyp.json names a registry you can write to").
		Wrap(cause).
		BuildError()
}

// stderrError keeps the engine's diagnostic output next to the exit error so
// IsTransientError can classify it.
type stderrError struct {
	err    error
	stderr string
}

func (e *stderrError) Error() string {
	if e.stderr == "" {
		return e.err.Error()
	}
	return e.err.Error() + ": " + e.stderr
}

func (e *stderrError) Unwrap() error { return e.err }

func withStderr(err error, stderr string) error {
	return &stderrError{err: err, stderr: strings.TrimSpace(stderr)}
}

func teeStderr(buf *bytes.Buffer, live io.Writer) io.Writer {
	if live == nil {
		return buf
	}
	return io.MultiWriter(buf, live)
}
