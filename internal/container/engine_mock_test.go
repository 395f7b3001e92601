// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"testing"
)

type (
	// MockCommandRecorder captures arguments passed to exec.Command for verification.
	// It uses the TestHelperProcess pattern to simulate command execution.
	MockCommandRecorder struct {
		mu sync.Mutex
		// Invocations records each call to the mock exec.Command
		Invocations []MockInvocation
		// ExitCode is the exit code to return (0 = success)
		ExitCode int
		// Stdout is the output to write to stdout
		Stdout string
		// Stderr is the output to write to stderr
		Stderr string
		// FailOnCommand names a subcommand that exits 1 regardless of ExitCode
		FailOnCommand string
	}

	// MockInvocation represents a single invocation of exec.Command.
	MockInvocation struct {
		Name string
		Args []string
	}
)

func NewMockCommandRecorder() *MockCommandRecorder {
	return &MockCommandRecorder{}
}

// CommandFunc returns an ExecCommandFunc that records invocations and runs
// TestHelperProcess instead of the real binary.
func (m *MockCommandRecorder) CommandFunc(t *testing.T) ExecCommandFunc {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		m.mu.Lock()
		m.Invocations = append(m.Invocations, MockInvocation{Name: name, Args: args})
		exitCode := m.ExitCode
		if m.FailOnCommand != "" && len(args) > 0 && args[0] == m.FailOnCommand {
			exitCode = 1
		}
		stdout, stderr := m.Stdout, m.Stderr
		m.mu.Unlock()

		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		//nolint:gosec // TestHelperProcess is a test-only pattern
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", exitCode),
			"GO_HELPER_STDOUT=" + stdout,
			"GO_HELPER_STDERR=" + stderr,
		}
		return cmd
	}
}

// LastArgs returns the arguments from the most recent invocation.
func (m *MockCommandRecorder) LastArgs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Invocations) == 0 {
		return nil
	}
	return m.Invocations[len(m.Invocations)-1].Args
}

// AssertFirstArg verifies the first argument (subcommand) matches.
func (m *MockCommandRecorder) AssertFirstArg(t *testing.T, expected string) {
	t.Helper()
	args := m.LastArgs()
	if len(args) == 0 {
		t.Fatalf("expected first arg %q but args are empty", expected)
	}
	if args[0] != expected {
		t.Errorf("expected first arg %q, got %q", expected, args[0])
	}
}

// AssertArgsContain verifies that the last invocation args contain the expected string.
func (m *MockCommandRecorder) AssertArgsContain(t *testing.T, expected string) {
	t.Helper()
	args := m.LastArgs()
	if !strings.Contains(strings.Join(args, " "), expected) {
		t.Errorf("expected args to contain %q, got: %v", expected, args)
	}
}

// AssertInvocationCount verifies the number of command invocations.
func (m *MockCommandRecorder) AssertInvocationCount(t *testing.T, expected int) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Invocations) != expected {
		t.Errorf("expected %d invocations, got %d", expected, len(m.Invocations))
	}
}

// HasArgPair checks if the last invocation contains a flag-value pair (e.g., "-t", "myimage").
func (m *MockCommandRecorder) HasArgPair(flag, value string) bool {
	args := m.LastArgs()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

// HasArg checks if the last invocation contains a specific argument.
func (m *MockCommandRecorder) HasArg(arg string) bool {
	return slices.Contains(m.LastArgs(), arg)
}

// TestHelperProcess is used by the mock to simulate command execution.
// It is not a real test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}
	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}

	exitCode := 0
	if code := os.Getenv("GO_HELPER_EXIT_CODE"); code != "" {
		fmt.Sscanf(code, "%d", &exitCode)
	}
	os.Exit(exitCode)
}

func newMockDocker(t *testing.T) (*DockerEngine, *MockCommandRecorder) {
	t.Helper()
	recorder := NewMockCommandRecorder()
	engine := NewDockerEngine(WithBinaryPath("docker"), WithExecCommand(recorder.CommandFunc(t)))
	return engine, recorder
}

func newMockPodman(t *testing.T) (*PodmanEngine, *MockCommandRecorder) {
	t.Helper()
	recorder := NewMockCommandRecorder()
	engine := NewPodmanEngine(WithBinaryPath("podman"), WithExecCommand(recorder.CommandFunc(t)))
	return engine, recorder
}
