// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/WIN32GG/spvm/pkg/types"
)

// helperCommand returns an ExecCommandFunc that re-executes the test binary
// as TestHelperProcess with the configured behaviour.
func helperCommand(t *testing.T, exitCode int, stdout, stderr string, seen *[]string) ExecCommandFunc {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if seen != nil {
			*seen = append(*seen, strings.Join(append([]string{name}, args...), " "))
		}
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		//nolint:gosec // test helper re-executes the test binary
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

// TestHelperProcess is invoked by helperCommand; it is not a real test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("GO_HELPER_SLEEP") != "" {
		time.Sleep(5 * time.Second)
	}
	fmt.Fprint(os.Stdout, os.Getenv("GO_HELPER_STDOUT"))
	fmt.Fprint(os.Stderr, os.Getenv("GO_HELPER_STDERR"))
	code := 0
	fmt.Sscanf(os.Getenv("GO_HELPER_EXIT_CODE"), "%d", &code)
	os.Exit(code)
}

func TestExecRunner_Success(t *testing.T) {
	t.Parallel()

	var seen []string
	r := NewExecRunner(WithExecCommand(helperCommand(t, 0, "hello", "", &seen)))

	res, err := r.Run(context.Background(), Invocation{Name: "pip", Args: []string{"download", "requests"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stdout != "hello" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello")
	}
	if len(seen) != 1 || seen[0] != "pip download requests" {
		t.Errorf("recorded %v", seen)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	t.Parallel()

	r := NewExecRunner(WithExecCommand(helperCommand(t, 1, "", "BAD signature", nil)))

	res, err := r.Run(context.Background(), Invocation{Name: "gpg", Args: []string{"--verify"}})
	if !errors.Is(err, ErrExitStatus) {
		t.Fatalf("Run() error = %v, want ErrExitStatus", err)
	}
	if res == nil || res.ExitCode != 1 {
		t.Fatalf("Result = %+v, want exit code 1", res)
	}
	if code, ok := ExitCodeOf(err); !ok || code != 1 {
		t.Errorf("ExitCodeOf() = %d, %v", code, ok)
	}
	if !strings.Contains(err.Error(), "BAD signature") {
		t.Errorf("error %q does not carry stderr", err)
	}
}

func TestExecRunner_AcceptedExitCode(t *testing.T) {
	t.Parallel()

	r := NewExecRunner(WithExecCommand(helperCommand(t, 5, "", "", nil)))

	res, err := r.Run(context.Background(), Invocation{
		Name:        "python",
		Args:        []string{"-m", "pytest"},
		OKExitCodes: []types.ExitCode{5},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 5 {
		t.Errorf("ExitCode = %d, want 5", res.ExitCode)
	}
}

func TestExecRunner_ToolNotFound(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()
	_, err := r.Run(context.Background(), Invocation{Name: "spvm-definitely-not-a-real-tool"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Run() error = %v, want ErrToolNotFound", err)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	t.Parallel()

	slow := func(ctx context.Context, name string, args ...string) *exec.Cmd {
		//nolint:gosec // test helper re-executes the test binary
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess", "--", name)
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1", "GO_HELPER_SLEEP=1"}
		return cmd
	}
	r := NewExecRunner(WithExecCommand(slow))

	_, err := r.Run(context.Background(), Invocation{Name: "gpg", Timeout: 50 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
}

func TestInvocation_String(t *testing.T) {
	t.Parallel()

	inv := Invocation{Name: "git", Args: []string{"commit", "-m", "Release 1.0.0"}}
	if got, want := inv.String(), "git commit -m 'Release 1.0.0'"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
