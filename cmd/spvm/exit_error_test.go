// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/WIN32GG/spvm/internal/pipeline"
	"github.com/WIN32GG/spvm/internal/verify"
	"github.com/WIN32GG/spvm/pkg/types"
)

func TestExitError(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	withErr := &ExitError{Code: 3, Err: inner}
	if withErr.Error() != "boom" {
		t.Errorf("Error() = %q", withErr.Error())
	}
	if !errors.Is(withErr, inner) {
		t.Error("ExitError does not unwrap to its cause")
	}

	bare := &ExitError{Code: 2}
	if bare.Error() != "exit status 2" {
		t.Errorf("Error() = %q, want %q", bare.Error(), "exit status 2")
	}
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	integrity := &verify.IntegrityError{Filename: "requests-2.0.tar.gz", Err: errors.New("digest mismatch")}

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"nil", nil, types.ExitSuccess},
		{"generic", errors.New("nope"), types.ExitFailure},
		{"declined", pipeline.ErrDeclined, types.ExitFailure},
		{"integrity", integrity, types.ExitIntegrity},
		{"integrity inside a step", &pipeline.StepError{Step: pipeline.StepUpdateDependencies, Err: integrity}, types.ExitIntegrity},
		{"interrupted", fmt.Errorf("running tests: %w", context.Canceled), types.ExitInterrupted},
		{"explicit exit error", &ExitError{Code: 4}, 4},
		{"wrapped exit error", &ExitError{Code: types.ExitIntegrity, Err: integrity}, types.ExitIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
