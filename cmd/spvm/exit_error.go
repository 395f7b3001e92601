// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/WIN32GG/spvm/internal/verify"
	"github.com/WIN32GG/spvm/pkg/types"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps a command failure to the process exit status.
// Integrity violations win over everything else so that a tampered
// download is never reported as an ordinary failure.
func exitCodeFor(err error) types.ExitCode {
	switch {
	case err == nil:
		return types.ExitSuccess
	case errors.Is(err, verify.ErrIntegrity):
		return types.ExitIntegrity
	case errors.Is(err, context.Canceled):
		return types.ExitInterrupted
	default:
		if exitErr, ok := errors.AsType[*ExitError](err); ok {
			return exitErr.Code
		}
		return types.ExitFailure
	}
}
