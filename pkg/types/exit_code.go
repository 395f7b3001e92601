// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared by spvm packages.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitSuccess is returned when the requested operation completed.
	ExitSuccess ExitCode = 0
	// ExitFailure covers generic failures and declined confirmations.
	ExitFailure ExitCode = 1
	// ExitInterrupted is returned when the user interrupted the run.
	ExitInterrupted ExitCode = 2
	// ExitIntegrity is returned when a downloaded artifact failed verification.
	ExitIntegrity ExitCode = 3
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code in the POSIX range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether the code means success.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// IsTransient reports whether a container engine exit code is worth retrying
// (125 daemon error, 126 command not invokable).
func (c ExitCode) IsTransient() bool { return c == 125 || c == 126 }

// String returns the decimal representation.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
