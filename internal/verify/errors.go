// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"errors"
	"fmt"
)

var (
	// ErrDownload is the sentinel error wrapped by DownloadError.
	ErrDownload = errors.New("package download failed")

	// ErrIntegrity is the sentinel error wrapped by IntegrityError.
	ErrIntegrity = errors.New("artifact integrity violation")

	// ErrChecksumMismatch is the sentinel error wrapped by ChecksumError.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrBadSignature is the sentinel error wrapped by SignatureError.
	ErrBadSignature = errors.New("bad signature")

	// ErrMalformedName is returned by ParseArtifact for unrecognised file names.
	ErrMalformedName = errors.New("malformed artifact file name")
)

type (
	// DownloadError is returned when fetching a requested specifier fails.
	// Nothing from the batch is installed.
	DownloadError struct {
		Specifier string
		Err       error
	}

	// IntegrityError is returned when an artifact is provably not what the
	// index published. It is always fatal.
	IntegrityError struct {
		Filename string
		Err      error
	}

	// ChecksumError details a digest mismatch.
	ChecksumError struct {
		Filename  string
		Algorithm string
		Expected  string
		Got       string
	}

	// SignatureError details a signature the verifier rejected.
	SignatureError struct {
		Filename string
		Detail   string
	}
)

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("downloading %s: %v", e.Specifier, e.Err)
}

// Unwrap exposes ErrDownload and the underlying cause.
func (e *DownloadError) Unwrap() []error { return []error{ErrDownload, e.Err} }

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: %v", e.Filename, e.Err)
}

// Unwrap exposes ErrIntegrity and the detailed cause.
func (e *IntegrityError) Unwrap() []error { return []error{ErrIntegrity, e.Err} }

// Error implements the error interface.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s digest mismatch for %s\nExpected: %s\nGot:      %s", e.Algorithm, e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// Error implements the error interface.
func (e *SignatureError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("bad signature for %s", e.Filename)
	}
	return fmt.Sprintf("bad signature for %s: %s", e.Filename, e.Detail)
}

// Unwrap returns ErrBadSignature so callers can use errors.Is.
func (e *SignatureError) Unwrap() error { return ErrBadSignature }
