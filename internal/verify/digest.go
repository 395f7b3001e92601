// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"crypto/md5" //nolint:gosec // md5 is only compared against index metadata, never trusted alone
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/WIN32GG/spvm/internal/pypi"
)

// checkDigests streams the file once through every hash the index published
// and compares the results. It returns checked=false when the index published
// no digest at all.
func checkDigests(path, filename string, want pypi.Digests) (checked bool, err error) {
	type check struct {
		algorithm string
		expected  string
		h         hash.Hash
	}

	var checks []check
	if want.SHA256 != "" {
		checks = append(checks, check{"sha256", want.SHA256, sha256.New()})
	}
	if want.Blake2b256 != "" {
		b2, err := blake2b.New256(nil)
		if err != nil {
			return false, fmt.Errorf("initialising blake2b: %w", err)
		}
		checks = append(checks, check{"blake2b_256", want.Blake2b256, b2})
	}
	if want.MD5 != "" {
		checks = append(checks, check{"md5", want.MD5, md5.New()}) //nolint:gosec // see import
	}
	if len(checks) == 0 {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", filename, err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	writers := make([]io.Writer, len(checks))
	for i := range checks {
		writers[i] = checks[i].h
	}
	if _, err := io.Copy(io.MultiWriter(writers...), f); err != nil {
		return false, fmt.Errorf("hashing %s: %w", filename, err)
	}

	for _, c := range checks {
		got := hex.EncodeToString(c.h.Sum(nil))
		if !strings.EqualFold(got, c.expected) {
			return true, &ChecksumError{
				Filename:  filename,
				Algorithm: c.algorithm,
				Expected:  strings.ToLower(c.expected),
				Got:       got,
			}
		}
	}
	return true, nil
}
