// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"fmt"
	"strings"
)

const (
	// KindWheel is a built distribution (.whl).
	KindWheel ArtifactKind = "wheel"
	// KindSdist is a source distribution archive.
	KindSdist ArtifactKind = "sdist"
)

var sdistSuffixes = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".zip"}

type (
	// ArtifactKind distinguishes wheels from source archives.
	ArtifactKind string

	// Artifact is a distribution file name split into its project and version.
	Artifact struct {
		Filename string
		Project  string
		Version  string
		Kind     ArtifactKind
	}
)

// ParseArtifact splits a distribution file name.
//
// Wheels follow name-version(-build)?-python-abi-platform.whl; source
// archives follow name-version.<ext>, where the name itself may contain
// dashes. Anything else yields ErrMalformedName.
func ParseArtifact(filename string) (Artifact, error) {
	if base, ok := strings.CutSuffix(filename, ".whl"); ok {
		parts := strings.Split(base, "-")
		if len(parts) < 5 || parts[0] == "" || !startsWithDigit(parts[1]) {
			return Artifact{}, fmt.Errorf("%w: %s", ErrMalformedName, filename)
		}
		return Artifact{Filename: filename, Project: parts[0], Version: parts[1], Kind: KindWheel}, nil
	}

	for _, suffix := range sdistSuffixes {
		base, ok := strings.CutSuffix(filename, suffix)
		if !ok {
			continue
		}
		i := strings.LastIndexByte(base, '-')
		if i <= 0 || !startsWithDigit(base[i+1:]) {
			return Artifact{}, fmt.Errorf("%w: %s", ErrMalformedName, filename)
		}
		return Artifact{Filename: filename, Project: base[:i], Version: base[i+1:], Kind: KindSdist}, nil
	}

	return Artifact{}, fmt.Errorf("%w: %s", ErrMalformedName, filename)
}

// IsPackageFile reports whether name looks like an installable distribution.
func IsPackageFile(name string) bool {
	if strings.HasSuffix(name, ".whl") {
		return true
	}
	for _, suffix := range sdistSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
