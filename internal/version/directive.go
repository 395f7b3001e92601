// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// KindMajor bumps the first component and zeroes the rest.
	KindMajor Kind = "major"
	// KindMinor bumps the second-to-last component and zeroes the last.
	KindMinor Kind = "minor"
	// KindPatch bumps the last component.
	KindPatch Kind = "patch"
	// KindPass leaves the version untouched.
	KindPass Kind = "pass"
)

// ErrUnknownDirective is the sentinel error wrapped by UnknownDirectiveError.
var ErrUnknownDirective = errors.New("unknown bump directive")

type (
	// Kind names a symbolic bump directive.
	Kind string

	// Directive is either a symbolic Kind or a zero-based component index.
	// Construct it with Symbolic, AtIndex or ParseDirective.
	Directive struct {
		kind    Kind
		index   int
		indexed bool
	}

	// UnknownDirectiveError is returned for a directive value that is neither
	// a known Kind nor a non-negative integer.
	UnknownDirectiveError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *UnknownDirectiveError) Error() string {
	return fmt.Sprintf("unknown bump directive %q (valid: major, minor, patch, pass or a component index)", e.Value)
}

// Unwrap returns ErrUnknownDirective so callers can use errors.Is.
func (e *UnknownDirectiveError) Unwrap() error { return ErrUnknownDirective }

// Validate returns an error if the Kind is not one of the known kinds.
func (k Kind) Validate() error {
	switch k {
	case KindMajor, KindMinor, KindPatch, KindPass:
		return nil
	default:
		return &UnknownDirectiveError{Value: string(k)}
	}
}

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// Symbolic returns a directive for the given kind. The kind is checked when
// the directive is applied, not here.
func Symbolic(k Kind) Directive {
	return Directive{kind: k}
}

// AtIndex returns a directive that increments the component at index i
// without zeroing the components after it.
func AtIndex(i int) Directive {
	return Directive{index: i, indexed: true}
}

// ParseDirective reads the command-line form of a directive: one of the
// kind names, or a non-negative integer index.
func ParseDirective(s string) (Directive, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Directive{}, &UnknownDirectiveError{Value: s}
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Directive{}, &UnknownDirectiveError{Value: s}
		}
		return AtIndex(n), nil
	}
	k := Kind(s)
	if err := k.Validate(); err != nil {
		return Directive{}, err
	}
	return Symbolic(k), nil
}

// Kind returns the symbolic kind. It is empty for index directives.
func (d Directive) Kind() Kind { return d.kind }

// Index returns the component index and true for index directives.
func (d Directive) Index() (int, bool) { return d.index, d.indexed }

// IsPass reports whether the directive leaves the version untouched.
func (d Directive) IsPass() bool { return !d.indexed && d.kind == KindPass }

// String renders the directive as accepted by ParseDirective.
func (d Directive) String() string {
	if d.indexed {
		return strconv.Itoa(d.index)
	}
	return string(d.kind)
}
