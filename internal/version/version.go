// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MinComponents is the minimum number of components a Version carries.
const MinComponents = 3

var (
	// ErrFormat is the sentinel error wrapped by FormatError.
	ErrFormat = errors.New("invalid version format")

	// ErrRange is the sentinel error wrapped by RangeError.
	ErrRange = errors.New("version component index out of range")
)

type (
	// Version is an ordered list of non-negative integer components.
	// The zero value is not a valid version; use Parse or New.
	Version []int

	// FormatError is returned when a version string contains a component
	// that is not a non-negative integer.
	FormatError struct {
		Input     string
		Component string
	}

	// RangeError is returned when a numeric directive addresses a component
	// the version does not have.
	RangeError struct {
		Index int
		Len   int
	}
)

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid version %q: component %q is not a non-negative integer", e.Input, e.Component)
}

// Unwrap returns ErrFormat so callers can use errors.Is.
func (e *FormatError) Unwrap() error { return ErrFormat }

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("component index %d out of range for a %d-component version", e.Index, e.Len)
}

// Unwrap returns ErrRange so callers can use errors.Is.
func (e *RangeError) Unwrap() error { return ErrRange }

// Parse reads a dot-separated version string such as "1.4.2".
// Inputs with fewer than three components are left-padded with zeros,
// so "1" parses to 0.0.1.
func Parse(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")

	components := make([]int, 0, max(len(parts), MinComponents))
	for _, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return nil, &FormatError{Input: s, Component: p}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, &FormatError{Input: s, Component: p}
		}
		components = append(components, n)
	}

	return New(components...)
}

// New builds a Version from explicit components, left-padding to three.
func New(components ...int) (Version, error) {
	for _, c := range components {
		if c < 0 {
			return nil, &FormatError{Input: fmt.Sprint(components), Component: strconv.Itoa(c)}
		}
	}
	v := make(Version, 0, max(len(components), MinComponents))
	for range MinComponents - len(components) {
		v = append(v, 0)
	}
	return append(v, components...), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String joins the components with dots.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}

// Equal reports whether both versions have identical components.
func (v Version) Equal(o Version) bool {
	return slices.Equal(v, o)
}

// Compare orders two versions component by component. Missing trailing
// components compare as zero.
func (v Version) Compare(o Version) int {
	for i := range max(len(v), len(o)) {
		a, b := at(v, i), at(o, i)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

func at(v Version, i int) int {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// Bump applies a directive and returns the new version. changed is false only
// for the pass directive, in which case callers must not persist anything.
// The receiver is never modified.
func Bump(v Version, d Directive) (next Version, changed bool, err error) {
	if len(v) < MinComponents {
		return nil, false, &FormatError{Input: v.String(), Component: ""}
	}

	if idx, ok := d.Index(); ok {
		if idx < 0 || idx >= len(v) {
			return nil, false, &RangeError{Index: idx, Len: len(v)}
		}
		next = slices.Clone(v)
		next[idx]++
		return next, true, nil
	}

	switch d.Kind() {
	case KindPass:
		return slices.Clone(v), false, nil
	case KindMajor:
		return bumpAndZero(v, 0), true, nil
	case KindMinor:
		return bumpAndZero(v, len(v)-2), true, nil
	case KindPatch:
		return bumpAndZero(v, len(v)-1), true, nil
	default:
		return nil, false, &UnknownDirectiveError{Value: string(d.Kind())}
	}
}

// bumpAndZero increments component i and zeroes every component after it.
func bumpAndZero(v Version, i int) Version {
	next := slices.Clone(v)
	next[i]++
	for j := i + 1; j < len(next); j++ {
		next[j] = 0
	}
	return next
}
