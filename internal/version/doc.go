// SPDX-License-Identifier: MPL-2.0

// Package version parses and bumps dotted release versions.
//
// A Version always carries at least three non-negative components; shorter
// inputs are left-padded with zeros. Bumps are pure and return a new Version.
package version
