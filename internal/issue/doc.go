// SPDX-License-Identifier: MPL-2.0

// Package issue holds the user-facing error vocabulary of spvm: actionable
// errors that carry the failed operation and remediation hints, and a catalog
// of markdown help pages rendered in the terminal.
package issue
