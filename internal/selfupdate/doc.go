// SPDX-License-Identifier: MPL-2.0

// Package selfupdate checks, in the background, whether a newer spvm has
// been published to the package index, and tells the user how to upgrade.
//
//   - check.go: version comparison against the index and the detached check
//   - detect.go: install method detection, which picks the upgrade hint
package selfupdate
