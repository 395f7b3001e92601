// SPDX-License-Identifier: MPL-2.0

// Package pipeline assembles and runs the release pipeline: a fixed,
// configuration-gated sequence of steps from cleaning the previous build to
// publishing the new version.
package pipeline
