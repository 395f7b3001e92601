// SPDX-License-Identifier: MPL-2.0

// Package publish decides where a release can go (git, PyPI, a container
// registry) and performs the publication to each of those targets.
package publish
