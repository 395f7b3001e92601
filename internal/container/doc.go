// SPDX-License-Identifier: MPL-2.0

// Package container builds and pushes release images through the Docker or
// Podman command-line clients.
package container
