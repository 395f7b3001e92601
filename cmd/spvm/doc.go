// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for spvm.
//
// This package implements the Cobra command hierarchy: project setup and
// inspection (init, status), dependency management (add, update), the code
// quality commands (test, repair), the release pipeline (release and its
// patch/minor/major shortcuts), standalone publishing and configuration.
package cmd
