// SPDX-License-Identifier: MPL-2.0

// Package testutil holds fixtures shared by spvm tests: Must* wrappers that
// fail the test instead of returning errors (MustSetenv, MustChdir,
// MustWriteFile...), an initialized demo project (NewProject) and a git
// repository with one commit (InitRepo).
package testutil
