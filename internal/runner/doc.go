// SPDX-License-Identifier: MPL-2.0

// Package runner executes external tools (pip, gpg, git, twine, linters)
// as structured invocations: an explicit argument vector, working directory,
// optional stdin, a timeout and the set of exit codes the caller accepts.
//
// Nothing is ever passed through a shell. The rendered command line produced
// by Invocation.String is for logs only.
package runner
