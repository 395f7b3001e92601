// SPDX-License-Identifier: MPL-2.0

// Package tui provides the interactive prompts of the CLI, built on Bubble Tea
// with a plain line-based fallback when no terminal is attached.
package tui
