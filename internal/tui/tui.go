// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrCancelled is returned when the user aborts a prompt (ctrl+c, esc, EOF).
var ErrCancelled = errors.New("user aborted")

// Config holds common configuration for prompts.
type Config struct {
	// Accessible replaces the interactive widget with a line-based prompt.
	Accessible bool
	// Input is where answers are read from.
	Input io.Reader
	// Output is where prompts are written.
	Output io.Writer
}

// DefaultConfig reads from stdin and writes to stderr, so prompts are not
// captured by shell redirections of stdout. Accessible mode is enabled when
// stdin is not a terminal or the ACCESSIBLE environment variable is set.
func DefaultConfig() Config {
	return Config{
		Accessible: !isInputTerminal() || os.Getenv("ACCESSIBLE") != "",
		Input:      os.Stdin,
		Output:     os.Stderr,
	}
}

func isInputTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
