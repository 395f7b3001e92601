// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/WIN32GG/spvm/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spvm",
		Short: "Release pipeline for Python projects",
		Long: TitleStyle.Render("spvm") + SubtitleStyle.Render(" - Simple Python Version Manager") + `

spvm keeps the metadata of a Python project in pyp.json and drives its
releases: dependency verification, conformance checks, tests, version bump
and publication to git, PyPI and a container registry.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run spvm init in your project directory
  2. Check the project with spvm status
  3. Release with spvm patch (or minor, major)

` + SubtitleStyle.Render("Examples:") + `
  spvm status -s            Show project info and every conformance problem
  spvm add requests>=2      Verify, install and record a dependency
  spvm release 2 --mock     Bump the third version component, publish to the test index
  spvm publish git pypi     Publish the current version without the pipeline`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			app.startUpdateCheck(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is $HOME/.config/spvm/config.cue)")
	rootCmd.PersistentFlags().StringVarP(&app.flags.projectDir, "project", "C", "", "project directory (default is the working directory)")

	rootCmd.AddCommand(
		newInitCommand(app),
		newStatusCommand(app),
		newUpdateCommand(app),
		newTestCommand(app),
		newAddCommand(app),
		newRepairCommand(app),
		newInstallCommand(app),
		newBuildCommand(app),
		newPublishCommand(app),
		newConfigCommand(app),
		newVersionCommand(app),
	)
	rootCmd.AddCommand(newBumpCommands(app)...)
	rootCmd.AddCommand(newReleaseCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the mapped status code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := newRootCommand(app)

	// fang overrides rootCmd.Version, so the version is passed explicitly.
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	app.reportUpdate()
	if err != nil {
		os.Exit(int(exitCodeFor(err)))
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// fail prints err the way the CLI reports failures and returns the
// ExitError carrying the matching status code. The linked help page, if
// any, is rendered in verbose mode.
func (a *App) fail(cmd *cobra.Command, err error) error {
	cmd.SilenceErrors = true

	verbose := a.flags.verbose
	if a.env != nil {
		verbose = a.env.verbose
	}

	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	if is, ok := issue.IssueOf(err); ok && verbose {
		if rendered, renderErr := is.Render("dark"); renderErr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
	return &ExitError{Code: exitCodeFor(err), Err: err}
}
