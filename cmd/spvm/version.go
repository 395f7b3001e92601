// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/WIN32GG/spvm/internal/selfupdate"
)

func newVersionCommand(app *App) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the spvm version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "spvm "+getVersionString())
			if !check {
				return nil
			}
			if err := runVersionCheck(cmd.Context(), app, cmd.OutOrStdout()); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "compare with the latest published version")
	return cmd
}

// runVersionCheck runs the freshness check in the foreground.
func runVersionCheck(ctx context.Context, app *App, w io.Writer) error {
	if Version == selfupdate.DevVersion {
		fmt.Fprintln(w, SubtitleStyle.Render("development build, nothing to compare"))
		return nil
	}
	s, err := app.session(ctx)
	if err != nil {
		return err
	}

	checker := selfupdate.NewChecker(s.index, Version, selfupdate.WithLogger(s.logger))
	res, err := checker.Check(ctx)
	if err != nil {
		return fmt.Errorf("checking for a newer version: %w", err)
	}
	if !res.Outdated {
		fmt.Fprintf(w, "%s spvm is up to date (%s)\n", SuccessStyle.Render("✓"), res.Latest)
		return nil
	}

	fmt.Fprintln(w, WarningStyle.Render(res.Message()))
	return nil
}
