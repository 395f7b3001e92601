// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/WIN32GG/spvm/internal/config"
	"github.com/WIN32GG/spvm/internal/project"
	"github.com/WIN32GG/spvm/internal/quality"
	"github.com/WIN32GG/spvm/internal/verify"
)

// projectAction is the body of a command that works on an opened project.
type projectAction func(ctx context.Context, s *session, proj *project.Project, out io.Writer) error

// newProjectCommand builds a command taking an optional projectname that
// opens the project and hands it to action.
func newProjectCommand(app *App, use, short string, action projectAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [projectname]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.withProject(cmd, args, action); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
}

func (a *App) withProject(cmd *cobra.Command, args []string, action projectAction) error {
	ctx := cmd.Context()
	root, err := a.projectRoot(args)
	if err != nil {
		return err
	}
	s, err := a.session(ctx)
	if err != nil {
		return err
	}
	proj, err := s.openProject(root)
	if err != nil {
		return err
	}
	return action(ctx, s, proj, cmd.OutOrStdout())
}

func newUpdateCommand(app *App) *cobra.Command {
	var signed bool
	cmd := newProjectCommand(app, "update", "Update the dependencies",
		func(ctx context.Context, s *session, proj *project.Project, out io.Writer) error {
			release := s.cfg.Release
			release.Signed = release.Signed || signed
			return updateDependencies(ctx, s.verifier(), proj, release, out)
		})
	cmd.Flags().BoolVar(&signed, "signed", false, "require valid signatures on every downloaded package")
	return cmd
}

func newAddCommand(app *App) *cobra.Command {
	var signed bool
	cmd := &cobra.Command{
		Use:   "add <dependency> [projectname]",
		Short: "Add and install a dependency to the project",
		Long: `Add and install a dependency to the project.

The dependency is downloaded, checked against the digests published by the
package index and installed; it is recorded in pyp.json only once installed.`,
		Example: `  spvm add requests
  spvm add "requests>=2.31" --signed`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := args[0]
			err := app.withProject(cmd, args[1:], func(ctx context.Context, s *session, proj *project.Project, out io.Writer) error {
				return addDependency(ctx, s.verifier(), proj, spec, s.cfg.Release.Signed || signed, out)
			})
			if err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&signed, "signed", false, "require a valid signature on every downloaded package")
	return cmd
}

func newTestCommand(app *App) *cobra.Command {
	return newProjectCommand(app, "test", "Run the tests on the current project",
		func(ctx context.Context, s *session, proj *project.Project, out io.Writer) error {
			outcome, err := s.toolchain(proj, out).Test(ctx)
			if err != nil {
				return err
			}
			if outcome == quality.TestsPassed {
				fmt.Fprintln(out, SuccessStyle.Render("✓")+" Tests passed")
			}
			return nil
		})
}

func newRepairCommand(app *App) *cobra.Command {
	return newProjectCommand(app, "repair", "Force pep8 compliance on project",
		func(ctx context.Context, s *session, proj *project.Project, out io.Writer) error {
			if err := s.toolchain(proj, out).Repair(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, SuccessStyle.Render("✓")+" Code repaired")
			return nil
		})
}

func newBuildCommand(app *App) *cobra.Command {
	return newProjectCommand(app, "build", "Build the sdist and wheel into build/dist",
		func(ctx context.Context, s *session, proj *project.Project, out io.Writer) error {
			if err := proj.ClearBuild(); err != nil {
				return err
			}
			files, err := s.toolchain(proj, out).Build(ctx, proj.DistDir())
			if err != nil {
				return err
			}
			for _, f := range files {
				if rel, err := filepath.Rel(proj.Root(), f); err == nil {
					f = rel
				}
				fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(f))
			}
			return nil
		})
}

func newInstallCommand(app *App) *cobra.Command {
	return newProjectCommand(app, "install", "Install the setup.py template",
		func(_ context.Context, _ *session, proj *project.Project, out io.Writer) error {
			written, err := proj.InstallSetup(true)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintln(out, SuccessStyle.Render("✓")+" setup.py installed")
			} else {
				fmt.Fprintln(out, SubtitleStyle.Render("setup.py is up to date"))
			}
			return nil
		})
}

// dependencyInstaller is the verify.Verifier surface the dependency commands use.
type dependencyInstaller interface {
	InstallVerified(ctx context.Context, specifiers []string, requireSignatures bool) (*verify.Report, error)
}

func updateDependencies(ctx context.Context, inst dependencyInstaller, proj *project.Project, release config.Release, out io.Writer) error {
	packages := proj.Meta().Requirements.PythonPackages
	if len(packages) == 0 {
		fmt.Fprintln(out, SubtitleStyle.Render("No dependency to update"))
		return nil
	}
	report, err := inst.InstallVerified(ctx, packages, release.Signed)
	if err != nil {
		return err
	}
	printInstallReport(out, report)
	return nil
}

func addDependency(ctx context.Context, inst dependencyInstaller, proj *project.Project, spec string, signed bool, out io.Writer) error {
	report, err := inst.InstallVerified(ctx, []string{spec}, signed)
	if err != nil {
		return err
	}
	printInstallReport(out, report)
	if err := proj.AddDependency(spec); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Added %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(spec))
	return nil
}

func printInstallReport(w io.Writer, r *verify.Report) {
	fmt.Fprintf(w, "%s %d installed, %d verified\n", SuccessStyle.Render("✓"), len(r.Installed), len(r.Verified))
	if r.Unchecked > 0 {
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("%d package file(s) could not be fully verified", r.Unchecked)))
	}
}
