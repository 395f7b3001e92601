// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/WIN32GG/spvm/internal/config"
	"github.com/WIN32GG/spvm/internal/issue"
	"github.com/WIN32GG/spvm/internal/project"
	"github.com/WIN32GG/spvm/internal/publish"
	"github.com/WIN32GG/spvm/internal/version"
)

// releaseFlags are the command-line overrides of config.Release. Only flags
// set explicitly replace the configured value.
type releaseFlags struct {
	mock    bool
	signed  bool
	repair  bool
	noCheck bool
	update  bool
	noTest  bool
	yes     bool
}

func (f *releaseFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.mock, "mock", false, "do not publish for real: skip git, upload to the test index, build images without pushing")
	cmd.Flags().BoolVar(&f.signed, "signed", false, "require valid signatures on every downloaded dependency")
	cmd.Flags().BoolVar(&f.repair, "repair", false, "run autopep8 before the conformance check")
	cmd.Flags().BoolVar(&f.noCheck, "no-check", false, "report conformance problems without failing")
	cmd.Flags().BoolVar(&f.update, "update", false, "update the dependencies first")
	cmd.Flags().BoolVar(&f.noTest, "no-test", false, "skip the test suite")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "do not ask for confirmation")
}

// apply overlays the flags that were set on cmd onto r.
func (f *releaseFlags) apply(cmd *cobra.Command, r config.Release) config.Release {
	changed := cmd.Flags().Changed
	if changed("mock") {
		r.Mock = f.mock
	}
	if changed("signed") {
		r.Signed = f.signed
	}
	if changed("repair") {
		r.Repair = f.repair
	}
	if changed("no-check") {
		r.Check = !f.noCheck
	}
	if changed("update") {
		r.Update = f.update
	}
	if changed("no-test") {
		r.Test = !f.noTest
	}
	if changed("yes") {
		r.Ask = !f.yes
	}
	return r
}

// newBumpCommands returns the patch, minor and major shortcuts of release.
func newBumpCommands(app *App) []*cobra.Command {
	shortcuts := []struct {
		kind  version.Kind
		short string
	}{
		{version.KindPatch, "Start pipeline for patch release (e.g 0.0.1 -> 0.0.2)"},
		{version.KindMinor, "Start pipeline for minor release (e.g 0.0.73 -> 0.1.0)"},
		{version.KindMajor, "Start pipeline for major release (e.g 0.4.8 -> 1.0.0)"},
	}

	cmds := make([]*cobra.Command, 0, len(shortcuts))
	for _, sc := range shortcuts {
		var flags releaseFlags
		cmd := &cobra.Command{
			Use:   string(sc.kind) + " [projectname]",
			Short: sc.short,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runRelease(cmd, args, &flags, version.Symbolic(sc.kind))
			},
		}
		flags.register(cmd)
		cmds = append(cmds, cmd)
	}
	return cmds
}

func newReleaseCommand(app *App) *cobra.Command {
	var flags releaseFlags
	cmd := &cobra.Command{
		Use:   "release <kind> [projectname]",
		Short: "Test, build and publish to git, PyPI and Docker",
		Long: `Test, build and publish to git, PyPI and Docker.

The release kind can be:
  - pass: no version increase
  - major, minor, patch
  - <number>: increase the version component at that index by 1`,
		Example: `  spvm release patch
  spvm release pass --mock
  spvm release 3 --no-test --yes`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			directive, err := version.ParseDirective(args[0])
			if err != nil {
				return app.fail(cmd, issue.NewErrorContext().
					WithOperation("parse release kind").
					WithResource(args[0]).
					WithSuggestion("Use pass, major, minor, patch or a component index").
					WithIssue(issue.InvalidBumpDirectiveId).
					Wrap(err).
					BuildError())
			}
			return app.runRelease(cmd, args[1:], &flags, directive)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *App) runRelease(cmd *cobra.Command, args []string, flags *releaseFlags, directive version.Directive) error {
	err := a.withProject(cmd, args, func(ctx context.Context, s *session, proj *project.Project, out io.Writer) error {
		release := flags.apply(cmd, s.cfg.Release)
		s.logger.Debug("release configuration", "directive", directive.String(), "mock", release.Mock,
			"check", release.Check, "test", release.Test, "ask", release.Ask)

		orch := s.orchestrator(proj, release, out)
		return orch.Run(ctx, orch.Build(), directive)
	})
	if err != nil {
		return a.fail(cmd, err)
	}
	return nil
}

func newPublishCommand(app *App) *cobra.Command {
	var mock bool
	cmd := &cobra.Command{
		Use:   "publish [git|pypi|docker]...",
		Short: "Publish the current version without running the pipeline",
		Long: `Publish the current version without running the pipeline.

With no target, every destination configured in pyp.json is used. Targets
that are not configured are skipped.`,
		Example: `  spvm publish
  spvm publish pypi docker --mock`,
		ValidArgs: []string{string(publish.TargetGit), string(publish.TargetPyPI), string(publish.TargetDocker)},
		RunE: func(cmd *cobra.Command, args []string) error {
			requested, err := publish.ParseTargets(args)
			if err != nil {
				return app.fail(cmd, err)
			}
			err = app.withProject(cmd, nil, func(ctx context.Context, s *session, proj *project.Project, out io.Writer) error {
				release := s.cfg.Release
				if cmd.Flags().Changed("mock") {
					release.Mock = mock
				}
				return runPublish(ctx, s.publisher(proj, release, out), requested, out)
			})
			if err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&mock, "mock", false, "do not publish for real")
	return cmd
}

// targetPublisher is the publish.Publisher surface runPublish drives.
type targetPublisher interface {
	Targets() publish.Targets
	Publish(ctx context.Context, requested publish.Targets) error
}

var errNothingToPublish = errors.New("no requested target is configured for this project")

func runPublish(ctx context.Context, p targetPublisher, requested publish.Targets, out io.Writer) error {
	targets := p.Targets().Intersect(requested)
	if !targets.Any() {
		return fmt.Errorf("%w (requested: %s, configured: %s)", errNothingToPublish, requested, p.Targets())
	}
	fmt.Fprintf(out, "%s %s\n", SubtitleStyle.Render("Publishing to"), CmdStyle.Render(targets.String()))
	if err := p.Publish(ctx, targets); err != nil {
		return err
	}
	fmt.Fprintln(out, SuccessStyle.Render("✓")+" Published")
	return nil
}
