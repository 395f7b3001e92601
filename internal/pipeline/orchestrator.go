// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/config"
	"github.com/WIN32GG/spvm/internal/issue"
	"github.com/WIN32GG/spvm/internal/project"
	"github.com/WIN32GG/spvm/internal/publish"
	"github.com/WIN32GG/spvm/internal/quality"
	"github.com/WIN32GG/spvm/internal/tui"
	"github.com/WIN32GG/spvm/internal/verify"
	"github.com/WIN32GG/spvm/internal/version"
)

type (
	// Quality runs the code checks, tests and repairs.
	Quality interface {
		Check(ctx context.Context, ignored []string) (*quality.Report, error)
		Test(ctx context.Context) (quality.TestOutcome, error)
		Repair(ctx context.Context) error
	}

	// Installer installs dependencies after verifying them.
	Installer interface {
		InstallVerified(ctx context.Context, specifiers []string, requireSignatures bool) (*verify.Report, error)
	}

	// Publisher publishes the release.
	Publisher interface {
		Targets() publish.Targets
		Publish(ctx context.Context, requested publish.Targets) error
	}

	// Confirmer asks the operator a yes/no question.
	Confirmer interface {
		Confirm(ctx context.Context, title string, def bool) (bool, error)
	}

	// Collaborators are the components the steps delegate to.
	Collaborators struct {
		Quality   Quality
		Installer Installer
		Publisher Publisher
		Confirmer Confirmer
	}

	// Orchestrator builds and runs release pipelines for one project.
	Orchestrator struct {
		project *project.Project
		release config.Release
		deps    Collaborators
		out     io.Writer
		logger  *log.Logger
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)
)

// WithOutput sets where the pipeline preview is written. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New returns an Orchestrator for proj, configured by release.
func New(proj *project.Project, release config.Release, deps Collaborators, opts ...Option) *Orchestrator {
	o := &Orchestrator{project: proj, release: release, deps: deps, out: io.Discard}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	return o
}

// Build assembles the pipeline for the current configuration:
//
//	clear-build → [update-dependencies] → [repair] → check-conformance →
//	[run-tests] → bump-version → populate-init → install-setup →
//	(publish preview) → publish
func (o *Orchestrator) Build() Pipeline {
	var steps []Step
	add := func(name string, action Action) {
		steps = append(steps, Step{Name: name, Action: action})
	}

	add(StepClearBuild, o.clearBuild)
	if o.release.Update {
		add(StepUpdateDependencies, o.updateDependencies)
	}
	if o.release.Repair {
		add(StepRepair, o.repair)
	}
	add(StepCheckConformance, o.checkConformance)
	if o.release.Test {
		add(StepRunTests, o.runTests)
	}
	add(StepBumpVersion, o.bumpVersion)
	add(StepPopulateInit, o.populateInit)
	add(StepInstallSetup, o.installSetup)

	steps = append(steps, o.previewSteps()...)
	add(StepPublish, o.publish)

	return Pipeline{Steps: steps}
}

// Run shows p, asks for confirmation when configured to, then executes the
// steps in order. The first failing step halts the run; completed steps are
// not rolled back.
func (o *Orchestrator) Run(ctx context.Context, p Pipeline, directive version.Directive) error {
	if status := project.StatusOf(o.project.Root()); status != project.StatusInitialized {
		return &project.NotInitializedError{Root: o.project.Root()}
	}

	o.render(p)
	if !o.release.Mock {
		o.logger.Warn("mock mode is not activated, this is for real!")
	}

	if o.release.Ask {
		if o.deps.Confirmer == nil {
			return errors.New("confirmation required but no prompt is available")
		}
		ok, err := o.deps.Confirmer.Confirm(ctx, "Run the release pipeline?", false)
		if errors.Is(err, tui.ErrCancelled) {
			return ErrDeclined
		}
		if err != nil {
			return err
		}
		if !ok {
			return ErrDeclined
		}
	}

	req := Request{Directive: directive}
	for _, step := range p.Steps {
		if step.Informational || step.Action == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		o.logger.Info("> " + step.Name)
		if err := step.Action(ctx, req); err != nil {
			return &StepError{Step: step.Name, Err: err}
		}
	}
	o.logger.Info("release pipeline completed", "version", o.project.Meta().VCS.Version)
	return nil
}

func (o *Orchestrator) clearBuild(context.Context, Request) error {
	return o.project.ClearBuild()
}

func (o *Orchestrator) updateDependencies(ctx context.Context, _ Request) error {
	pkgs := o.project.Meta().Requirements.PythonPackages
	if len(pkgs) == 0 {
		o.logger.Info("no dependency to update")
		return nil
	}
	report, err := o.deps.Installer.InstallVerified(ctx, pkgs, o.release.Signed)
	if err != nil {
		return err
	}
	o.logger.Info("dependencies updated", "installed", len(report.Installed), "unchecked", report.Unchecked)
	return nil
}

func (o *Orchestrator) repair(ctx context.Context, _ Request) error {
	return o.deps.Quality.Repair(ctx)
}

// checkConformance fails only when the configuration makes conformance
// problems fatal; otherwise they are reported and the release goes on.
func (o *Orchestrator) checkConformance(ctx context.Context, _ Request) error {
	report, err := o.deps.Quality.Check(ctx, o.project.Meta().VCS.IgnoredConformanceCodes)
	if err != nil {
		return err
	}

	cerr := report.Err()
	if cerr == nil {
		o.logger.Info("code is conform")
		return nil
	}

	if !o.release.Check {
		o.logger.Warn("project is not conform or has errors, run spvm status -s",
			"errors", len(report.Errors), "conformity", len(report.Conformity))
		return nil
	}
	return issue.NewErrorContext().
		WithOperation("check code conformance").
		WithResource(o.project.Root()).
		WithIssue(issue.ConformanceFailedId).
		WithSuggestion("Run 'spvm status -s' to list the problems").
		WithSuggestion("Run 'spvm repair' to fix style problems automatically").
		WithSuggestion("Pass --no-check to make conformance problems non-fatal").
		Wrap(cerr).
		BuildError()
}

func (o *Orchestrator) runTests(ctx context.Context, _ Request) error {
	outcome, err := o.deps.Quality.Test(ctx)
	if err != nil {
		return err
	}
	if outcome == quality.TestsPassed {
		o.logger.Info("tests passed")
	}
	return nil
}

func (o *Orchestrator) bumpVersion(_ context.Context, req Request) error {
	current, err := o.project.Version()
	if err != nil {
		return err
	}
	next, changed, err := version.Bump(current, req.Directive)
	if err != nil {
		return err
	}
	if !changed {
		o.logger.Info("version unchanged", "version", current.String())
		return nil
	}
	if err := o.project.SetVersion(next); err != nil {
		return err
	}
	o.logger.Info(fmt.Sprintf("%s -> %s", current, next))
	return nil
}

func (o *Orchestrator) populateInit(context.Context, Request) error {
	return o.project.PopulateInit()
}

func (o *Orchestrator) installSetup(context.Context, Request) error {
	_, err := o.project.InstallSetup(false)
	return err
}

func (o *Orchestrator) publish(ctx context.Context, _ Request) error {
	all, _ := publish.ParseTargets(nil)
	return o.deps.Publisher.Publish(ctx, all)
}
