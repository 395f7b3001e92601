// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/config"
	"github.com/WIN32GG/spvm/internal/container"
	"github.com/WIN32GG/spvm/internal/issue"
	"github.com/WIN32GG/spvm/internal/project"
	"github.com/WIN32GG/spvm/internal/quality"
	"github.com/WIN32GG/spvm/internal/runner"
)

type (
	// EngineFunc returns the container engine, resolved only when an image
	// is actually published.
	EngineFunc func(ctx context.Context) (container.Engine, error)

	// Publisher publishes a project release to every resolved destination.
	Publisher struct {
		project       *project.Project
		release       config.Release
		runner        runner.Runner
		builder       Builder
		engine        EngineFunc
		testUploadURL string
		out           io.Writer
		logger        *log.Logger
		dockerOpts    []DockerOption
	}

	// Option configures a Publisher.
	Option func(*Publisher)
)

// WithBuilder overrides the distribution builder.
func WithBuilder(b Builder) Option {
	return func(p *Publisher) { p.builder = b }
}

// WithEngine sets how the container engine is obtained.
func WithEngine(fn EngineFunc) Option {
	return func(p *Publisher) { p.engine = fn }
}

// WithTestUploadURL sets the upload repository used in mock mode.
func WithTestUploadURL(u string) Option {
	return func(p *Publisher) { p.testUploadURL = u }
}

// WithOutput streams tool output to w.
func WithOutput(w io.Writer) Option {
	return func(p *Publisher) { p.out = w }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithDockerOptions forwards options to the Docker publisher.
func WithDockerOptions(opts ...DockerOption) Option {
	return func(p *Publisher) { p.dockerOpts = append(p.dockerOpts, opts...) }
}

// New returns a Publisher for proj.
func New(proj *project.Project, release config.Release, r runner.Runner, opts ...Option) *Publisher {
	p := &Publisher{
		project:       proj,
		release:       release,
		runner:        r,
		testUploadURL: config.DefaultTestUploadURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	if p.builder == nil {
		p.builder = quality.New(r, proj.Root(), quality.WithOutput(p.out), quality.WithLogger(p.logger))
	}
	if p.engine == nil {
		p.engine = func(ctx context.Context) (container.Engine, error) {
			return container.NewEngine(ctx, container.EngineTypeAuto)
		}
	}
	return p
}

// Targets resolves the destinations the project can be published to.
func (p *Publisher) Targets() Targets {
	return Resolve(p.release, p.project.Meta().VCS, p.project.FS())
}

// Publish publishes to the destinations both resolved and requested, in the
// order git, PyPI, Docker. The first failure stops the remaining targets.
func (p *Publisher) Publish(ctx context.Context, requested Targets) error {
	targets := p.Targets().Intersect(requested)
	vcs := p.project.Meta().VCS
	p.logger.Debug("publishing", "targets", targets.String(), "mock", p.release.Mock)

	if !targets.Any() {
		p.logger.Warn("nothing to publish")
		return nil
	}

	if targets.Git {
		git := NewGitPublisher(p.runner, p.project.Root(), vcs.Release, vcs.CodeRepository, p.logger)
		if err := git.Publish(ctx, vcs.Version); err != nil {
			return publishError("git", vcs.CodeRepository, err)
		}
	}

	if targets.PyPI {
		url := vcs.PypiRepository
		if p.release.Mock {
			url = p.testUploadURL
		}
		pypi := NewPyPIPublisher(p.runner, p.project, p.builder, url, vcs.Release.PackageSigningKey, p.logger)
		if err := pypi.Publish(ctx); err != nil {
			return publishError("pypi", url, err)
		}
	}

	if targets.Docker {
		engine, err := p.engine(ctx)
		if err != nil {
			return issue.NewErrorContext().
				WithOperation("publish docker image").
				WithResource(vcs.DockerRepository).
				WithIssue(issue.ContainerEngineNotFoundId).
				WithSuggestion("Install Docker or Podman, or drop docker_repository from pyp.json").
				Wrap(err).
				BuildError()
		}
		opts := append([]DockerOption{WithEngineOutput(p.out)}, p.dockerOpts...)
		docker := NewDockerPublisher(engine, p.project.Root(), vcs.DockerRepository, p.release.Mock, p.logger, opts...)
		if err := docker.Publish(ctx, vcs.Version); err != nil {
			return publishError("docker", vcs.DockerRepository, err)
		}
	}
	return nil
}

func publishError(target, resource string, err error) error {
	return issue.NewErrorContext().
		WithOperation("publish to " + target).
		WithResource(resource).
		WithIssue(issue.PublishFailedId).
		WithSuggestion("Fix the problem, then resume with: spvm publish " + target).
		Wrap(err).
		BuildError()
}
