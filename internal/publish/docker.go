// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/container"
	"github.com/WIN32GG/spvm/internal/retry"
)

const (
	defaultEngineAttempts = 3
	defaultEngineBackoff  = 2 * time.Second
)

type (
	// DockerPublisher builds the project image and pushes it to its repository.
	DockerPublisher struct {
		engine     container.Engine
		contextDir string
		repository string
		mock       bool
		attempts   int
		backoff    time.Duration
		out        io.Writer
		logger     *log.Logger
	}

	// DockerOption configures a DockerPublisher.
	DockerOption func(*DockerPublisher)
)

// WithRetries sets how many times a transient engine failure is attempted.
func WithRetries(attempts int, backoff time.Duration) DockerOption {
	return func(d *DockerPublisher) {
		d.attempts = attempts
		d.backoff = backoff
	}
}

// WithEngineOutput streams the engine output to w.
func WithEngineOutput(w io.Writer) DockerOption {
	return func(d *DockerPublisher) { d.out = w }
}

// NewDockerPublisher returns a publisher building contextDir/Dockerfile into
// repository. In mock mode the image is built but not pushed.
func NewDockerPublisher(engine container.Engine, contextDir, repository string, mock bool, logger *log.Logger, opts ...DockerOption) *DockerPublisher {
	d := &DockerPublisher{
		engine:     engine,
		contextDir: contextDir,
		repository: repository,
		mock:       mock,
		attempts:   defaultEngineAttempts,
		backoff:    defaultEngineBackoff,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard)
	}
	return d
}

// Publish builds the image labelled with version and, unless mocking, pushes it.
func (d *DockerPublisher) Publish(ctx context.Context, version string) error {
	if v, err := d.engine.Version(ctx); err == nil {
		d.logger.Debug("container engine", "name", d.engine.Name(), "version", v)
	}

	d.logger.Info("building image", "repository", d.repository)
	build := container.BuildOptions{
		ContextDir: d.contextDir,
		Dockerfile: dockerfileName,
		Tag:        d.repository,
		Labels:     map[string]string{"org.opencontainers.image.version": version},
		Stdout:     d.out,
		Stderr:     d.out,
	}
	if err := d.withRetry(ctx, "build", func() error { return d.engine.Build(ctx, build) }); err != nil {
		return err
	}

	if d.mock {
		d.logger.Warn("mock mode: not pushing image", "repository", d.repository)
		return nil
	}

	d.logger.Info("pushing image", "repository", d.repository)
	push := container.PushOptions{Tag: d.repository, Stdout: d.out, Stderr: d.out}
	return d.withRetry(ctx, "push", func() error { return d.engine.Push(ctx, push) })
}

func (d *DockerPublisher) withRetry(ctx context.Context, op string, fn func() error) error {
	return retry.WithBackoff(ctx, d.attempts, d.backoff, func(attempt int) (bool, error) {
		err := fn()
		if err != nil && container.IsTransientError(err) && attempt+1 < d.attempts {
			d.logger.Warn("transient container engine failure, retrying", "op", op, "attempt", attempt+1, "err", err)
			return true, err
		}
		return false, err
	})
}
