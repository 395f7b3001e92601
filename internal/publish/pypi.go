// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/runner"
)

// ErrSigning is wrapped by package signing failures.
var ErrSigning = errors.New("could not sign the package")

type (
	// Workspace is the part of a project the PyPI publisher touches.
	Workspace interface {
		Root() string
		DistDir() string
		ClearBuild() error
	}

	// Builder produces the distribution files of a project.
	Builder interface {
		Build(ctx context.Context, distDir string) ([]string, error)
	}

	// SigningError reports a failed detached signature.
	SigningError struct {
		File string
		Key  string
		Err  error
	}

	// PyPIPublisher builds, signs and uploads the distributions.
	PyPIPublisher struct {
		runner     runner.Runner
		workspace  Workspace
		builder    Builder
		uploadURL  string
		signingKey string
		logger     *log.Logger
	}
)

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign %s with key %s: %v", e.File, e.Key, e.Err)
}

func (e *SigningError) Unwrap() []error { return []error{ErrSigning, e.Err} }

// NewPyPIPublisher returns a publisher uploading to uploadURL. An empty
// signingKey uploads unsigned distributions.
func NewPyPIPublisher(r runner.Runner, ws Workspace, b Builder, uploadURL, signingKey string, logger *log.Logger) *PyPIPublisher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PyPIPublisher{
		runner:     r,
		workspace:  ws,
		builder:    b,
		uploadURL:  uploadURL,
		signingKey: signingKey,
		logger:     logger,
	}
}

// Publish clears the build area, builds, signs each file and uploads them
// with twine. The build area is cleared again after a successful upload.
// A signing failure stops the release before anything is uploaded.
func (p *PyPIPublisher) Publish(ctx context.Context) error {
	if err := p.workspace.ClearBuild(); err != nil {
		return err
	}

	files, err := p.builder.Build(ctx, p.workspace.DistDir())
	if err != nil {
		return err
	}

	signatures, err := p.sign(ctx, files)
	if err != nil {
		return err
	}

	p.logger.Info("uploading", "repository", p.uploadURL, "files", len(files))
	args := append([]string{"upload", "--repository-url", p.uploadURL}, files...)
	args = append(args, signatures...)
	if _, err := p.runner.Run(ctx, runner.Invocation{Name: "twine", Args: args, Dir: p.workspace.Root()}); err != nil {
		return fmt.Errorf("upload to %s: %w", p.uploadURL, err)
	}

	return p.workspace.ClearBuild()
}

func (p *PyPIPublisher) sign(ctx context.Context, files []string) ([]string, error) {
	if p.signingKey == "" {
		p.logger.Warn("no key provided for package signing")
		return nil, nil
	}

	p.logger.Info("signing the package", "key", p.signingKey)
	signatures := make([]string, 0, len(files))
	for _, f := range files {
		asc := f + ".asc"
		_, err := p.runner.Run(ctx, runner.Invocation{
			Name: "gpg",
			Args: []string{"-u", p.signingKey, "-b", "--yes", "-a", "-o", asc, f},
			Dir:  p.workspace.Root(),
		})
		if err != nil {
			return nil, &SigningError{File: f, Key: p.signingKey, Err: err}
		}
		signatures = append(signatures, asc)
	}
	p.logger.Info("package signed", "key", p.signingKey)
	return signatures, nil
}
