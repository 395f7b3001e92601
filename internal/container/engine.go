// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	EngineTypeDocker EngineType = "docker"
	EngineTypePodman EngineType = "podman"
	// EngineTypeAuto picks Docker, then Podman.
	EngineTypeAuto EngineType = "auto"
)

// ErrEngineNotAvailable is the sentinel wrapped by EngineNotAvailableError.
var ErrEngineNotAvailable = errors.New("container engine not available")

type (
	// EngineType identifies the container engine type.
	EngineType string

	// Engine is the subset of a container engine a release needs.
	Engine interface {
		// Name returns the engine name (docker or podman).
		Name() string
		// Available checks that the client is installed and the engine answers.
		Available(ctx context.Context) bool
		// Version returns the engine version.
		Version(ctx context.Context) (string, error)
		// Build builds an image from a Dockerfile.
		Build(ctx context.Context, opts BuildOptions) error
		// Push uploads a built image to its registry.
		Push(ctx context.Context, opts PushOptions) error
	}

	// BuildOptions contains options for building an image.
	BuildOptions struct {
		// ContextDir is the build context directory.
		ContextDir string
		// Dockerfile is the Dockerfile path, relative to ContextDir unless absolute.
		Dockerfile string
		// Tag is the image reference, usually the project's docker_repository.
		Tag string
		// BuildArgs are build-time variables.
		BuildArgs map[string]string
		// Labels are image labels (version, source).
		Labels map[string]string
		// Stdout and Stderr receive the build output.
		Stdout io.Writer
		Stderr io.Writer
	}

	// PushOptions contains options for pushing an image.
	PushOptions struct {
		Tag    string
		Stdout io.Writer
		Stderr io.Writer
	}

	// EngineNotAvailableError is returned when no usable engine was found.
	EngineNotAvailableError struct {
		Engine EngineType
		Reason string
	}
)

func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// NewEngine returns the preferred engine, falling back to the other one when
// the preferred engine is not available.
func NewEngine(ctx context.Context, preferred EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	var order []Engine
	switch preferred {
	case EngineTypeDocker, EngineTypeAuto, "":
		order = []Engine{NewDockerEngine(opts...), NewPodmanEngine(opts...)}
	case EngineTypePodman:
		order = []Engine{NewPodmanEngine(opts...), NewDockerEngine(opts...)}
	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferred)
	}

	for _, engine := range order {
		if engine.Available(ctx) {
			return engine, nil
		}
	}

	if preferred == "" {
		preferred = EngineTypeAuto
	}
	return nil, &EngineNotAvailableError{
		Engine: preferred,
		Reason: "neither docker nor podman is installed and answering",
	}
}
