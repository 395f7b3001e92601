// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// PodmanEngine implements the Engine interface using Podman CLI.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine creates a new Podman engine.
// Some distributions only ship the podman-remote client.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	path, err := exec.LookPath("podman")
	if err != nil {
		path, _ = exec.LookPath("podman-remote")
	}
	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypePodman), path, opts...),
	}
}

// Name returns the engine name.
func (e *PodmanEngine) Name() string {
	return string(EngineTypePodman)
}

// Available checks that Podman is installed and its service answers.
func (e *PodmanEngine) Available(ctx context.Context) bool {
	if e.BinaryPath() == "" {
		return false
	}
	return e.CreateCommand(ctx, "version", "--format", "{{.Version}}").Run() == nil
}

// Version returns the Podman version.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get podman version: %w", err)
	}
	return strings.TrimSpace(out), nil
}
