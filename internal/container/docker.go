// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DockerEngine implements the Engine interface using Docker CLI.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine creates a new Docker engine.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	path, _ := exec.LookPath("docker")
	return &DockerEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypeDocker), path, opts...),
	}
}

// Name returns the engine name.
func (e *DockerEngine) Name() string {
	return string(EngineTypeDocker)
}

// Available checks that the Docker client is installed and the daemon answers.
func (e *DockerEngine) Available(ctx context.Context) bool {
	if e.BinaryPath() == "" {
		return false
	}
	return e.CreateCommand(ctx, "version", "--format", "{{.Server.Version}}").Run() == nil
}

// Version returns the Docker server version.
func (e *DockerEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get docker version: %w", err)
	}
	return strings.TrimSpace(out), nil
}
