// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/WIN32GG/spvm/internal/config"
	"github.com/WIN32GG/spvm/internal/project"
)

const (
	TargetGit    Target = "git"
	TargetPyPI   Target = "pypi"
	TargetDocker Target = "docker"

	dockerfileName = "Dockerfile"
)

// ErrUnknownTarget is returned by ParseTargets for an unrecognized target name.
var ErrUnknownTarget = errors.New("unknown publish target")

type (
	// Target names one publication destination.
	Target string

	// Targets says, for each destination, whether it takes part in a release.
	Targets struct {
		Git    bool `json:"git" yaml:"git"`
		PyPI   bool `json:"pypi" yaml:"pypi"`
		Docker bool `json:"docker" yaml:"docker"`
	}
)

// AllTargets lists the destinations in publication order.
func AllTargets() []Target {
	return []Target{TargetGit, TargetPyPI, TargetDocker}
}

// Resolve computes which destinations a project can be published to.
// It reads root but never writes to it.
//
// Git is skipped in mock mode; PyPI needs a pypi_repository; Docker needs a
// docker_repository and a Dockerfile at the project root.
func Resolve(cfg config.Release, vcs project.VCS, root fs.FS) Targets {
	return Targets{
		Git:    !cfg.Mock,
		PyPI:   vcs.PypiRepository != "",
		Docker: vcs.DockerRepository != "" && hasFile(root, dockerfileName),
	}
}

// Intersect keeps only the destinations both t and requested enable.
func (t Targets) Intersect(requested Targets) Targets {
	return Targets{
		Git:    t.Git && requested.Git,
		PyPI:   t.PyPI && requested.PyPI,
		Docker: t.Docker && requested.Docker,
	}
}

// Has reports whether target is enabled.
func (t Targets) Has(target Target) bool {
	switch target {
	case TargetGit:
		return t.Git
	case TargetPyPI:
		return t.PyPI
	case TargetDocker:
		return t.Docker
	default:
		return false
	}
}

// Any reports whether at least one destination is enabled.
func (t Targets) Any() bool {
	return t.Git || t.PyPI || t.Docker
}

// String lists the enabled destinations, e.g. "git,pypi".
func (t Targets) String() string {
	var names []string
	for _, target := range AllTargets() {
		if t.Has(target) {
			names = append(names, string(target))
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// ParseTargets parses target names given on the command line. No names
// means every destination.
func ParseTargets(names []string) (Targets, error) {
	if len(names) == 0 {
		return Targets{Git: true, PyPI: true, Docker: true}, nil
	}

	var t Targets
	for _, name := range names {
		switch Target(strings.ToLower(strings.TrimSpace(name))) {
		case TargetGit:
			t.Git = true
		case TargetPyPI:
			t.PyPI = true
		case TargetDocker:
			t.Docker = true
		default:
			return Targets{}, fmt.Errorf("%w: %q (expected git, pypi or docker)", ErrUnknownTarget, name)
		}
	}
	return t, nil
}

func hasFile(root fs.FS, name string) bool {
	if root == nil {
		return false
	}
	info, err := fs.Stat(root, name)
	return err == nil && info.Mode().IsRegular()
}
