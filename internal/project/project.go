// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/version"
)

// Project status values, as reported by `spvm status`.
const (
	StatusDoesNotExist Status = iota
	StatusNotInitialized
	StatusInitialized
)

const (
	buildDir = "build"
	testDir  = "test"
)

type (
	// Status is the spvm state of a project directory.
	Status int

	// Project is an initialized project directory and its loaded metadata.
	Project struct {
		root   string
		meta   *Meta
		logger *log.Logger
	}

	// Option configures Open and Init.
	Option func(*Project)
)

func (s Status) String() string {
	switch s {
	case StatusDoesNotExist:
		return "does_not_exist"
	case StatusNotInitialized:
		return "not_initialized"
	case StatusInitialized:
		return "initialized"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(p *Project) { p.logger = l }
}

// StatusOf inspects root without loading anything.
func StatusOf(root string) Status {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return StatusDoesNotExist
	}
	if _, err := os.Stat(filepath.Join(root, MetaFileName)); err != nil {
		return StatusNotInitialized
	}
	return StatusInitialized
}

// Open loads the project at root. Fields missing from pyp.json are filled
// with defaults and the document is rewritten when that changed it.
func Open(root string, opts ...Option) (*Project, error) {
	p := newProject(root, opts)

	meta, changed, err := LoadMeta(p.MetaPath())
	if err != nil {
		return nil, err
	}
	p.meta = meta

	if changed {
		p.logger.Warn("normalized project metadata", "file", MetaFileName)
		if err := p.Save(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Init lays out a new project at root and writes meta as its pyp.json.
// Existing directories and files other than pyp.json are left untouched.
func Init(root string, meta *Meta, opts ...Option) (*Project, error) {
	if meta == nil || meta.Info.Name == "" {
		return nil, errors.New("project name is required")
	}
	if _, err := version.Parse(meta.VCS.Version); err != nil {
		return nil, err
	}

	p := newProject(root, opts)
	p.meta = meta
	normalize(p.meta)

	for _, dir := range []string{testDir, meta.PackageDir()} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	initPath := p.InitFilePath()
	if _, err := os.Stat(initPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(initPath, nil, 0o644); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", initPath, err)
		}
	}

	if err := p.Save(); err != nil {
		return nil, err
	}
	p.logger.Info("project initialized", "name", meta.Info.Name, "root", root)
	return p, nil
}

func newProject(root string, opts []Option) *Project {
	p := &Project{root: filepath.Clean(root)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	return p
}

// Root returns the project directory.
func (p *Project) Root() string { return p.root }

// Meta returns the loaded metadata. Changes are persisted by Save.
func (p *Project) Meta() *Meta { return p.meta }

// Name returns the project name.
func (p *Project) Name() string { return p.meta.Info.Name }

// MetaPath returns the path of pyp.json.
func (p *Project) MetaPath() string { return filepath.Join(p.root, MetaFileName) }

// FS exposes the project directory read-only.
func (p *Project) FS() fs.FS { return os.DirFS(p.root) }

// Save writes the metadata back to pyp.json.
func (p *Project) Save() error {
	if err := SaveMeta(p.MetaPath(), p.meta); err != nil {
		return err
	}
	p.logger.Debug("saved project metadata", "file", p.MetaPath())
	return nil
}

// Version parses the stored project version.
func (p *Project) Version() (version.Version, error) {
	return version.Parse(p.meta.VCS.Version)
}

// SetVersion records v and persists it immediately.
func (p *Project) SetVersion(v version.Version) error {
	previous := p.meta.VCS.Version
	p.meta.VCS.Version = v.String()
	if err := p.Save(); err != nil {
		p.meta.VCS.Version = previous
		return err
	}
	return nil
}

// AddDependency records spec in the requirements and persists it.
// Adding a spec already listed is a no-op.
func (p *Project) AddDependency(spec string) error {
	if slices.Contains(p.meta.Requirements.PythonPackages, spec) {
		p.logger.Info("dependency already listed", "spec", spec)
		return nil
	}
	p.meta.Requirements.PythonPackages = append(p.meta.Requirements.PythonPackages, spec)
	if err := p.Save(); err != nil {
		p.meta.Requirements.PythonPackages = p.meta.Requirements.PythonPackages[:len(p.meta.Requirements.PythonPackages)-1]
		return err
	}
	return nil
}

// ClearBuild removes build artifacts: build/ and the egg-info directory.
func (p *Project) ClearBuild() error {
	for _, dir := range []string{buildDir, p.meta.EggInfoDir()} {
		if err := os.RemoveAll(filepath.Join(p.root, dir)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	return nil
}

// DistDir is where built distributions are written.
func (p *Project) DistDir() string { return filepath.Join(p.root, buildDir, "dist") }

// Size sums the size of every regular file under the project root.
func (p *Project) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(p.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
