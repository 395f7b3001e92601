// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
)

func fixedUser(name string) func() (string, error) {
	return func() (string, error) { return name, nil }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetect_EmptyDirectory(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "mytool")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}

	det, err := (&Detector{CurrentUser: fixedUser("ada")}).Detect(root)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if det.Meta.Info.Name != "mytool" {
		t.Errorf("Name = %q, want directory name", det.Meta.Info.Name)
	}
	if det.Meta.VCS.Version != "0.0.1" {
		t.Errorf("Version = %q, want default", det.Meta.VCS.Version)
	}
	if det.Meta.Authors[0].Name != "ada" {
		t.Errorf("Author = %q, want OS user", det.Meta.Authors[0].Name)
	}
	if len(det.Sources) != 0 {
		t.Errorf("Sources = %v, want none", det.Sources)
	}
}

func TestDetect_Pyproject(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, pyprojectFile), `
[project]
name = "widget"
version = "2.1.0"
description = "Widgets"
requires-python = ">=3.10"
dependencies = ["requests>=2", "click"]
authors = [{ name = "Grace", email = "grace@example.com" }]

[project.urls]
Homepage = "https://widget.example.com"
Repository = "https://git.example.com/widget"
`)

	det, err := (&Detector{CurrentUser: fixedUser("ada")}).Detect(root)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	m := det.Meta
	if m.Info.Name != "widget" || m.VCS.Version != "2.1.0" || m.Info.Description != "Widgets" {
		t.Errorf("Info = %+v, version %q", m.Info, m.VCS.Version)
	}
	if m.Info.URL != "https://widget.example.com" || m.VCS.CodeRepository != "https://git.example.com/widget" {
		t.Errorf("urls = %q, %q", m.Info.URL, m.VCS.CodeRepository)
	}
	if m.Requirements.PythonVersion != ">=3.10" || !slices.Equal(m.Requirements.PythonPackages, []string{"requests>=2", "click"}) {
		t.Errorf("Requirements = %+v", m.Requirements)
	}
	if m.Authors[0] != (Author{Name: "Grace", Email: "grace@example.com"}) {
		t.Errorf("Author = %+v", m.Authors[0])
	}
	if !slices.Contains(det.Sources, pyprojectFile) {
		t.Errorf("Sources = %v", det.Sources)
	}
}

func TestDetect_Poetry(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, pyprojectFile), `
[tool.poetry]
name = "poem"
version = "0.3.0"
authors = ["Linus <linus@example.com>"]

[tool.poetry.dependencies]
python = "^3.11"
rich = "^13"
`)

	det, err := NewDetector().Detect(root)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	m := det.Meta
	if m.Info.Name != "poem" || m.VCS.Version != "0.3.0" {
		t.Errorf("name/version = %q/%q", m.Info.Name, m.VCS.Version)
	}
	if m.Requirements.PythonVersion != "^3.11" || !slices.Equal(m.Requirements.PythonPackages, []string{"rich"}) {
		t.Errorf("Requirements = %+v", m.Requirements)
	}
	if m.Authors[0] != (Author{Name: "Linus", Email: "linus@example.com"}) {
		t.Errorf("Author = %+v", m.Authors[0])
	}
}

func TestDetect_BrokenPyproject(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, pyprojectFile), "[project\nname=")

	if _, err := NewDetector().Detect(root); !errors.Is(err, ErrMetaParse) {
		t.Fatalf("Detect() error = %v, want ErrMetaParse", err)
	}
}

func TestDetect_VersionFileAndGit(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "Gadget")
	writeFile(t, filepath.Join(root, "gadget", "__version__.py"), "__version__ = '4.5.6'\n")

	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://git.example.com/gadget.git"},
	}); err != nil {
		t.Fatal(err)
	}

	det, err := (&Detector{CurrentUser: fixedUser("ada")}).Detect(root)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if det.Meta.VCS.Version != "4.5.6" {
		t.Errorf("Version = %q, want 4.5.6", det.Meta.VCS.Version)
	}
	if det.Meta.VCS.CodeRepository != "https://git.example.com/gadget.git" {
		t.Errorf("CodeRepository = %q", det.Meta.VCS.CodeRepository)
	}
	if !slices.Contains(det.Sources, "git") {
		t.Errorf("Sources = %v", det.Sources)
	}
}

func TestDetect_ExistingMetaWins(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, MetaFileName), `{"project_info": {"name": "kept"}, "project_vcs": {"version": "9.9.9"}}`)
	writeFile(t, filepath.Join(root, pyprojectFile), "[project]\nname = \"ignored\"\n")

	det, err := NewDetector().Detect(root)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if det.Meta.Info.Name != "kept" || det.Meta.VCS.Version != "9.9.9" {
		t.Errorf("Meta = %+v", det.Meta)
	}
	if !slices.Equal(det.Sources, []string{MetaFileName}) {
		t.Errorf("Sources = %v", det.Sources)
	}
}

func TestSplitAuthor(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, name, email string }{
		{"Ada <ada@example.com>", "Ada", "ada@example.com"},
		{"Ada", "Ada", ""},
		{"Ada > <", "Ada > <", ""},
	}
	for _, tt := range tests {
		name, email := splitAuthor(tt.in)
		if name != tt.name || email != tt.email {
			t.Errorf("splitAuthor(%q) = %q, %q", tt.in, name, email)
		}
	}
}
