// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/WIN32GG/spvm/internal/version"
)

const pyprojectFile = "pyproject.toml"

var versionAssignRe = regexp.MustCompile(`(?m)^__version__\s*=\s*['"]([^'"]+)['"]`)

type (
	// Detector guesses project metadata from an existing directory.
	Detector struct {
		// CurrentUser returns the login name used as a fallback author.
		CurrentUser func() (string, error)
	}

	// Detection is the guessed metadata and where each part came from.
	Detection struct {
		Meta    Meta
		Sources []string
	}
)

// NewDetector returns a Detector backed by the OS user database.
func NewDetector() *Detector {
	return &Detector{CurrentUser: currentUsername}
}

// Detect builds metadata for root. An existing pyp.json wins outright;
// otherwise pyproject.toml, the git repository, <name>/__version__.py and
// the OS user are consulted in that order, each only filling blanks.
func (d *Detector) Detect(root string) (*Detection, error) {
	det := &Detection{Meta: DefaultMeta()}
	det.Meta.VCS.Version = ""

	if meta, _, err := LoadMeta(filepath.Join(root, MetaFileName)); err == nil {
		det.Meta = *meta
		det.Sources = append(det.Sources, MetaFileName)
		return det, nil
	} else if !errors.Is(err, ErrNotInitialized) {
		return nil, err
	}

	if doc, err := readPyproject(root); err == nil {
		applyPyproject(&det.Meta, doc)
		det.Sources = append(det.Sources, pyprojectFile)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if applyGit(&det.Meta, root) {
		det.Sources = append(det.Sources, "git")
	}

	meta := &det.Meta
	if meta.Info.Name == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		meta.Info.Name = filepath.Base(abs)
	}

	if meta.VCS.Version == "" {
		if v := versionFromFile(root, meta.PackageDir()); v != "" {
			meta.VCS.Version = v
			det.Sources = append(det.Sources, filepath.Join(meta.PackageDir(), "__version__.py"))
		} else {
			meta.VCS.Version = DefaultMeta().VCS.Version
		}
	}
	if _, err := version.Parse(meta.VCS.Version); err != nil {
		meta.VCS.Version = DefaultMeta().VCS.Version
	}

	author := &meta.Authors[0]
	if author.Name == "" && d.CurrentUser != nil {
		if name, err := d.CurrentUser(); err == nil {
			author.Name = name
		}
	}

	return det, nil
}

func readPyproject(root string) (Lookup, error) {
	data, err := os.ReadFile(filepath.Join(root, pyprojectFile))
	if err != nil {
		return Lookup{}, err
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Lookup{}, &MetaParseError{Path: pyprojectFile, Err: err}
	}
	return NewLookup(doc), nil
}

// applyPyproject reads PEP 621 [project] first and falls back to [tool.poetry].
func applyPyproject(meta *Meta, doc Lookup) {
	pep := doc.Sub("project")
	poetry := doc.Sub("tool", "poetry")

	meta.Info.Name = firstNonEmpty(pep.String("name"), poetry.String("name"))
	meta.Info.Description = firstNonEmpty(pep.String("description"), poetry.String("description"))
	meta.Info.License = firstNonEmpty(pep.String("license"), pep.String("license", "text"), poetry.String("license"))
	meta.Info.URL = firstNonEmpty(pep.String("urls", "Homepage"), poetry.String("homepage"))
	meta.VCS.Version = firstNonEmpty(pep.String("version"), poetry.String("version"))
	meta.VCS.CodeRepository = firstNonEmpty(pep.String("urls", "Repository"), poetry.String("repository"))

	if py := firstNonEmpty(pep.String("requires-python"), poetry.String("dependencies", "python")); py != "" {
		meta.Requirements.PythonVersion = py
	}

	deps := pep.Strings("dependencies")
	if len(deps) == 0 {
		deps = slices.DeleteFunc(poetry.Strings("dependencies"), func(s string) bool { return s == "python" })
	}
	if len(deps) > 0 {
		meta.Requirements.PythonPackages = deps
	}

	if pep.Len("authors") > 0 {
		first := pep.Index(0, "authors")
		meta.Authors[0].Name = first.String("name")
		meta.Authors[0].Email = first.String("email")
	} else if authors := poetry.Strings("authors"); len(authors) > 0 {
		meta.Authors[0].Name, meta.Authors[0].Email = splitAuthor(authors[0])
	}
}

// applyGit fills the code repository from the first remote and the author
// email from the repository's user config. Reports whether a repo was found.
func applyGit(meta *Meta, root string) bool {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return false
	}

	if meta.VCS.CodeRepository == "" {
		if remotes, err := repo.Remotes(); err == nil && len(remotes) > 0 {
			names := make([]string, 0, len(remotes))
			for _, r := range remotes {
				names = append(names, r.Config().Name)
			}
			slices.Sort(names)
			preferred := names[0]
			if slices.Contains(names, git.DefaultRemoteName) {
				preferred = git.DefaultRemoteName
			}
			if r, err := repo.Remote(preferred); err == nil && len(r.Config().URLs) > 0 {
				meta.VCS.CodeRepository = r.Config().URLs[0]
			}
		}
	}

	if meta.Authors[0].Email == "" {
		if cfg, err := repo.ConfigScoped(gitconfig.GlobalScope); err == nil && cfg.User.Email != "" {
			meta.Authors[0].Email = cfg.User.Email
		}
	}
	return true
}

// versionFromFile reads __version__ from <root>/<pkg>/__version__.py.
func versionFromFile(root, pkg string) string {
	data, err := os.ReadFile(filepath.Join(root, pkg, "__version__.py"))
	if err != nil {
		return ""
	}
	m := versionAssignRe.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// splitAuthor splits "Name <email>" as poetry writes authors.
func splitAuthor(s string) (name, email string) {
	open := strings.IndexByte(s, '<')
	closing := strings.LastIndexByte(s, '>')
	if open < 0 || closing < open {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:open]), strings.TrimSpace(s[open+1 : closing])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func currentUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}
