// SPDX-License-Identifier: MPL-2.0

package project

import (
	"strings"
)

// MetaFileName is the project metadata document at the project root.
const MetaFileName = "pyp.json"

type (
	// Meta is the decoded pyp.json document.
	Meta struct {
		Info         Info         `json:"project_info"`
		Authors      []Author     `json:"project_authors"`
		VCS          VCS          `json:"project_vcs"`
		Requirements Requirements `json:"project_requirements"`
	}

	// Info describes the project itself.
	Info struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		License     string `json:"license"`
		URL         string `json:"url"`
	}

	// Author is one entry of project_authors.
	Author struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		URL   string `json:"url"`
	}

	// VCS holds the version and every publish destination.
	VCS struct {
		Version                 string   `json:"version"`
		CodeRepository          string   `json:"code_repository"`
		PypiRepository          string   `json:"pypi_repository"`
		DockerRepository        string   `json:"docker_repository"`
		IgnoredConformanceCodes []string `json:"ignored_conformance_codes"`
		Release                 Release  `json:"release"`

		// LegacyIgnoredErrors is read from older documents and folded into
		// IgnoredConformanceCodes on load. Never written back.
		LegacyIgnoredErrors any `json:"ignored_errors,omitempty"`
	}

	// Release holds the templates and keys used when publishing.
	Release struct {
		CommitTemplate    string `json:"commit_template"`
		TagTemplate       string `json:"tag_template"`
		GitSigningKey     string `json:"git_signing_key"`
		PackageSigningKey string `json:"package_signing_key"`
	}

	// Requirements lists the runtime requirements of the project.
	Requirements struct {
		PythonVersion  string   `json:"python_version"`
		PythonPackages []string `json:"python_packages"`
	}
)

// DefaultMeta returns the metadata template with every field at its default.
func DefaultMeta() Meta {
	return Meta{
		Authors: []Author{{}},
		VCS: VCS{
			Version:                 "0.0.1",
			IgnoredConformanceCodes: []string{},
			Release: Release{
				CommitTemplate: "Release %s",
				TagTemplate:    "%s",
			},
		},
		Requirements: Requirements{
			PythonVersion:  ">=3.6",
			PythonPackages: []string{},
		},
	}
}

// PrimaryAuthor returns the first listed author, or the zero Author.
func (m *Meta) PrimaryAuthor() Author {
	if len(m.Authors) == 0 {
		return Author{}
	}
	return m.Authors[0]
}

// PackageDir is the directory holding the importable package (lowercased name).
func (m *Meta) PackageDir() string {
	return strings.ToLower(m.Info.Name)
}

// EggInfoDir is the setuptools egg-info directory generated for the project.
func (m *Meta) EggInfoDir() string {
	return strings.ReplaceAll(m.Info.Name, "-", "_") + ".egg-info"
}

// CommitMessage renders the commit template for version.
func (r Release) CommitMessage(version string) string {
	return strings.TrimSpace(strings.ReplaceAll(r.CommitTemplate, "%s", version))
}

// TagName renders the tag template for version.
func (r Release) TagName(version string) string {
	return strings.TrimSpace(strings.ReplaceAll(r.TagTemplate, "%s", version))
}
