// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"testing"

	"github.com/WIN32GG/spvm/internal/project"
)

// NewProject initializes a project named "demo" at version 1.2.3 in a
// temporary directory. edit, when not nil, adjusts the metadata first.
func NewProject(t testing.TB, edit func(*project.Meta)) *project.Project {
	t.Helper()

	meta := project.DefaultMeta()
	meta.Info.Name = "demo"
	meta.VCS.Version = "1.2.3"
	if edit != nil {
		edit(&meta)
	}
	p, err := project.Init(t.TempDir(), &meta)
	if err != nil {
		t.Fatalf("failed to initialize project: %v", err)
	}
	return p
}
