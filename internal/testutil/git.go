// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// InitRepo creates a git repository at dir with an "origin" remote pointing
// at remoteURL (skipped when empty) and one commit containing every file
// already present.
func InitRepo(t testing.TB, dir, remoteURL string) *git.Repository {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repository: %v", err)
	}
	if remoteURL != "" {
		if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{remoteURL}}); err != nil {
			t.Fatalf("failed to create remote: %v", err)
		}
	}

	keep := filepath.Join(dir, ".keep")
	if _, err := os.Stat(keep); os.IsNotExist(err) {
		MustWriteFile(t, keep, "")
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to open worktree: %v", err)
	}
	if err := wt.AddGlob("."); err != nil {
		t.Fatalf("failed to stage files: %v", err)
	}
	_, err = wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Unix(1_700_000_000, 0)},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return repo
}
