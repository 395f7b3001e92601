// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoRepository is returned when the project is not a git work tree or has
// no commit yet.
var ErrNoRepository = errors.New("no git repository")

// RepoInfo is the versioning summary shown by `spvm status`.
type RepoInfo struct {
	Branch  string `json:"branch" yaml:"branch"`
	Head    string `json:"head" yaml:"head"`
	Commits int    `json:"commits" yaml:"commits"`
	LastTag string `json:"last_tag,omitempty" yaml:"last_tag,omitempty"`
	Remote  string `json:"remote,omitempty" yaml:"remote,omitempty"`
}

// ReadRepoInfo inspects the git repository at root.
func ReadRepoInfo(root string) (*RepoInfo, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNoRepository
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrNoRepository
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	info := &RepoInfo{Head: head.Hash().String()[:7]}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	} else {
		info.Branch = "(detached)"
	}

	commits, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	err = commits.ForEach(func(*object.Commit) error {
		info.Commits++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count commits: %w", err)
	}

	info.LastTag, err = lastTag(repo)
	if err != nil {
		return nil, err
	}

	if r, err := repo.Remote(git.DefaultRemoteName); err == nil && len(r.Config().URLs) > 0 {
		info.Remote = r.Config().URLs[0]
	}
	return info, nil
}

// lastTag returns the tag whose creation (or target commit) date is newest.
func lastTag(repo *git.Repository) (string, error) {
	tags, err := repo.Tags()
	if err != nil {
		return "", fmt.Errorf("failed to list tags: %w", err)
	}

	var (
		newest string
		when   time.Time
	)
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		t, ok := tagTime(repo, ref)
		if !ok {
			return nil
		}
		if newest == "" || t.After(when) {
			newest, when = ref.Name().Short(), t
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read tags: %w", err)
	}
	return newest, nil
}

func tagTime(repo *git.Repository, ref *plumbing.Reference) (time.Time, bool) {
	if tag, err := repo.TagObject(ref.Hash()); err == nil {
		return tag.Tagger.When, true
	}
	if c, err := repo.CommitObject(ref.Hash()); err == nil {
		return c.Committer.When, true
	}
	return time.Time{}, false
}
