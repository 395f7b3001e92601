// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/project"
	"github.com/WIN32GG/spvm/internal/runner"
)

// GitPublisher commits the release, tags it and pushes both.
type GitPublisher struct {
	runner  runner.Runner
	dir     string
	release project.Release
	remote  string
	logger  *log.Logger
}

// NewGitPublisher returns a publisher working in the repository at dir.
// remote is only used for messages.
func NewGitPublisher(r runner.Runner, dir string, release project.Release, remote string, logger *log.Logger) *GitPublisher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &GitPublisher{runner: r, dir: dir, release: release, remote: remote, logger: logger}
}

// Publish records version in git:
//
//	git add .
//	git commit --no-edit [-S<key>] -m <commit message>
//	git tag [-u <key>] -m <tag> <tag>
//	git push --signed=if-asked
//	git push --tags --signed=if-asked
func (g *GitPublisher) Publish(ctx context.Context, version string) error {
	key := g.release.GitSigningKey
	message := g.release.CommitMessage(version)
	tag := g.release.TagName(version)

	if err := g.git(ctx, "add", "."); err != nil {
		return err
	}

	if key != "" {
		g.logger.Info("commit will be signed", "key", key)
	}
	commit := []string{"commit", "--no-edit"}
	if key != "" {
		commit = append(commit, "-S"+key)
	}
	if err := g.git(ctx, append(commit, "-m", message)...); err != nil {
		return err
	}
	g.logger.Debug("committed", "message", message)

	tagArgs := []string{"tag"}
	if key != "" {
		tagArgs = append(tagArgs, "-u", key)
	}
	if err := g.git(ctx, append(tagArgs, "-m", tag, tag)...); err != nil {
		return err
	}
	g.logger.Info("tagged", "tag", tag)

	g.logger.Info("pushing", "remote", g.remote)
	if err := g.git(ctx, "push", "--signed=if-asked"); err != nil {
		return err
	}
	g.logger.Info("pushing tags")
	return g.git(ctx, "push", "--tags", "--signed=if-asked")
}

func (g *GitPublisher) git(ctx context.Context, args ...string) error {
	_, err := g.runner.Run(ctx, runner.Invocation{Name: "git", Args: args, Dir: g.dir})
	if err != nil {
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}
