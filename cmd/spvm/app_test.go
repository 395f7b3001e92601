// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/WIN32GG/spvm/internal/config"
	"github.com/WIN32GG/spvm/internal/pypi"
	"github.com/WIN32GG/spvm/internal/runner/runnertest"
)

type (
	fakeIndex struct {
		latest string
	}

	fakePrompter struct {
		answer bool
		err    error
		asked  []string
	}

	// testApp is an App wired to fakes plus the buffers it writes to.
	testApp struct {
		*App
		runner *runnertest.Fake
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	}
)

func (f *fakeIndex) Release(_ context.Context, name, version string) (*pypi.Release, error) {
	return nil, errors.New("no release for " + name + " " + version)
}

func (f *fakeIndex) FetchSignature(context.Context, pypi.File) ([]byte, error) {
	return nil, errors.New("no signature")
}

func (f *fakeIndex) LatestVersion(context.Context, string) (string, error) {
	return f.latest, nil
}

func (p *fakePrompter) Confirm(_ context.Context, title string, _ bool) (bool, error) {
	p.asked = append(p.asked, title)
	return p.answer, p.err
}

func newTestApp(t *testing.T, prompter *fakePrompter, edit func(*config.Config)) *testApp {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.UpdateCheck.Enabled = false
	if edit != nil {
		edit(cfg)
	}

	ta := &testApp{
		runner: &runnertest.Fake{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	deps := Dependencies{
		Config: config.StaticProvider{Config: cfg},
		Runner: ta.runner,
		Index:  &fakeIndex{latest: "0.0.1"},
		Stdout: ta.stdout,
		Stderr: ta.stderr,
	}
	if prompter != nil {
		deps.Prompter = prompter
	}
	ta.App = NewApp(deps)
	return ta
}

// execute runs the command tree with args the way Execute does, minus fang.
func (ta *testApp) execute(t *testing.T, args ...string) error {
	t.Helper()

	root := newRootCommand(ta.App)
	root.SetArgs(args)
	root.SetOut(ta.stdout)
	root.SetErr(ta.stderr)
	return root.ExecuteContext(t.Context())
}

func TestProjectRoot(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil, nil)
	dir := t.TempDir()

	got, err := ta.projectRoot([]string{dir})
	if err != nil || got != dir {
		t.Fatalf("projectRoot(arg) = %q, %v; want %q", got, err, dir)
	}

	ta.flags.projectDir = dir
	if got, _ := ta.projectRoot(nil); got != dir {
		t.Errorf("projectRoot(--project) = %q, want %q", got, dir)
	}
}

func TestSession_LoadedOnce(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil, func(c *config.Config) { c.UI.Verbose = true })

	first, err := ta.session(t.Context())
	if err != nil {
		t.Fatalf("session() error = %v", err)
	}
	second, _ := ta.session(t.Context())
	if first != second {
		t.Error("session() built a second session")
	}
	if !first.verbose {
		t.Error("ui.verbose from config was not applied")
	}
}

func TestSession_ConfigError(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, nil, nil)
	ta.Config = failingProvider{}

	err := ta.execute(t, "status", t.TempDir())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(ta.stderr.String(), "broken config") {
		t.Errorf("stderr = %q, want the config error", ta.stderr.String())
	}
}

type failingProvider struct{}

func (failingProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	return nil, errors.New("broken config")
}
