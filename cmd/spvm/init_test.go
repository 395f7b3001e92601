// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WIN32GG/spvm/internal/pipeline"
	"github.com/WIN32GG/spvm/internal/project"
	"github.com/WIN32GG/spvm/internal/tui"
)

func testDetector() *project.Detector {
	return &project.Detector{CurrentUser: func() (string, error) { return "ada", nil }}
}

func TestRunInit_Confirmed(t *testing.T) {
	t.Parallel()

	prompter := &fakePrompter{answer: true}
	ta := newTestApp(t, prompter, nil)
	root := filepath.Join(t.TempDir(), "MyLib")

	var out bytes.Buffer
	p := initParams{
		root:     root,
		overlay:  project.Meta{VCS: project.VCS{Version: "0.3.0"}, Authors: []project.Author{{Email: "ada@example.com"}}},
		detector: testDetector(),
		out:      &out,
	}
	if err := runInit(t.Context(), ta.App, p); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}

	if len(prompter.asked) != 1 {
		t.Errorf("prompter asked %d times, want 1", len(prompter.asked))
	}
	proj, err := project.Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	meta := proj.Meta()
	if meta.Info.Name != "MyLib" || meta.VCS.Version != "0.3.0" {
		t.Errorf("meta = %+v", meta.Info)
	}
	if a := meta.PrimaryAuthor(); a.Name != "ada" || a.Email != "ada@example.com" {
		t.Errorf("author = %+v", a)
	}
	if !strings.Contains(out.String(), "Project initialized") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunInit_Declined(t *testing.T) {
	t.Parallel()

	for name, prompter := range map[string]*fakePrompter{
		"answered no": {answer: false},
		"cancelled":   {err: tui.ErrCancelled},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ta := newTestApp(t, prompter, nil)
			root := t.TempDir()
			err := runInit(t.Context(), ta.App, initParams{root: root, detector: testDetector(), out: &bytes.Buffer{}})
			if !errors.Is(err, pipeline.ErrDeclined) {
				t.Fatalf("runInit() error = %v, want ErrDeclined", err)
			}
			if status := project.StatusOf(root); status != project.StatusNotInitialized {
				t.Errorf("status = %v, want not_initialized", status)
			}
		})
	}
}

func TestRunInit_YesSkipsPrompt(t *testing.T) {
	t.Parallel()

	prompter := &fakePrompter{}
	ta := newTestApp(t, prompter, nil)
	root := t.TempDir()

	err := runInit(t.Context(), ta.App, initParams{root: root, yes: true, detector: testDetector(), out: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	if len(prompter.asked) != 0 {
		t.Error("--yes still asked for confirmation")
	}
	if project.StatusOf(root) != project.StatusInitialized {
		t.Error("project was not initialized")
	}
}

func TestRunInit_InvalidVersion(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, &fakePrompter{answer: true}, nil)
	p := initParams{
		root:     t.TempDir(),
		yes:      true,
		overlay:  project.Meta{VCS: project.VCS{Version: "one.two"}},
		detector: testDetector(),
		out:      &bytes.Buffer{},
	}
	if err := runInit(t.Context(), ta.App, p); err == nil {
		t.Fatal("expected an invalid version error")
	}
}

func TestApplyOverlay(t *testing.T) {
	t.Parallel()

	meta := project.DefaultMeta()
	meta.Info.Name = "detected"
	meta.Authors = nil

	applyOverlay(&meta, project.Meta{
		Info:    project.Info{Description: "a library"},
		Authors: []project.Author{{Name: "Grace"}},
	})

	if meta.Info.Name != "detected" {
		t.Errorf("empty overlay field replaced the name: %q", meta.Info.Name)
	}
	if meta.Info.Description != "a library" {
		t.Errorf("Description = %q", meta.Info.Description)
	}
	if meta.PrimaryAuthor().Name != "Grace" {
		t.Errorf("author = %+v", meta.PrimaryAuthor())
	}
}
