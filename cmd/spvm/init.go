// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WIN32GG/spvm/internal/pipeline"
	"github.com/WIN32GG/spvm/internal/project"
	"github.com/WIN32GG/spvm/internal/tui"
	"github.com/WIN32GG/spvm/internal/version"
)

// initParams bundles the inputs of `spvm init` so runInit can be tested
// without a Cobra command.
type initParams struct {
	root     string
	yes      bool
	overlay  project.Meta
	detector *project.Detector
	out      io.Writer
}

func newInitCommand(app *App) *cobra.Command {
	var (
		yes     bool
		overlay project.Meta
		author  project.Author
	)

	cmd := &cobra.Command{
		Use:   "init [projectname]",
		Short: "Initialize an spvm project",
		Long: `Initialize an spvm project.

spvm creates the test/ and <name>/ directories and writes pyp.json. The
metadata is guessed from pyproject.toml, the git repository, an existing
<name>/__version__.py and the current user; flags override the guesses.
Pass a projectname to initialize a sub-directory.`,
		Example: `  spvm init
  spvm init mylib --version 0.1.0 --author "Ada Lovelace" --email ada@example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := app.projectRoot(args)
			if err != nil {
				return app.fail(cmd, err)
			}
			overlay.Authors = []project.Author{author}

			p := initParams{
				root:     root,
				yes:      yes,
				overlay:  overlay,
				detector: project.NewDetector(),
				out:      cmd.OutOrStdout(),
			}
			if err := runInit(cmd.Context(), app, p); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "accept the detected metadata without asking")
	cmd.Flags().StringVar(&overlay.Info.Name, "name", "", "project name")
	cmd.Flags().StringVar(&overlay.Info.Description, "description", "", "project description")
	cmd.Flags().StringVar(&overlay.Info.License, "license", "", "project license")
	cmd.Flags().StringVar(&overlay.Info.URL, "url", "", "project homepage")
	cmd.Flags().StringVar(&overlay.VCS.Version, "version", "", "initial version")
	cmd.Flags().StringVar(&overlay.VCS.CodeRepository, "code-repository", "", "git remote to publish to")
	cmd.Flags().StringVar(&overlay.VCS.PypiRepository, "pypi-repository", "", "package index project name")
	cmd.Flags().StringVar(&overlay.VCS.DockerRepository, "docker-repository", "", "container image repository")
	cmd.Flags().StringVar(&author.Name, "author", "", "primary author name")
	cmd.Flags().StringVar(&author.Email, "email", "", "primary author email")

	return cmd
}

func runInit(ctx context.Context, app *App, p initParams) error {
	s, err := app.session(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", p.root, err)
	}
	if project.StatusOf(p.root) == project.StatusInitialized {
		s.logger.Warn("project already initialized, its metadata will be rewritten", "root", p.root)
	}

	det, err := p.detector.Detect(p.root)
	if err != nil {
		return err
	}
	meta := &det.Meta
	applyOverlay(meta, p.overlay)
	if _, err := version.Parse(meta.VCS.Version); err != nil {
		return err
	}

	if len(det.Sources) > 0 {
		s.logger.Debug("detected project metadata", "sources", strings.Join(det.Sources, ", "))
	}
	printMeta(p.out, meta)

	if !p.yes {
		ok, err := s.prompter.Confirm(ctx, "Is this correct?", true)
		if errors.Is(err, tui.ErrCancelled) || (err == nil && !ok) {
			return fmt.Errorf("%w: rerun spvm init with flags to correct the metadata", pipeline.ErrDeclined)
		}
		if err != nil {
			return err
		}
	}

	if _, err := project.Init(p.root, meta, project.WithLogger(s.logger)); err != nil {
		return err
	}
	fmt.Fprintln(p.out, SuccessStyle.Render("✓")+" Project initialized")
	return nil
}

// applyOverlay copies every non-empty field of overlay onto meta.
func applyOverlay(meta *project.Meta, overlay project.Meta) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&meta.Info.Name, overlay.Info.Name)
	set(&meta.Info.Description, overlay.Info.Description)
	set(&meta.Info.License, overlay.Info.License)
	set(&meta.Info.URL, overlay.Info.URL)
	set(&meta.VCS.Version, overlay.VCS.Version)
	set(&meta.VCS.CodeRepository, overlay.VCS.CodeRepository)
	set(&meta.VCS.PypiRepository, overlay.VCS.PypiRepository)
	set(&meta.VCS.DockerRepository, overlay.VCS.DockerRepository)

	if len(overlay.Authors) == 0 {
		return
	}
	if len(meta.Authors) == 0 {
		meta.Authors = []project.Author{{}}
	}
	set(&meta.Authors[0].Name, overlay.Authors[0].Name)
	set(&meta.Authors[0].Email, overlay.Authors[0].Email)
}

func printMeta(w io.Writer, meta *project.Meta) {
	author := meta.PrimaryAuthor()
	fmt.Fprintln(w, TitleStyle.Render("Project metadata"))
	printValue(w, "Name", meta.Info.Name)
	printValue(w, "Description", meta.Info.Description)
	printValue(w, "License", meta.Info.License)
	printValue(w, "URL", meta.Info.URL)
	printValue(w, "Version", meta.VCS.Version)
	printValue(w, "Author", author.Name)
	printValue(w, "Email", author.Email)
	printValue(w, "Git repository", meta.VCS.CodeRepository)
	printValue(w, "PyPI project", meta.VCS.PypiRepository)
	printValue(w, "Docker repository", meta.VCS.DockerRepository)
	fmt.Fprintln(w)
}

// printValue writes one "key: value" line, marking empty values.
func printValue(w io.Writer, key, value string) {
	if value == "" {
		value = SubtitleStyle.Render("(none)")
	} else {
		value = valueStyle.Render(value)
	}
	fmt.Fprintf(w, "%s %s\n", keyStyle.Render(key+":"), value)
}
