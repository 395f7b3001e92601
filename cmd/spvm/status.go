// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/WIN32GG/spvm/internal/project"
	"github.com/WIN32GG/spvm/internal/quality"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var errUnknownFormat = errors.New("unknown output format")

type (
	// statusReport is everything `spvm status` shows, in export form.
	statusReport struct {
		Name         string            `json:"name" yaml:"name"`
		Version      string            `json:"version" yaml:"version"`
		Size         int64             `json:"size" yaml:"size"`
		Status       string            `json:"status" yaml:"status"`
		Repository   *project.RepoInfo `json:"repository,omitempty" yaml:"repository,omitempty"`
		Code         *quality.Report   `json:"code,omitempty" yaml:"code,omitempty"`
		CodeError    string            `json:"code_error,omitempty" yaml:"code_error,omitempty"`
		Dependencies []string          `json:"dependencies" yaml:"dependencies"`
	}

	statusParams struct {
		root   string
		show   bool
		format string
		out    io.Writer
	}
)

func newStatusCommand(app *App) *cobra.Command {
	var (
		show   bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "status [projectname]",
		Short: "Print information about the project",
		Long: `Print information about the project: metadata, repository state,
conformance problem counts and dependencies.`,
		Example: `  spvm status
  spvm status -s
  spvm status --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := app.projectRoot(args)
			if err != nil {
				return app.fail(cmd, err)
			}
			p := statusParams{root: root, show: show, format: format, out: cmd.OutOrStdout()}
			if err := runStatus(cmd.Context(), app, p); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&show, "show", "s", false, "show the problems with the code")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text, json or yaml")

	return cmd
}

func runStatus(ctx context.Context, app *App, p statusParams) error {
	switch p.format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("%w %q (want text, json or yaml)", errUnknownFormat, p.format)
	}

	s, err := app.session(ctx)
	if err != nil {
		return err
	}
	proj, err := s.openProject(p.root)
	if err != nil {
		return err
	}

	report := &statusReport{
		Name:         proj.Name(),
		Version:      proj.Meta().VCS.Version,
		Status:       project.StatusOf(p.root).String(),
		Dependencies: proj.Meta().Requirements.PythonPackages,
	}
	if report.Size, err = proj.Size(); err != nil {
		s.logger.Warn("could not compute project size", "error", err)
	}

	if info, err := project.ReadRepoInfo(p.root); err == nil {
		report.Repository = info
	} else if !errors.Is(err, project.ErrNoRepository) {
		s.logger.Warn("could not read repository", "error", err)
	}

	code, err := s.toolchain(proj, io.Discard).Check(ctx, proj.Meta().VCS.IgnoredConformanceCodes)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.CodeError = err.Error()
	}
	report.Code = code

	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		printStatus(p.out, report, p.show)
		return nil
	}
}

func printStatus(w io.Writer, r *statusReport, show bool) {
	fmt.Fprintln(w, sectionStyle.Render("Project Info"))
	printValue(w, "Project Name", r.Name)
	printValue(w, "Project Version", r.Version)
	printValue(w, "Project Size", formatSize(r.Size))
	printValue(w, "Project SPVM Status", r.Status)
	fmt.Fprintln(w)

	fmt.Fprintln(w, sectionStyle.Render("Version Info"))
	if r.Repository == nil {
		fmt.Fprintln(w, ErrorStyle.Render("No git repo initialized, versioning info not available"))
	} else {
		lastTag := r.Repository.LastTag
		if lastTag == "" {
			lastTag = "None"
		}
		printValue(w, "Current Version", r.Version)
		printValue(w, "Current branch", r.Repository.Branch)
		printValue(w, "Current commit", r.Repository.Head)
		printValue(w, "Commit count", strconv.Itoa(r.Repository.Commits))
		printValue(w, "Last Tag", lastTag)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, sectionStyle.Render("Code Status"))
	switch {
	case r.Code == nil:
		fmt.Fprintln(w, WarningStyle.Render("Code checks unavailable: "+r.CodeError))
	default:
		fmt.Fprintf(w, "%s %s\n", keyStyle.Render("Errors & Warnings:"), countStyle(len(r.Code.Errors)))
		fmt.Fprintf(w, "%s %s\n", keyStyle.Render("Conformity Problems:"), countStyle(len(r.Code.Conformity)))
		if show {
			printProblems(w, "Errors & Warnings", r.Code.Errors)
			printProblems(w, "Conformity issues", r.Code.Conformity)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("Project Dependencies (%d)", len(r.Dependencies))))
	for _, dep := range r.Dependencies {
		fmt.Fprintln(w, dep)
	}
}

func printProblems(w io.Writer, title string, problems []string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, WarningStyle.Render(title))
	if len(problems) == 0 {
		fmt.Fprintln(w, SuccessStyle.Render(" Nothing to display"))
		return
	}
	for _, p := range problems {
		fmt.Fprintln(w, "> "+problemStyle.Render(p))
	}
}

func countStyle(n int) string {
	if n == 0 {
		return SuccessStyle.Render("0")
	}
	return problemStyle.Render(strconv.Itoa(n))
}

// formatSize renders n bytes with a binary unit prefix.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 5; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
