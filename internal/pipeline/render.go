// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/WIN32GG/spvm/internal/publish"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	yesStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	noStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mockStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// previewSteps returns one informational line per publish destination.
func (o *Orchestrator) previewSteps() []Step {
	targets := publish.Targets{}
	if o.deps.Publisher != nil {
		targets = o.deps.Publisher.Targets()
	}

	lines := []struct {
		label  string
		target publish.Target
	}{
		{"Git Publish", publish.TargetGit},
		{"PyPi Publish", publish.TargetPyPI},
		{"Docker Publish", publish.TargetDocker},
	}

	steps := make([]Step, 0, len(lines))
	for _, l := range lines {
		steps = append(steps, Step{
			Name:          fmt.Sprintf("%s: %s", l.label, o.answer(targets.Has(l.target))),
			Informational: true,
		})
	}
	return steps
}

func (o *Orchestrator) answer(yes bool) string {
	if !yes {
		return "NO"
	}
	if o.release.Mock {
		return "YES (MOCK)"
	}
	return "YES"
}

func (o *Orchestrator) render(p Pipeline) {
	fmt.Fprintln(o.out, headerStyle.Render("Release pipeline is:"))
	for _, s := range p.Steps {
		if s.Informational {
			fmt.Fprintln(o.out, "     - "+colorAnswer(s.Name))
			continue
		}
		fmt.Fprintln(o.out, stepStyle.Render(" -> "+s.Name))
	}
}

// colorAnswer styles the YES/NO suffix of a preview line.
func colorAnswer(line string) string {
	for _, suffix := range []struct {
		text  string
		style lipgloss.Style
	}{
		{": YES (MOCK)", mockStyle},
		{": YES", yesStyle},
		{": NO", noStyle},
	} {
		if n := len(line) - len(suffix.text); n >= 0 && line[n:] == suffix.text {
			return previewStyle.Render(line[:n+2]) + suffix.style.Render(line[n+2:])
		}
	}
	return previewStyle.Render(line)
}
