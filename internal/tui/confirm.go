// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const keyCtrlC = "ctrl+c"

type (
	// ConfirmOptions configures the Confirm component.
	ConfirmOptions struct {
		// Title is the question to display.
		Title string
		// Description provides additional context below the title.
		Description string
		// Affirmative is the text for the affirmative option (default: "Yes").
		Affirmative string
		// Negative is the text for the negative option (default: "No").
		Negative string
		// Default is the preselected answer.
		Default bool
		Config  Config
	}

	confirmModel struct {
		opts      ConfirmOptions
		selection bool
		done      bool
		cancelled bool
		width     int
	}

	// Prompter asks yes/no questions with a fixed Config.
	Prompter struct {
		Config Config
	}
)

func newConfirmModel(opts ConfirmOptions) *confirmModel {
	if opts.Affirmative == "" {
		opts.Affirmative = "Yes"
	}
	if opts.Negative == "" {
		opts.Negative = "No"
	}
	return &confirmModel{opts: opts, selection: opts.Default}
}

// Init implements tea.Model.
func (m *confirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case keyCtrlC, "esc":
			m.done = true
			m.cancelled = true
			return m, tea.Quit
		case "y", "Y":
			m.selection = true
			m.done = true
			return m, tea.Quit
		case "n", "N":
			m.selection = false
			m.done = true
			return m, tea.Quit
		case "left", "h":
			m.selection = true
		case "right", "l":
			m.selection = false
		case "up", "down", "tab", "shift+tab":
			m.selection = !m.selection
		case "enter", " ":
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

// View implements tea.Model.
func (m *confirmModel) View() string {
	if m.done {
		return ""
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#7C3AED")).Bold(true).Padding(0, 1)
	inactiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Padding(0, 1)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	yesView := inactiveStyle.Render(m.opts.Affirmative)
	noView := inactiveStyle.Render(m.opts.Negative)
	if m.selection {
		yesView = activeStyle.Render(m.opts.Affirmative)
	} else {
		noView = activeStyle.Render(m.opts.Negative)
	}

	lines := make([]string, 0, 4)
	if m.opts.Title != "" {
		lines = append(lines, titleStyle.Render(m.opts.Title))
	}
	if m.opts.Description != "" {
		lines = append(lines, descStyle.Render(m.opts.Description))
	}
	lines = append(lines,
		yesView+"  "+noView,
		helpStyle.Render("enter submit • y yes • n no • esc cancel"),
	)

	view := strings.Join(lines, "\n")
	if m.width > 0 {
		view = lipgloss.NewStyle().MaxWidth(m.width).Render(view)
	}
	return view + "\n"
}

// Result returns the answer, or ErrCancelled.
func (m *confirmModel) Result() (bool, error) {
	if m.cancelled {
		return false, ErrCancelled
	}
	return m.selection, nil
}

// Confirm prompts the user to confirm an action.
// Returns the answer, or ErrCancelled when the user aborted.
func Confirm(ctx context.Context, opts ConfirmOptions) (bool, error) {
	if opts.Config.Input == nil || opts.Config.Output == nil {
		def := DefaultConfig()
		if opts.Config.Input == nil {
			opts.Config.Input = def.Input
		}
		if opts.Config.Output == nil {
			opts.Config.Output = def.Output
		}
	}
	if opts.Config.Accessible {
		return confirmLine(opts)
	}

	model := newConfirmModel(opts)
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(opts.Config.Input),
		tea.WithOutput(opts.Config.Output),
	)
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	return final.(*confirmModel).Result()
}

// confirmLine asks on a single line: "Title [Y/n] ". An empty answer picks
// the default; end of input cancels.
func confirmLine(opts ConfirmOptions) (bool, error) {
	hint := "[y/N]"
	if opts.Default {
		hint = "[Y/n]"
	}

	reader := bufio.NewReader(opts.Config.Input)
	for {
		if opts.Description != "" {
			fmt.Fprintln(opts.Config.Output, opts.Description)
		}
		fmt.Fprintf(opts.Config.Output, "%s %s ", opts.Title, hint)

		line, err := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch {
		case answer == "" && err != nil:
			fmt.Fprintln(opts.Config.Output)
			return false, ErrCancelled
		case answer == "":
			return opts.Default, nil
		case answer == "y" || answer == "yes":
			return true, nil
		case answer == "n" || answer == "no":
			return false, nil
		}
		if err != nil {
			return false, ErrCancelled
		}
		fmt.Fprintln(opts.Config.Output, "Please answer yes or no.")
	}
}

// Confirm asks title with default answer def.
func (p Prompter) Confirm(ctx context.Context, title string, def bool) (bool, error) {
	return Confirm(ctx, ConfirmOptions{Title: title, Default: def, Config: p.Config})
}
