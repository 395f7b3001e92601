// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Palette shared by every styled line the CLI prints. Tuned for dark terminals.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED") // purple: titles
	ColorMuted     = lipgloss.Color("#6B7280") // gray: subtitles, placeholders
	ColorSuccess   = lipgloss.Color("#10B981") // green: passed steps, section heads
	ColorError     = lipgloss.Color("#EF4444") // red: failures, findings
	ColorWarning   = lipgloss.Color("#F59E0B") // amber: warnings, update notices
	ColorHighlight = lipgloss.Color("#3B82F6") // blue: commands, labels
	ColorVerbose   = lipgloss.Color("#9CA3AF") // light gray: values, debug detail
)

var (
	// TitleStyle renders headers.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	// SubtitleStyle renders secondary text and "(none)" placeholders.
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	// SuccessStyle renders check marks and completed actions.
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	// ErrorStyle renders the "Error:" prefix and fatal conditions.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	// WarningStyle renders warnings and the freshness notice.
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	// CmdStyle renders command lines, dependency specs and target names.
	CmdStyle = lipgloss.NewStyle().Foreground(ColorHighlight)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess)
	keyStyle     = lipgloss.NewStyle().Foreground(ColorHighlight)
	valueStyle   = lipgloss.NewStyle().Foreground(ColorVerbose)
	problemStyle = lipgloss.NewStyle().Foreground(ColorError)
)
