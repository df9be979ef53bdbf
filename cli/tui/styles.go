// Package tui provides Bubble Tea views for stored benchmark reports.
//
// TUI is opt-in (--tui) and only offered by read-only commands. Views take
// the same payloads the plain renderer prints; nothing is TUI-only.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Each color has a light and a dark terminal variant.
var (
	accent    = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}
	good      = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	caution   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	bad       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	subtle    = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	info      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	plainText = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
)

var (
	fg      = lipgloss.NewStyle().Foreground(plainText)
	rounded = lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	HelpStyle  = lipgloss.NewStyle().Foreground(subtle).MarginTop(1)

	// LabelStyle pads labels to a fixed column so values line up.
	LabelStyle = lipgloss.NewStyle().Foreground(subtle).Width(16)
	ValueStyle = fg

	SuccessStyle = lipgloss.NewStyle().Foreground(good)
	WarningStyle = lipgloss.NewStyle().Foreground(caution)
	ErrorStyle   = lipgloss.NewStyle().Foreground(bad)

	BoxStyle = rounded.BorderForeground(subtle).Padding(1, 2)

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(info).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(subtle)
	SelectedStyle = fg.Bold(true).Background(accent)

	StatBoxStyle   = rounded.BorderForeground(info).Padding(0, 2).Width(20).Align(lipgloss.Center)
	StatLabelStyle = lipgloss.NewStyle().Foreground(subtle).Align(lipgloss.Center)
	StatValueStyle = fg.Bold(true).Align(lipgloss.Center)
)

// Status strings shown in views.
const (
	StatusOK      = "ok"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

var statusStyles = map[string]lipgloss.Style{
	StatusOK:      SuccessStyle,
	StatusSuccess: SuccessStyle,
	StatusPartial: WarningStyle,
	StatusFailed:  ErrorStyle,
}

// StatusStyle returns the style for a case or report status. Unknown
// statuses render plain.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return ValueStyle
}
