package tui

import (
	"fmt"
	"slices"
)

// View names accepted by Run.
const (
	ViewReport = "report"
	ViewStats  = "stats"
)

// Run starts the TUI for view.
// Returns an error if the view doesn't support TUI.
func Run(view string, data any) error {
	switch view {
	case ViewReport:
		return RunReportTUI(data)
	case ViewStats:
		return RunStatsTUI(data)
	default:
		return fmt.Errorf("TUI mode is not supported for %s", view)
	}
}

// IsTUISupported returns true if the view supports TUI mode.
// Only reports show and stats have interactive views.
func IsTUISupported(view string) bool {
	return slices.Contains(SupportedTUIViews(), view)
}

// SupportedTUIViews returns the views that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewReport, ViewStats}
}
