package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/crucible/metrics"
)

// StatsModel is a Bubble Tea model for a pool metrics snapshot.
type StatsModel struct {
	snap     *metrics.Snapshot
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(data any) StatsModel {
	snap, _ := data.(*metrics.Snapshot)
	return StatsModel{snap: snap}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	content := "Invalid data type for stats"
	if m.snap != nil {
		content = m.renderSnapshot()
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderSnapshot() string {
	s := m.snap
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Pool %s (%d × %s)", s.PoolID, s.PoolSize, s.Transport)))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Dispatched", s.RequestsDispatched, info),
		renderStatBox("Resolved", s.ResponsesResolved, good),
		renderStatBox("Error Resp", s.ErrorResponses, caution),
		renderStatBox("Abandoned", s.AbandonedWaits, bad),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Invalid", s.InvalidDropped, bad),
		renderStatBox("Unmatched", s.UnmatchedDropped, bad),
		renderStatBox("Faults", s.TransportFaults, bad),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Starts", s.WorkerStartSuccess, good),
		renderStatBox("Start Fails", s.WorkerStartFailure, bad),
		renderStatBox("Lode Writes", s.LodeWriteSuccess, good),
		renderStatBox("Lode Fails", s.LodeWriteFailure, bad),
	))

	if len(s.DispatchedByWorker) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("Dispatch by Worker"))
		b.WriteString("\n")
		for _, w := range slices.Sorted(maps.Keys(s.DispatchedByWorker)) {
			fmt.Fprintf(&b, "%s %s\n",
				LabelStyle.Render(fmt.Sprintf("worker %d:", w)),
				ValueStyle.Render(fmt.Sprintf("%d", s.DispatchedByWorker[w])))
		}
	}
	if s.StorageBackend != "" {
		fmt.Fprintf(&b, "\n%s %s", LabelStyle.Render("Storage:"), ValueStyle.Render(s.StorageBackend))
	}

	return b.String()
}

func renderStatBox(label string, value int64, color lipgloss.TerminalColor) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(data any) error {
	p := tea.NewProgram(NewStatsModel(data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(data any) string {
	model := NewStatsModel(data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
