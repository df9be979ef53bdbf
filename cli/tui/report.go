package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/crucible/bench"
)

const timeLayout = "2006-01-02 15:04:05"

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ReportModel is a Bubble Tea model for one stored report.
// Cases are listed in a scrollable table; the selected case's error, if
// any, is shown under it.
type ReportModel struct {
	report   *bench.Report
	cases    table.Model
	width    int
	height   int
	quitting bool
}

// NewReportModel creates a report model. A nil or mistyped report renders
// an error line instead of a table.
func NewReportModel(data any) ReportModel {
	r, _ := data.(*bench.Report)
	m := ReportModel{report: r}
	if r == nil {
		return m
	}

	styles := table.DefaultStyles()
	styles.Header = HeaderStyle
	styles.Selected = SelectedStyle

	m.cases = table.New(
		table.WithColumns(caseColumns()),
		table.WithRows(caseRows(r.Cases)),
		table.WithFocused(true),
		table.WithHeight(min(len(r.Cases)+3, 18)),
		table.WithStyles(styles),
	)
	return m
}

func caseColumns() []table.Column {
	return []table.Column{
		{Title: "Case", Width: 34},
		{Title: "Runs", Width: 5},
		{Title: "Mean ms", Width: 10},
		{Title: "Min ms", Width: 10},
		{Title: "Max ms", Width: 10},
		{Title: "Algorithm", Width: 9},
		{Title: "Status", Width: 7},
	}
}

func caseRows(cases []bench.CaseResult) []table.Row {
	rows := make([]table.Row, 0, len(cases))
	for _, c := range cases {
		rows = append(rows, table.Row{
			c.Name,
			strconv.Itoa(c.Runs),
			formatMs(c.MeanMs),
			formatMs(c.MinMs),
			formatMs(c.MaxMs),
			string(c.AlgorithmUsed),
			caseStatus(c),
		})
	}
	return rows
}

func caseStatus(c bench.CaseResult) string {
	if c.Error != "" {
		return StatusFailed
	}
	return StatusOK
}

func reportStatus(r *bench.Report) string {
	if r.Failed() {
		return StatusPartial
	}
	return StatusSuccess
}

func formatMs(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 3, 64)
}

// Init implements tea.Model.
func (m ReportModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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

	if m.report == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.cases, cmd = m.cases.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ReportModel) View() string {
	if m.quitting {
		return ""
	}
	if m.report == nil {
		return "Invalid data type for report\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.cases.View())
	b.WriteString("\n")
	if detail := m.renderSelected(); detail != "" {
		b.WriteString(detail)
		b.WriteString("\n")
	}
	b.WriteString(HelpStyle.Render("↑/↓ select case • q quit"))
	return b.String()
}

func (m ReportModel) renderHeader() string {
	r := m.report
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Benchmark Report"))
	b.WriteString("\n")

	status := reportStatus(r)
	rows := [][2]string{
		{"Report ID", r.ID},
		{"Started At", r.StartedAt.Format(timeLayout)},
		{"Duration", r.Duration().String()},
		{"Pool", fmt.Sprintf("%d × %s", r.PoolSize, r.Transport)},
		{"Threshold", strconv.Itoa(r.Threshold)},
		{"Runs/Case", strconv.Itoa(r.Runs)},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}
	fmt.Fprintf(&b, "%s %s", LabelStyle.Render("Status:"), StatusStyle(status).Render(status))
	return BoxStyle.Render(b.String())
}

func (m ReportModel) renderSelected() string {
	i := m.cases.Cursor()
	if i < 0 || i >= len(m.report.Cases) {
		return ""
	}
	c := m.report.Cases[i]
	if c.Error == "" {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		LabelStyle.Render("Error:"),
		ErrorStyle.Render(c.Error))
}

// RunReportTUI runs the report TUI.
func RunReportTUI(data any) error {
	p := tea.NewProgram(NewReportModel(data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderReportStatic renders a report without the full TUI.
func RenderReportStatic(data any) string {
	model := NewReportModel(data)
	model.width = 100
	model.height = 30
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
