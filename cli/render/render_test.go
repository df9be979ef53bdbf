package render

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"Table", FormatTable, false},
		{"yaml", FormatYAML, false},
		{"", "", false},
		{"xml", "", true},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if err != nil && !strings.Contains(err.Error(), "json, table, or yaml") {
			t.Errorf("ParseFormat(%q) error should list formats, got %v", tt.input, err)
		}
	}
}

type caseRow struct {
	Name   string  `json:"name"`
	MeanMs float64 `json:"mean_ms"`
	Runs   int
}

func render(t *testing.T, format Format, noColor bool, data any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := NewRendererWithWriter(format, noColor, &buf).Render(data); err != nil {
		t.Fatalf("Render(%s) failed: %v", format, err)
	}
	return buf.String()
}

func TestRender_Contains(t *testing.T) {
	rows := []caseRow{
		{Name: "quicksort/module", MeanMs: 4.5, Runs: 3},
		{Name: "quicksort/ref", MeanMs: 9, Runs: 3},
	}
	tests := []struct {
		name   string
		format Format
		data   any
		want   []string
	}{
		{"json map", FormatJSON, map[string]string{"key": "value"}, []string{`"key": "value"`}},
		{"yaml map", FormatYAML, map[string]string{"key": "value"}, []string{"key: value"}},
		{"json struct uses tags", FormatJSON, rows[0], []string{`"mean_ms": 4.5`, `"Runs": 3`}},
		{"table struct", FormatTable, rows[0], []string{"name:", "quicksort/module", "mean_ms:", "4.500", "runs:"}},
		{"table pointer", FormatTable, &rows[1], []string{"quicksort/ref", "9.000"}},
		{"table slice", FormatTable, rows, []string{"name", "mean_ms", "runs", "quicksort/module", "quicksort/ref"}},
		{"table empty slice", FormatTable, []caseRow{}, []string{"(no results)"}},
		{"table scalar slice", FormatTable, []string{"alpha", "beta"}, []string{"alpha\nbeta\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, tt.format, false, tt.data)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestRender_TableHeaderFirst(t *testing.T) {
	got := render(t, FormatTable, false, []caseRow{{Name: "fib", MeanMs: 1, Runs: 1}})
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines:\n%s", len(lines), got)
	}
	if fields := strings.Fields(lines[0]); len(fields) != 3 || fields[0] != "name" {
		t.Errorf("header = %q", lines[0])
	}
}

func TestRender_NoColorLeavesJSONAlone(t *testing.T) {
	data := map[string]int{"cases": 8}
	if render(t, FormatJSON, false, data) != render(t, FormatJSON, true, data) {
		t.Error("--no-color changed json output")
	}
}

func TestRender_TableFormatsValues(t *testing.T) {
	type row struct {
		MeanMs    float64   `json:"mean_ms"`
		StartedAt time.Time `json:"started_at"`
		Cases     []int     `json:"cases"`
		Labels    map[string]string
		Err       *string `json:"error,omitempty"`
		hidden    int
	}
	got := render(t, FormatTable, true, row{
		MeanMs:    1.23456,
		StartedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		Cases:     []int{1, 2},
		hidden:    7,
	})
	for _, want := range []string{"1.235", "2026-10-17T09:00:00Z", "[2 items]", "labels:", "{}", "error:"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("unexported field rendered:\n%s", got)
	}
}

func TestRender_TableMapSorted(t *testing.T) {
	got := render(t, FormatTable, false, map[string]int{"b": 2, "a": 1, "c": 3})
	a, b, c := strings.Index(got, "a:"), strings.Index(got, "b:"), strings.Index(got, "c:")
	if a < 0 || a > b || b > c {
		t.Errorf("map keys not sorted:\n%s", got)
	}
}

func TestRenderTUI_UnsupportedView(t *testing.T) {
	r := NewRendererWithWriter(FormatTable, false, &bytes.Buffer{})
	if err := r.RenderTUI("version", nil); err == nil {
		t.Error("expected error for unsupported TUI view")
	}
}
