// Package render writes command results as json, yaml or an aligned table.
//
// Without --format, a terminal on stdout gets a table and anything else
// gets json. Unknown formats are errors. --no-color applies to table
// output; the TUI keeps its own styling.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/crucible/cli/tui"
)

// Format is an output format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

var formats = []Format{FormatJSON, FormatTable, FormatYAML}

// ParseFormat parses s case-insensitively. An empty string yields an empty
// Format so the caller can pick a default.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return "", nil
	}
	f := Format(strings.ToLower(s))
	if !slices.Contains(formats, f) {
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
	return f, nil
}

// Renderer writes values in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer reads --format and --no-color and writes to stdout.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = defaultFormat(os.Stdout)
	}
	return NewRendererWithWriter(format, c.Bool("no-color"), os.Stdout), nil
}

// NewRendererWithWriter creates a renderer writing to out.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

func defaultFormat(f *os.File) Format {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return FormatTable
	}
	return FormatJSON
}

// Format returns the selected format.
func (r *Renderer) Format() Format { return r.format }

// Render writes data in the renderer's format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return r.table(reflect.ValueOf(data))
	}
	return fmt.Errorf("unknown format: %s", r.format)
}

// RenderTUI runs the interactive view for data.
func (r *Renderer) RenderTUI(view string, data any) error {
	if !tui.IsTUISupported(view) {
		return fmt.Errorf("--tui is not supported for %s", view)
	}
	return tui.Run(view, data)
}

// table writes a slice as one row per element and anything else as
// name: value lines.
func (r *Renderer) table(v reflect.Value) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		if v.Len() == 0 {
			fmt.Fprintln(w, "(no results)")
			return w.Flush()
		}
		cols := columnsOf(v.Index(0))
		if cols == nil {
			for i := range v.Len() {
				fmt.Fprintln(w, formatValue(v.Index(i)))
			}
			return w.Flush()
		}
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.name
		}
		fmt.Fprintln(w, strings.Join(names, "\t"))
		for i := range v.Len() {
			row := indirect(v.Index(i))
			cells := make([]string, len(cols))
			if row.IsValid() {
				for j, c := range cols {
					cells[j] = formatValue(c.get(row))
				}
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		return w.Flush()
	}

	v = indirect(v)
	switch v.Kind() {
	case reflect.Struct, reflect.Map:
		for _, c := range columnsOf(v) {
			fmt.Fprintf(w, "%s:\t%s\n", c.name, formatValue(c.get(v)))
		}
	default:
		if v.IsValid() {
			fmt.Fprintf(w, "%v\n", v.Interface())
		}
	}
	return w.Flush()
}

// column names one displayed field of a struct or string-keyed map.
type column struct {
	name string
	get  func(reflect.Value) reflect.Value
}

func columnsOf(v reflect.Value) []column {
	v = indirect(v)
	var cols []column
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			cols = append(cols, column{
				name: fieldName(f),
				get:  func(s reflect.Value) reflect.Value { return s.Field(i) },
			})
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil
		}
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)
		keyType := v.Type().Key()
		for _, k := range keys {
			key := reflect.ValueOf(k).Convert(keyType)
			cols = append(cols, column{
				name: k,
				get:  func(m reflect.Value) reflect.Value { return m.MapIndex(key) },
			})
		}
	}
	return cols
}

// fieldName prefers the json tag so table headers match json keys.
func fieldName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return strings.ToLower(f.Name)
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

var timeType = reflect.TypeFor[time.Time]()

func formatValue(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return ""
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', 3, 64)
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface().(time.Time).Format(time.RFC3339)
		}
		return "{...}"
	}
	return fmt.Sprint(v.Interface())
}
