// Package output renders command results as text, tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode selects the output format.
type Mode string

const (
	// ModeAuto renders tables on a TTY and plain text otherwise.
	ModeAuto  Mode = "auto"
	ModeText  Mode = "text"
	ModeTable Mode = "table"
	ModeJSON  Mode = "json"
	ModeYAML  Mode = "yaml"
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	out  io.Writer
	errw io.Writer
	mode Mode
}

// NewRenderer creates a renderer. ModeAuto resolves to table when out is a
// terminal, text otherwise.
func NewRenderer(out, errw io.Writer, mode Mode) *Renderer {
	if mode == "" || mode == ModeAuto {
		mode = ModeText
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			mode = ModeTable
		}
	}
	return &Renderer{out: out, errw: errw, mode: mode}
}

// Mode returns the resolved output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Structured reports whether output is machine-readable (json/yaml); callers
// should suppress decorative text in that case.
func (r *Renderer) Structured() bool {
	return r.mode == ModeJSON || r.mode == ModeYAML
}

// Textf writes formatted text output. Suppressed in structured modes.
func (r *Renderer) Textf(format string, args ...any) {
	if r.Structured() {
		return
	}
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Errorf writes to the error stream regardless of mode.
func (r *Renderer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.errw, format, args...)
}

// Table renders rows under a header. In text mode it falls back to
// tab-separated lines; structured modes should use Value instead.
func (r *Renderer) Table(header []string, rows [][]string) {
	if r.Structured() {
		return
	}

	if r.mode == ModeText {
		for _, row := range rows {
			for i, cell := range row {
				if i > 0 {
					_, _ = fmt.Fprint(r.out, "\t")
				}
				_, _ = fmt.Fprint(r.out, cell)
			}
			_, _ = fmt.Fprintln(r.out)
		}
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		t.AppendRow(tr)
	}
	t.Render()
}

// Value renders v in the structured modes. No-op for text and table modes.
func (r *Renderer) Value(v any) error {
	switch r.mode {
	case ModeJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case ModeYAML:
		enc := yaml.NewEncoder(r.out)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	default:
		return nil
	}
}
