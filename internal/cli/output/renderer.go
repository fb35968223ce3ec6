// Package output renders command results as styled terminal text,
// markdown, or JSON. The auto mode picks text on a TTY and markdown
// everywhere else, so piped and scripted invocations stay parseable.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output in one resolved mode.
type Renderer struct {
	out       io.Writer
	errOut    io.Writer
	effective Mode

	// Styles carries the lipgloss styles for text mode. Zero styles
	// render plain, so callers can apply them unconditionally.
	Styles Styles
}

// NewRenderer creates a renderer for the given mode. ModeAuto and
// unknown modes resolve against the output writer: text on a terminal,
// markdown otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	r := &Renderer{
		out:       out,
		errOut:    errOut,
		effective: resolveMode(mode, out),
	}
	r.Styles = newStyles(r.effective == ModeText && supportsColor(out))
	return r
}

func resolveMode(mode Mode, out io.Writer) Mode {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON:
		return mode
	}
	if isTerminal(out) {
		return ModeText
	}
	return ModeMarkdown
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func supportsColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return termenv.NewOutput(f).Profile != termenv.Ascii
}

// EffectiveMode returns the resolved mode, never ModeAuto.
func (r *Renderer) EffectiveMode() Mode {
	return r.effective
}

// Writer returns the destination for standard output.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// Println writes a line to standard output.
func (r *Renderer) Println(args ...any) {
	_, _ = fmt.Fprintln(r.out, args...)
}

// Printf writes formatted text to standard output.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a section heading: styled in text mode, an H2 in
// markdown mode.
func (r *Renderer) Header(text string) {
	if r.effective == ModeMarkdown {
		_, _ = fmt.Fprintf(r.out, "## %s\n\n", text)
		return
	}
	_, _ = fmt.Fprintln(r.out, r.Styles.Header.Render(text))
}

// Success writes a confirmation line.
func (r *Renderer) Success(text string) {
	_, _ = fmt.Fprintln(r.out, r.Styles.Success.Render(text))
}

// Error writes an error line to the error stream.
func (r *Renderer) Error(text string) {
	_, _ = fmt.Fprintln(r.errOut, r.Styles.Error.Render(text))
}

// KeyValue writes one aligned "key: value" line.
func (r *Renderer) KeyValue(key string, value any) {
	if r.effective == ModeMarkdown {
		_, _ = fmt.Fprintf(r.out, "- **%s**: %v\n", key, value)
		return
	}
	_, _ = fmt.Fprintf(r.out, "%s %v\n", r.Styles.Muted.Render(key+":"), value)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes a table: box-drawn in text mode, pipes in markdown mode.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	if r.effective == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
