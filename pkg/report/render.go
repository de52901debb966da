package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/typimports/pkg/check"
	"github.com/Sumatoshi-tech/typimports/pkg/config"
	"github.com/Sumatoshi-tech/typimports/pkg/pyparse"
)

// ErrUnknownFormat is returned for unsupported output formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Options controls rendering.
type Options struct {
	// Color enables ANSI colors in the text format.
	Color bool
	// Summary appends the totals line to text, compact and table output.
	Summary bool
}

// Write renders rep to w in the given format.
func Write(w io.Writer, rep *Report, format string, opts Options) error {
	var err error

	switch format {
	case config.FormatText:
		err = writeText(w, rep, opts)
	case config.FormatCompact:
		err = writeCompact(w, rep)
	case config.FormatTable:
		err = writeTable(w, rep)
	case config.FormatJSON:
		err = writeJSON(w, rep)
	case config.FormatYAML:
		err = writeYAML(w, rep)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	if opts.Summary && (format == config.FormatText || format == config.FormatCompact || format == config.FormatTable) {
		_, err = fmt.Fprintln(w, SummaryLine(rep))
		if err != nil {
			return fmt.Errorf("render summary: %w", err)
		}
	}

	return nil
}

type palette struct {
	path, pos, code, failure func(a ...any) string
}

func newPalette(enabled bool) palette {
	build := func(attrs ...color.Attribute) func(a ...any) string {
		painter := color.New(attrs...)
		if enabled {
			painter.EnableColor()
		} else {
			painter.DisableColor()
		}

		return painter.SprintFunc()
	}

	return palette{
		path:    build(color.Bold),
		pos:     build(color.FgCyan),
		code:    build(color.FgYellow, color.Bold),
		failure: build(color.FgRed, color.Bold),
	}
}

// writeText prints flake8-style lines: "path:line:col: TYP001 message".
func writeText(w io.Writer, rep *Report, opts Options) error {
	colors := newPalette(opts.Color)

	for _, file := range rep.Files {
		if file.Err != nil || file.Error != "" {
			code, line, col := failureLocation(file)

			_, err := fmt.Fprintf(w, "%s:%s: %s %s\n",
				colors.path(file.Path), colors.pos(strconv.Itoa(line)+":"+strconv.Itoa(col)),
				colors.failure(code), file.Error)
			if err != nil {
				return err //nolint:wrapcheck // wrapped by Write
			}

			continue
		}

		for _, diag := range file.Diagnostics {
			message := diag.Message[len(diag.Code()):]

			_, err := fmt.Fprintf(w, "%s:%s: %s%s\n",
				colors.path(file.Path),
				colors.pos(strconv.Itoa(diag.Line)+":"+strconv.Itoa(diag.Column+1)),
				colors.code(diag.Code()), message)
			if err != nil {
				return err //nolint:wrapcheck // wrapped by Write
			}
		}
	}

	return nil
}

func failureLocation(file check.FileResult) (string, int, int) {
	var syntaxErr *pyparse.SyntaxError
	if errors.As(file.Err, &syntaxErr) {
		return CodeSyntaxError, syntaxErr.Pos.Line, syntaxErr.Pos.Column + 1
	}

	return errorCode(file), 1, 1
}

// writeCompact prints one line per import without the advice text.
func writeCompact(w io.Writer, rep *Report) error {
	for _, file := range rep.Files {
		for _, diag := range file.Diagnostics {
			target := diag.Import
			if diag.Module != "" {
				target = diag.Module + "." + diag.Import
			}

			_, err := fmt.Fprintf(w, "%s:%d: %s %s\n", file.Path, diag.Line, diag.Code(), target)
			if err != nil {
				return err //nolint:wrapcheck // wrapped by Write
			}
		}
	}

	return nil
}

func writeTable(w io.Writer, rep *Report) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"File", "Line", "Col", "Import", "From"})

	for _, file := range rep.Files {
		for _, diag := range file.Diagnostics {
			tbl.AppendRow(table.Row{file.Path, diag.Line, diag.Column + 1, diag.Import, diag.Module})
		}
	}

	tbl.Render()

	return nil
}

func writeJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(rep) //nolint:wrapcheck // wrapped by Write
}

func writeYAML(w io.Writer, rep *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) //nolint:mnd // conventional YAML indent

	encodeErr := enc.Encode(rep)
	if encodeErr != nil {
		return encodeErr //nolint:wrapcheck // wrapped by Write
	}

	return enc.Close() //nolint:wrapcheck // wrapped by Write
}

// SummaryLine renders the run totals, e.g.
// "Checked 1,204 files in 85ms: 3 type-only imports in 2 files".
func SummaryLine(rep *Report) string {
	duration := time.Duration(rep.Summary.DurationMS) * time.Millisecond

	line := fmt.Sprintf("Checked %s in %s: %s in %s",
		pluralCount(rep.Summary.Files, "file", "files"),
		duration,
		pluralCount(rep.Summary.Diagnostics, "type-only import", "type-only imports"),
		pluralCount(rep.Summary.Flagged, "file", "files"),
	)

	if rep.Summary.Suppressed > 0 {
		line += fmt.Sprintf(", %s suppressed", humanize.Comma(int64(rep.Summary.Suppressed)))
	}

	if rep.Summary.Failed > 0 {
		line += fmt.Sprintf(", %s not checked", pluralCount(rep.Summary.Failed, "file", "files"))
	}

	return line
}

func pluralCount(n int, singular, plural string) string {
	return humanize.Comma(int64(n)) + " " + english.PluralWord(n, singular, plural)
}
