package report_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/typimports/pkg/check"
	"github.com/Sumatoshi-tech/typimports/pkg/config"
	"github.com/Sumatoshi-tech/typimports/pkg/pyast"
	"github.com/Sumatoshi-tech/typimports/pkg/pyparse"
	"github.com/Sumatoshi-tech/typimports/pkg/report"
	"github.com/Sumatoshi-tech/typimports/pkg/typeonly"
)

const pathMessage = "TYP001 Import 'Path' from 'pathlib' is only used for type annotations. " +
	"Consider moving it into 'if TYPE_CHECKING:' block"

func sampleResult() *check.Result {
	syntaxErr := &pyparse.SyntaxError{Filename: "b.py", Pos: pyast.Position{Line: 3, Column: 4}}

	return &check.Result{
		Files: []check.FileResult{
			{
				Path: "a.py",
				Diagnostics: []typeonly.Diagnostic{{
					Line:    1,
					Column:  0,
					Message: pathMessage,
					Rule:    typeonly.CheckerName,
					Import:  "Path",
					Module:  "pathlib",
				}},
				Suppressed: 1,
			},
			{Path: "b.py", Diagnostics: []typeonly.Diagnostic{}, Err: syntaxErr, Error: syntaxErr.Error()},
			{Path: "c.py", Diagnostics: []typeonly.Diagnostic{}},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func render(t *testing.T, format string, opts report.Options) string {
	t.Helper()

	var buf bytes.Buffer

	require.NoError(t, report.Write(&buf, report.New(sampleResult(), "1.2.3"), format, opts))

	return buf.String()
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	rep := report.New(sampleResult(), "1.2.3")

	assert.Equal(t, "typimports", rep.Tool)
	assert.Equal(t, "TYP001", rep.Rule)
	assert.Equal(t, report.Summary{
		Files:       3,
		Flagged:     1,
		Failed:      1,
		Diagnostics: 1,
		Suppressed:  1,
		DurationMS:  1500,
	}, rep.Summary)
}

func TestNewEmptyResult(t *testing.T) {
	t.Parallel()

	rep := report.New(&check.Result{}, "dev")
	assert.NotNil(t, rep.Files)
	assert.Equal(t, "Checked 0 files in 0s: 0 type-only imports in 0 files", report.SummaryLine(rep))
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	out := render(t, config.FormatText, report.Options{})

	assert.Equal(t,
		"a.py:1:1: "+pathMessage+"\n"+
			"b.py:3:5: E999 b.py:3:4: syntax error\n",
		out)
}

func TestWriteTextColor(t *testing.T) {
	t.Parallel()

	out := render(t, config.FormatText, report.Options{Color: true})

	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "TYP001")
}

func TestWriteTextSummary(t *testing.T) {
	t.Parallel()

	out := render(t, config.FormatText, report.Options{Summary: true})

	assert.Contains(t, out,
		"Checked 3 files in 1.5s: 1 type-only import in 1 file, 1 suppressed, 1 file not checked\n")
}

func TestWriteCompact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a.py:1: TYP001 pathlib.Path\n", render(t, config.FormatCompact, report.Options{}))
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	out := render(t, config.FormatTable, report.Options{})

	assert.Contains(t, out, "FILE")
	assert.Contains(t, out, "a.py")
	assert.Contains(t, out, "pathlib")
	assert.NotContains(t, out, "c.py")
}

func TestWriteJSONMatchesSchema(t *testing.T) {
	t.Parallel()

	out := render(t, config.FormatJSON, report.Options{Summary: true})

	require.NoError(t, report.Validate([]byte(out)))

	var decoded report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "1.2.3", decoded.Version)
	require.Len(t, decoded.Files, 3)
	assert.Equal(t, "Path", decoded.Files[0].Diagnostics[0].Import)
	assert.NotEmpty(t, decoded.Files[1].Error)
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()

	out := render(t, config.FormatYAML, report.Options{})

	var decoded report.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, decoded.Summary.Diagnostics)
	assert.Equal(t, "pathlib", decoded.Files[0].Diagnostics[0].Module)
}

func TestWriteUnknownFormat(t *testing.T) {
	t.Parallel()

	err := report.Write(&bytes.Buffer{}, report.New(sampleResult(), "dev"), "xml", report.Options{})
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: "{"},
		{name: "missing summary", doc: `{"tool":"typimports","version":"1","rule":"TYP001","files":[]}`},
		{name: "wrong tool", doc: `{"tool":"other","version":"1","rule":"TYP001","files":[],` +
			`"summary":{"files":0,"flagged":0,"failed":0,"diagnostics":0,"suppressed":0,"duration_ms":0}}`},
		{name: "zero line", doc: `{"tool":"typimports","version":"1","rule":"TYP001",` +
			`"files":[{"path":"a.py","diagnostics":[{"line":0,"column":0,"message":"TYP001 Import 'x'",` +
			`"rule":"typimports","import":"x"}]}],` +
			`"summary":{"files":1,"flagged":1,"failed":0,"diagnostics":1,"suppressed":0,"duration_ms":0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := report.Validate([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, report.ErrInvalidReport))
		})
	}
}

func TestSchemaIsJSON(t *testing.T) {
	t.Parallel()

	assert.True(t, json.Valid(report.Schema()))
}
