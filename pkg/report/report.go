// Package report renders check results for humans and machines.
package report

import (
	"errors"

	"github.com/Sumatoshi-tech/typimports/pkg/check"
	"github.com/Sumatoshi-tech/typimports/pkg/pyparse"
	"github.com/Sumatoshi-tech/typimports/pkg/typeonly"
)

// Codes used for files that could not be checked, as flake8 reports them.
const (
	CodeSyntaxError = "E999"
	CodeReadError   = "E902"
)

// Report is the serialized form of a run.
type Report struct {
	Tool    string             `json:"tool"    yaml:"tool"`
	Version string             `json:"version" yaml:"version"`
	Rule    string             `json:"rule"    yaml:"rule"`
	Files   []check.FileResult `json:"files"   yaml:"files"`
	Summary Summary            `json:"summary" yaml:"summary"`
}

// Summary holds run totals.
type Summary struct {
	Files       int   `json:"files"       yaml:"files"`
	Flagged     int   `json:"flagged"     yaml:"flagged"`
	Failed      int   `json:"failed"      yaml:"failed"`
	Diagnostics int   `json:"diagnostics" yaml:"diagnostics"`
	Suppressed  int   `json:"suppressed"  yaml:"suppressed"`
	DurationMS  int64 `json:"duration_ms" yaml:"duration_ms"`
}

// New builds a report from a run result.
func New(res *check.Result, version string) *Report {
	rep := &Report{
		Tool:    typeonly.CheckerName,
		Version: version,
		Rule:    typeonly.Code,
		Files:   res.Files,
	}

	if rep.Files == nil {
		rep.Files = []check.FileResult{}
	}

	rep.Summary.Files = len(res.Files)
	rep.Summary.DurationMS = res.Duration.Milliseconds()

	for _, file := range res.Files {
		rep.Summary.Diagnostics += len(file.Diagnostics)
		rep.Summary.Suppressed += file.Suppressed

		if len(file.Diagnostics) > 0 {
			rep.Summary.Flagged++
		}

		if file.Err != nil || file.Error != "" {
			rep.Summary.Failed++
		}
	}

	return rep
}

// errorCode classifies a file failure.
func errorCode(file check.FileResult) string {
	if errors.Is(file.Err, pyparse.ErrSyntax) {
		return CodeSyntaxError
	}

	return CodeReadError
}
