package check

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/typimports/pkg/typeonly"
)

// noqaPattern follows flake8: "# noqa" silences every code on the line,
// "# noqa: A1,B2" only the listed ones.
var noqaPattern = regexp.MustCompile(`(?i)#\s*noqa(?::\s?(?P<codes>[A-Z]+[0-9]+(?:[,\s]+[A-Z]+[0-9]+)*))?`) //nolint:gochecknoglobals // Compiled once.

var codeSeparator = regexp.MustCompile(`[,\s]+`) //nolint:gochecknoglobals // Compiled once.

// suppressions maps 1-based line numbers to the codes silenced on them. An
// empty set silences everything.
type suppressions map[int]map[string]bool

func parseNoQA(src []byte) suppressions {
	if !bytes.Contains(bytes.ToLower(src), []byte("noqa")) {
		return nil
	}

	out := make(suppressions)

	for idx, line := range bytes.Split(src, []byte("\n")) {
		match := noqaPattern.FindSubmatch(line)
		if match == nil {
			continue
		}

		codes := make(map[string]bool)

		if raw := match[noqaPattern.SubexpIndex("codes")]; len(raw) > 0 {
			for _, code := range codeSeparator.Split(string(raw), -1) {
				if code != "" {
					codes[strings.ToUpper(code)] = true
				}
			}
		}

		out[idx+1] = codes
	}

	return out
}

func (sup suppressions) suppressed(diag typeonly.Diagnostic) bool {
	codes, ok := sup[diag.Line]
	if !ok {
		return false
	}

	return len(codes) == 0 || codes[diag.Code()]
}

// filter drops suppressed diagnostics and reports how many were dropped.
func (sup suppressions) filter(diags []typeonly.Diagnostic) ([]typeonly.Diagnostic, int) {
	if len(sup) == 0 {
		return diags, 0
	}

	kept := diags[:0]

	for _, diag := range diags {
		if !sup.suppressed(diag) {
			kept = append(kept, diag)
		}
	}

	return kept, len(diags) - len(kept)
}
