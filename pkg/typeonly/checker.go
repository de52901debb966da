package typeonly

import (
	"iter"
	"slices"

	"github.com/Sumatoshi-tech/typimports/pkg/pyast"
)

const (
	// CheckerName identifies diagnostics produced by [Checker].
	CheckerName = "typimports"
	// CheckerVersion is reported by hosts that list their rules.
	CheckerVersion = "0.1.0"
)

// Checker reports type-only imports of a parsed module.
type Checker struct {
	opts Options
}

// NewChecker creates a checker. Zero-value option fields use defaults.
func NewChecker(opts Options) *Checker {
	return &Checker{opts: opts.normalized()}
}

// Name returns the checker name used as the diagnostic rule identifier.
func (c *Checker) Name() string {
	return CheckerName
}

// Version returns the checker version.
func (c *Checker) Version() string {
	return CheckerVersion
}

// Options returns the effective options.
func (c *Checker) Options() Options {
	return c.opts
}

// Classify runs the classification walk over tree.
func (c *Checker) Classify(tree *pyast.Module) *Tables {
	return Classify(tree, c.opts)
}

// Run analyzes tree and yields its diagnostics in source order. Each range
// over the result performs one full analysis.
func (c *Checker) Run(tree *pyast.Module) iter.Seq[Diagnostic] {
	return func(yield func(Diagnostic) bool) {
		tables := c.Classify(tree)

		for diag := range Diagnostics(tree, tables, c.Name()) {
			if !yield(diag) {
				return
			}
		}
	}
}

// Collect runs the checker and gathers all diagnostics.
func (c *Checker) Collect(tree *pyast.Module) []Diagnostic {
	return slices.Collect(c.Run(tree))
}
