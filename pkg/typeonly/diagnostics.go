package typeonly

import (
	"fmt"
	"iter"

	"github.com/Sumatoshi-tech/typimports/pkg/pyast"
)

// Code is the stable rule code that prefixes every message.
const Code = "TYP001"

const (
	msgImport     = Code + " Import '%s' is only used for type annotations. Consider moving it into 'if TYPE_CHECKING:' block"
	msgImportFrom = Code + " Import '%s' from '%s' is only used for type annotations. " +
		"Consider moving it into 'if TYPE_CHECKING:' block"
)

// Diagnostic is one relocatable import.
type Diagnostic struct {
	// Line is the 1-based line of the import statement.
	Line int `json:"line" yaml:"line"`
	// Column is the 0-based column of the import statement.
	Column int `json:"column" yaml:"column"`
	// Message starts with [Code].
	Message string `json:"message" yaml:"message"`
	// Rule identifies the producing checker.
	Rule string `json:"rule" yaml:"rule"`
	// Import is the imported name as written (alias preferred).
	Import string `json:"import" yaml:"import"`
	// Module is the from-import origin, empty for plain imports.
	Module string `json:"module,omitempty" yaml:"module,omitempty"`
}

// Code returns the rule code of the diagnostic.
func (Diagnostic) Code() string { return Code }

// Diagnostics yields one diagnostic per type-only imported name in tree, in
// source order. The tables must come from classifying the same tree.
func Diagnostics(tree *pyast.Module, tables *Tables, rule string) iter.Seq[Diagnostic] {
	return func(yield func(Diagnostic) bool) {
		if tree == nil {
			return
		}

		typeOnly := tables.TypeOnly()
		if len(typeOnly) == 0 {
			return
		}

		emitter := &emitter{typeOnly: typeOnly, sentinel: tables.sentinel, rule: rule, yield: yield}
		emitter.visitAll(tree.Body)
	}
}

// emitter re-walks import statements. Only statements are visited: imports
// cannot occur inside expressions. Guarded bodies are skipped.
type emitter struct {
	typeOnly map[string]ImportRecord
	sentinel string
	rule     string
	yield    func(Diagnostic) bool
}

func (em *emitter) visitAll(nodes []pyast.Node) bool {
	for _, node := range nodes {
		if !em.visit(node) {
			return false
		}
	}

	return true
}

func (em *emitter) visit(node pyast.Node) bool {
	switch typed := node.(type) {
	case *pyast.Import:
		return em.importNames(typed)
	case *pyast.ImportFrom:
		return em.importFrom(typed)
	case *pyast.If:
		if !isGuard(typed.Test, em.sentinel) && !em.visitAll(typed.Body) {
			return false
		}

		return em.visitAll(typed.Orelse)
	case *pyast.Name, *pyast.Attribute, *pyast.Constant, *pyast.Param, *pyast.AnnAssign, nil:
		return true
	default:
		return em.visitAll(pyast.Children(node))
	}
}

func (em *emitter) importNames(stmt *pyast.Import) bool {
	for _, alias := range stmt.Names {
		record, ok := em.typeOnly[alias.Bound()]
		if !ok || record.Form != FormImport || record.Original != alias.Name || record.Pos != stmt.At {
			continue
		}

		diag := Diagnostic{
			Line:    stmt.At.Line,
			Column:  stmt.At.Column,
			Message: fmt.Sprintf(msgImport, alias.Display()),
			Rule:    em.rule,
			Import:  alias.Display(),
		}

		if !em.yield(diag) {
			return false
		}
	}

	return true
}

func (em *emitter) importFrom(stmt *pyast.ImportFrom) bool {
	if stmt.Wildcard {
		return true
	}

	for _, alias := range stmt.Names {
		record, ok := em.typeOnly[alias.Display()]
		if !ok || record.Form != FormFrom || record.Origin != stmt.Module || record.Original != alias.Name ||
			record.Pos != stmt.At {
			continue
		}

		diag := Diagnostic{
			Line:    stmt.At.Line,
			Column:  stmt.At.Column,
			Message: fmt.Sprintf(msgImportFrom, alias.Display(), stmt.Module),
			Rule:    em.rule,
			Import:  alias.Display(),
			Module:  stmt.Module,
		}

		if !em.yield(diag) {
			return false
		}
	}

	return true
}
