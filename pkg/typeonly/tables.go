// Package typeonly finds imports that are referenced only from type
// annotations and could therefore live inside an "if TYPE_CHECKING:" block.
//
// Analysis is a single walk over a [pyast.Module] that produces [Tables],
// followed by a diagnostic pass that re-visits the import statements of the
// same tree. Both passes are pure; a [Checker] may be reused across files and
// goroutines.
package typeonly

import "github.com/Sumatoshi-tech/typimports/pkg/pyast"

// Form distinguishes the two import statement shapes.
type Form uint8

const (
	// FormImport is "import x" or "import x.y as z".
	FormImport Form = iota + 1
	// FormFrom is "from m import x".
	FormFrom
)

// String returns the Python keyword that introduces the form.
func (form Form) String() string {
	switch form {
	case FormImport:
		return "import"
	case FormFrom:
		return "from"
	default:
		return "unknown"
	}
}

// ImportRecord describes one name bound by an import statement.
type ImportRecord struct {
	// Bound is the name visible in code.
	Bound string
	// Origin is the source module of a from-import, empty for plain imports.
	Origin string
	// Original is the imported name as written before any "as" alias.
	// For plain imports this is the dotted module path.
	Original string
	// Form is the statement shape that introduced the binding.
	Form Form
	// Pos is the position of the introducing statement.
	Pos pyast.Position
}

// StarImport marks a wildcard import. Names it brings into scope are unknown
// and never classified.
type StarImport struct {
	Module string
	Pos    pyast.Position
}

// Tables is the result of the classification walk.
type Tables struct {
	// Imports maps bound names to the last unguarded import that bound them.
	Imports map[string]ImportRecord
	// Guarded holds bound names imported inside a type-checking guard.
	Guarded map[string]struct{}
	// Annotation holds bound names referenced from annotation context.
	Annotation map[string]struct{}
	// Runtime holds bound names referenced from runtime context.
	Runtime map[string]struct{}
	// StarImports lists wildcard imports in source order.
	StarImports []StarImport

	sentinel string
}

func newTables(sentinel string) *Tables {
	return &Tables{
		sentinel:   sentinel,
		Imports:    make(map[string]ImportRecord),
		Guarded:    make(map[string]struct{}),
		Annotation: make(map[string]struct{}),
		Runtime:    make(map[string]struct{}),
	}
}

// IsTypeOnly reports whether bound is an unguarded import referenced from
// annotations and never at runtime.
func (tables *Tables) IsTypeOnly(bound string) bool {
	if _, ok := tables.Imports[bound]; !ok {
		return false
	}

	if _, guarded := tables.Guarded[bound]; guarded {
		return false
	}

	_, inAnnotation := tables.Annotation[bound]
	_, atRuntime := tables.Runtime[bound]

	return inAnnotation && !atRuntime
}

// TypeOnly returns the records of all type-only imports keyed by bound name.
func (tables *Tables) TypeOnly() map[string]ImportRecord {
	out := make(map[string]ImportRecord)

	for bound, record := range tables.Imports {
		if tables.IsTypeOnly(bound) {
			out[bound] = record
		}
	}

	return out
}
