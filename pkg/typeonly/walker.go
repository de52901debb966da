package typeonly

import "github.com/Sumatoshi-tech/typimports/pkg/pyast"

// walkContext is the traversal state. It is passed by value so that leaving a
// construct restores the enclosing state without bookkeeping.
type walkContext struct {
	inAnnotation bool
	guarded      bool
}

func (ctx walkContext) annotation() walkContext {
	ctx.inAnnotation = true

	return ctx
}

func (ctx walkContext) guard() walkContext {
	ctx.guarded = true

	return ctx
}

type walker struct {
	opts   Options
	tables *Tables
}

// Classify walks tree once and returns its import and usage tables.
func Classify(tree *pyast.Module, opts Options) *Tables {
	opts = opts.normalized()

	w := &walker{
		opts:   opts,
		tables: newTables(opts.SentinelName),
	}

	if tree != nil {
		w.walk(tree, walkContext{})
	}

	return w.tables
}

func (w *walker) walk(node pyast.Node, ctx walkContext) {
	switch typed := node.(type) {
	case nil:
		return
	case *pyast.Module:
		w.walkAll(typed.Body, ctx)
	case *pyast.Import:
		w.importNames(typed, ctx)
	case *pyast.ImportFrom:
		w.importFrom(typed, ctx)
	case *pyast.If:
		w.walk(typed.Test, ctx)

		bodyCtx := ctx
		if isGuard(typed.Test, w.opts.SentinelName) {
			bodyCtx = ctx.guard()
		}

		w.walkAll(typed.Body, bodyCtx)
		w.walkAll(typed.Orelse, ctx)
	case *pyast.FunctionDef:
		w.walkAll(typed.Decorators, ctx)

		for _, param := range typed.Params {
			w.walk(param, ctx)
		}

		w.walk(typed.Returns, ctx.annotation())
		w.walkAll(typed.Body, ctx)
	case *pyast.Param:
		w.walk(typed.Annotation, ctx.annotation())
		w.walk(typed.Default, ctx)
	case *pyast.AnnAssign:
		// The target is a store, not a use.
		w.walk(typed.Annotation, ctx.annotation())
		w.walk(typed.Value, ctx)
	case *pyast.Name:
		w.reference(typed.ID, ctx)
	case *pyast.Attribute:
		w.walk(typed.Value, ctx)
	case *pyast.Constant:
		return
	case *pyast.Generic:
		w.walkAll(typed.Children, ctx)
	default:
		w.walkAll(pyast.Children(node), ctx)
	}
}

func (w *walker) walkAll(nodes []pyast.Node, ctx walkContext) {
	for _, node := range nodes {
		w.walk(node, ctx)
	}
}

// isGuard recognizes "if TYPE_CHECKING:" and "if False:".
func isGuard(test pyast.Node, sentinel string) bool {
	switch typed := test.(type) {
	case *pyast.Name:
		return typed.ID == sentinel
	case *pyast.Constant:
		return typed.Kind == pyast.ConstFalse
	default:
		return false
	}
}

func (w *walker) importNames(stmt *pyast.Import, ctx walkContext) {
	for _, alias := range stmt.Names {
		bound := alias.Bound()

		if ctx.guarded {
			w.tables.Guarded[bound] = struct{}{}

			continue
		}

		w.tables.Imports[bound] = ImportRecord{
			Bound:    bound,
			Original: alias.Name,
			Form:     FormImport,
			Pos:      stmt.At,
		}
	}
}

func (w *walker) importFrom(stmt *pyast.ImportFrom, ctx walkContext) {
	if stmt.Wildcard {
		w.tables.StarImports = append(w.tables.StarImports, StarImport{Module: stmt.Module, Pos: stmt.At})

		return
	}

	for _, alias := range stmt.Names {
		if w.opts.isSentinelImport(stmt.Module, alias.Name) {
			continue
		}

		bound := alias.Display()

		if ctx.guarded {
			w.tables.Guarded[bound] = struct{}{}

			continue
		}

		w.tables.Imports[bound] = ImportRecord{
			Bound:    bound,
			Origin:   stmt.Module,
			Original: alias.Name,
			Form:     FormFrom,
			Pos:      stmt.At,
		}
	}
}

func (w *walker) reference(name string, ctx walkContext) {
	if _, imported := w.tables.Imports[name]; !imported {
		return
	}

	if ctx.inAnnotation {
		w.tables.Annotation[name] = struct{}{}

		return
	}

	w.tables.Runtime[name] = struct{}{}
}
