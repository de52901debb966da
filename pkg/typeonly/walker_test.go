package typeonly_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/typimports/pkg/pyast"
	"github.com/Sumatoshi-tech/typimports/pkg/typeonly"
)

func at(line, column int) pyast.Position {
	return pyast.Position{Line: line, Column: column}
}

func name(id string, line int) *pyast.Name {
	return &pyast.Name{ID: id, At: at(line, 0)}
}

func TestClassifyTables(t *testing.T) {
	t.Parallel()

	// import os
	// from m import A, B as Bee
	// from star import *
	// if TYPE_CHECKING:
	//     from g import G
	// def f(x: A = Bee) -> os.PathLike: ...
	tree := &pyast.Module{Body: []pyast.Node{
		&pyast.Import{Names: []pyast.Alias{{Name: "os"}}, At: at(1, 0)},
		&pyast.ImportFrom{Module: "m", Names: []pyast.Alias{{Name: "A"}, {Name: "B", AsName: "Bee"}}, At: at(2, 0)},
		&pyast.ImportFrom{Module: "star", Wildcard: true, At: at(3, 0)},
		&pyast.If{
			Test: name("TYPE_CHECKING", 4),
			Body: []pyast.Node{&pyast.ImportFrom{Module: "g", Names: []pyast.Alias{{Name: "G"}}, At: at(5, 4)}},
			At:   at(4, 0),
		},
		&pyast.FunctionDef{
			Name: "f",
			Params: []*pyast.Param{{
				Name:       "x",
				Annotation: name("A", 6),
				Default:    name("Bee", 6),
			}},
			Returns: &pyast.Attribute{Value: name("os", 6), Attr: "PathLike"},
			At:      at(6, 0),
		},
	}}

	tables := typeonly.Classify(tree, typeonly.Options{})

	require.Len(t, tables.Imports, 3)
	assert.Equal(t, typeonly.ImportRecord{Bound: "os", Original: "os", Form: typeonly.FormImport, Pos: at(1, 0)},
		tables.Imports["os"])
	assert.Equal(t, typeonly.ImportRecord{Bound: "Bee", Origin: "m", Original: "B", Form: typeonly.FormFrom, Pos: at(2, 0)},
		tables.Imports["Bee"])

	assert.Contains(t, tables.Guarded, "G")
	assert.NotContains(t, tables.Imports, "G")
	assert.Equal(t, []typeonly.StarImport{{Module: "star", Pos: at(3, 0)}}, tables.StarImports)

	assert.Contains(t, tables.Annotation, "A")
	assert.Contains(t, tables.Annotation, "os")
	assert.Contains(t, tables.Runtime, "Bee")
	assert.NotContains(t, tables.Runtime, "TYPE_CHECKING")

	assert.True(t, tables.IsTypeOnly("A"))
	assert.True(t, tables.IsTypeOnly("os"))
	assert.False(t, tables.IsTypeOnly("Bee"))
	assert.False(t, tables.IsTypeOnly("G"))

	typeOnly := tables.TypeOnly()
	keys := make([]string, 0, len(typeOnly))

	for key := range typeOnly {
		keys = append(keys, key)
	}

	slices.Sort(keys)
	assert.Equal(t, []string{"A", "os"}, keys)
}

func TestClassifyLastWriterWins(t *testing.T) {
	t.Parallel()

	tree := &pyast.Module{Body: []pyast.Node{
		&pyast.ImportFrom{Module: "first", Names: []pyast.Alias{{Name: "A"}}, At: at(1, 0)},
		&pyast.ImportFrom{Module: "second", Names: []pyast.Alias{{Name: "A"}}, At: at(2, 0)},
		&pyast.AnnAssign{Target: name("x", 3), Annotation: name("A", 3), At: at(3, 0)},
	}}

	tables := typeonly.Classify(tree, typeonly.DefaultOptions())
	assert.Equal(t, "second", tables.Imports["A"].Origin)

	diags := typeonly.NewChecker(typeonly.DefaultOptions()).Collect(tree)
	require.Len(t, diags, 1)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, "second", diags[0].Module)
}

func TestClassifyNestedContexts(t *testing.T) {
	t.Parallel()

	// A guarded region containing a function whose annotation is itself an
	// annotation context; leaving both must restore runtime context.
	tree := &pyast.Module{Body: []pyast.Node{
		&pyast.ImportFrom{Module: "m", Names: []pyast.Alias{{Name: "A"}, {Name: "B"}}, At: at(1, 0)},
		&pyast.If{
			Test: &pyast.Constant{Kind: pyast.ConstFalse, Text: "False"},
			Body: []pyast.Node{&pyast.FunctionDef{
				Name:    "g",
				Returns: name("A", 3),
				Body:    []pyast.Node{&pyast.Generic{Type: "expression_statement", Children: []pyast.Node{name("B", 4)}}},
			}},
		},
		&pyast.Generic{Type: "expression_statement", Children: []pyast.Node{name("A", 5)}},
	}}

	tables := typeonly.Classify(tree, typeonly.Options{})

	assert.Contains(t, tables.Annotation, "A")
	assert.Contains(t, tables.Runtime, "A")
	assert.Contains(t, tables.Runtime, "B")
	assert.NotContains(t, tables.Annotation, "B")
}

func TestClassifyNilTree(t *testing.T) {
	t.Parallel()

	tables := typeonly.Classify(nil, typeonly.Options{})
	assert.Empty(t, tables.Imports)
	assert.Empty(t, typeonly.NewChecker(typeonly.Options{}).Collect(nil))
}

func TestFormString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "import", typeonly.FormImport.String())
	assert.Equal(t, "from", typeonly.FormFrom.String())
	assert.Equal(t, "unknown", typeonly.Form(0).String())
}
