package pyast_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/typimports/pkg/pyast"
)

func TestAliasBound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		alias   pyast.Alias
		bound   string
		display string
	}{
		{name: "simple", alias: pyast.Alias{Name: "os"}, bound: "os", display: "os"},
		{name: "dotted", alias: pyast.Alias{Name: "os.path"}, bound: "os", display: "os.path"},
		{name: "aliased", alias: pyast.Alias{Name: "numpy", AsName: "np"}, bound: "np", display: "np"},
		{name: "aliased dotted", alias: pyast.Alias{Name: "a.b.c", AsName: "c"}, bound: "c", display: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.bound, tt.alias.Bound())
			assert.Equal(t, tt.display, tt.alias.Display())
		})
	}
}

func sampleTree() *pyast.Module {
	return &pyast.Module{Body: []pyast.Node{
		&pyast.Import{Names: []pyast.Alias{{Name: "os"}}, At: pyast.Position{Line: 1}},
		&pyast.FunctionDef{
			Name:       "f",
			Decorators: []pyast.Node{&pyast.Name{ID: "cache", At: pyast.Position{Line: 2, Column: 1}}},
			Params: []*pyast.Param{{
				Name:       "p",
				Annotation: &pyast.Name{ID: "Path", At: pyast.Position{Line: 3, Column: 9}},
				Default:    &pyast.Constant{Kind: pyast.ConstNone, Text: "None", At: pyast.Position{Line: 3, Column: 16}},
				At:         pyast.Position{Line: 3, Column: 6},
			}},
			Returns: &pyast.Attribute{
				Value: &pyast.Name{ID: "os", At: pyast.Position{Line: 3, Column: 25}},
				Attr:  "PathLike",
				At:    pyast.Position{Line: 3, Column: 25},
			},
			Body: []pyast.Node{&pyast.Generic{Type: "pass_statement", At: pyast.Position{Line: 4, Column: 4}}},
			At:   pyast.Position{Line: 3},
		},
	}}
}

func TestInspectPreOrder(t *testing.T) {
	t.Parallel()

	var names []string

	pyast.Inspect(sampleTree(), func(node pyast.Node) bool {
		if name, ok := node.(*pyast.Name); ok {
			names = append(names, name.ID)
		}

		return true
	})

	assert.Equal(t, []string{"cache", "Path", "os"}, names)
}

func TestInspectSkipsChildren(t *testing.T) {
	t.Parallel()

	visited := 0

	pyast.Inspect(sampleTree(), func(node pyast.Node) bool {
		visited++

		_, isFunc := node.(*pyast.FunctionDef)

		return !isFunc
	})

	// Module, Import, FunctionDef.
	assert.Equal(t, 3, visited)
}

func TestChildrenOmitsNilSlots(t *testing.T) {
	t.Parallel()

	param := &pyast.Param{Name: "x"}
	assert.Empty(t, pyast.Children(param))

	assign := &pyast.AnnAssign{
		Target:     &pyast.Name{ID: "x"},
		Annotation: &pyast.Name{ID: "int"},
	}
	assert.Len(t, pyast.Children(assign), 2)
}

func TestDump(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, pyast.Dump(&buf, sampleTree()))

	out := buf.String()
	assert.Contains(t, out, "Module\n")
	assert.Contains(t, out, "  Import os @1:0\n")
	assert.Contains(t, out, "    Param p @3:6\n")
	assert.Contains(t, out, "      Name Path @3:9\n")
	assert.Contains(t, out, "    Attribute .PathLike @3:25\n")
}

func TestConstKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "False", pyast.ConstFalse.String())
	assert.Equal(t, "ConstKind(42)", pyast.ConstKind(42).String())
}
