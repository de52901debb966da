package pyast

import (
	"fmt"
	"io"
	"strings"
)

// Children returns the direct children of node in source order. Nil slots
// (missing annotation, default, return type) are omitted.
func Children(node Node) []Node {
	var out []Node

	appendNode := func(child Node) {
		if child != nil {
			out = append(out, child)
		}
	}

	switch typed := node.(type) {
	case *Module:
		out = append(out, typed.Body...)
	case *Import, *ImportFrom, *Name, *Constant:
		return nil
	case *If:
		appendNode(typed.Test)
		out = append(out, typed.Body...)
		out = append(out, typed.Orelse...)
	case *FunctionDef:
		out = append(out, typed.Decorators...)

		for _, param := range typed.Params {
			out = append(out, param)
		}

		appendNode(typed.Returns)
		out = append(out, typed.Body...)
	case *Param:
		appendNode(typed.Annotation)
		appendNode(typed.Default)
	case *AnnAssign:
		appendNode(typed.Target)
		appendNode(typed.Annotation)
		appendNode(typed.Value)
	case *Attribute:
		appendNode(typed.Value)
	case *Generic:
		out = append(out, typed.Children...)
	}

	return out
}

// Inspect traverses the tree rooted at node in pre-order. If fn returns false
// the children of the current node are skipped.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	for _, child := range Children(node) {
		Inspect(child, fn)
	}
}

// Dump writes an indented, human-readable rendering of the tree to w.
func Dump(w io.Writer, node Node) error {
	var buf strings.Builder

	dumpNode(&buf, node, 0)

	_, err := io.WriteString(w, buf.String())
	if err != nil {
		return fmt.Errorf("dump tree: %w", err)
	}

	return nil
}

const dumpIndent = "  "

func dumpNode(buf *strings.Builder, node Node, depth int) {
	buf.WriteString(strings.Repeat(dumpIndent, depth))
	buf.WriteString(describe(node))
	buf.WriteByte('\n')

	for _, child := range Children(node) {
		dumpNode(buf, child, depth+1)
	}
}

func describe(node Node) string {
	pos := node.Pos()

	switch typed := node.(type) {
	case *Module:
		return "Module"
	case *Import:
		return fmt.Sprintf("Import %s @%s", aliasList(typed.Names), pos)
	case *ImportFrom:
		if typed.Wildcard {
			return fmt.Sprintf("ImportFrom %s * @%s", typed.Module, pos)
		}

		return fmt.Sprintf("ImportFrom %s %s @%s", typed.Module, aliasList(typed.Names), pos)
	case *If:
		return fmt.Sprintf("If @%s", pos)
	case *FunctionDef:
		return fmt.Sprintf("FunctionDef %s @%s", typed.Name, pos)
	case *Param:
		return fmt.Sprintf("Param %s @%s", typed.Name, pos)
	case *AnnAssign:
		return fmt.Sprintf("AnnAssign @%s", pos)
	case *Name:
		return fmt.Sprintf("Name %s @%s", typed.ID, pos)
	case *Attribute:
		return fmt.Sprintf("Attribute .%s @%s", typed.Attr, pos)
	case *Constant:
		return fmt.Sprintf("Constant %s %q @%s", typed.Kind, typed.Text, pos)
	case *Generic:
		return fmt.Sprintf("%s @%s", typed.Type, pos)
	default:
		return fmt.Sprintf("%T", node)
	}
}

func aliasList(names []Alias) string {
	parts := make([]string, 0, len(names))

	for _, alias := range names {
		if alias.AsName != "" {
			parts = append(parts, alias.Name+" as "+alias.AsName)

			continue
		}

		parts = append(parts, alias.Name)
	}

	return strings.Join(parts, ", ")
}
