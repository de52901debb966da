// Package pyparse parses Python source with tree-sitter and lowers the
// concrete syntax tree into [pyast] nodes.
package pyparse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/alexaandru/go-sitter-forest/python"

	"github.com/Sumatoshi-tech/typimports/pkg/pyast"
)

// Sentinel errors for parser operations.
var (
	// ErrSyntax indicates the source does not parse as Python.
	ErrSyntax = errors.New("syntax error")
	// ErrNoRootNode indicates tree-sitter returned an empty tree.
	ErrNoRootNode = errors.New("parser: no root node")

	errPoolType = errors.New("parser: pool returned unexpected type")
)

// SyntaxError locates the first syntax error of a source file.
type SyntaxError struct {
	Filename string
	Pos      pyast.Position
}

// Error implements error.
func (se *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%s: %s", se.Filename, se.Pos, ErrSyntax)
}

// Unwrap makes errors.Is(err, ErrSyntax) hold.
func (se *SyntaxError) Unwrap() error {
	return ErrSyntax
}

//nolint:gochecknoglobals // Grammar is loaded once per process.
var (
	languageOnce sync.Once
	language     *sitter.Language
)

func pythonLanguage() *sitter.Language {
	languageOnce.Do(func() {
		language = sitter.NewLanguage(python.GetLanguage())
	})

	return language
}

// Parser parses Python source files. It is safe for concurrent use; each
// call borrows a tree-sitter parser from an internal pool.
type Parser struct {
	pool sync.Pool
}

// NewParser creates a Parser for the Python grammar.
func NewParser() *Parser {
	lang := pythonLanguage()

	return &Parser{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// Parse parses content and returns the lowered module. Files with syntax
// errors are rejected with a *SyntaxError.
func (parser *Parser) Parse(ctx context.Context, filename string, content []byte) (*pyast.Module, error) {
	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	tsParser, ok := parser.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer parser.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, ErrNoRootNode
	}

	if root.HasError() {
		return nil, &SyntaxError{Filename: filename, Pos: position(firstError(root))}
	}

	low := &lowerer{source: content}

	return low.module(root), nil
}

// firstError descends along the first erroneous child.
func firstError(node sitter.Node) sitter.Node {
	for {
		var next sitter.Node

		found := false

		for idx := range node.ChildCount() {
			child := node.Child(idx)
			if child.HasError() || child.Type() == "ERROR" {
				next, found = child, true

				break
			}
		}

		if !found {
			return node
		}

		node = next
	}
}

func position(node sitter.Node) pyast.Position {
	start := node.StartPoint()

	return pyast.Position{
		Line:   int(start.Row) + 1, //nolint:gosec // tree-sitter coordinates fit in int
		Column: int(start.Column),  //nolint:gosec // tree-sitter coordinates fit in int
	}
}
