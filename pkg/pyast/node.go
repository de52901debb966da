// Package pyast defines the Python syntax tree consumed by the type-only import
// analysis. The node set is closed: every construct that the analysis does not
// need to distinguish is represented by [Generic], which keeps its children so
// traversal passes through it unchanged.
package pyast

import "fmt"

// Position is the source location of a node.
// Line is 1-based, Column is a 0-based byte offset within the line.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// String formats the position as "line:column".
func (pos Position) String() string {
	return fmt.Sprintf("%d:%d", pos.Line, pos.Column)
}

// Node is implemented by every syntax tree node. The set of implementations is
// sealed to this package.
type Node interface {
	// Pos returns the position of the first token of the node.
	Pos() Position

	node()
}

// Alias is one imported name of an import statement: "name" or "name as asname".
type Alias struct {
	Name   string   `json:"name"`
	AsName string   `json:"asname,omitempty"`
	At     Position `json:"pos"`
}

// Module is the root of a parsed source file.
type Module struct {
	Body []Node
}

// Import is a plain import statement: import a, b.c as d.
type Import struct {
	Names []Alias
	At    Position
}

// ImportFrom is a from-import statement: from m import a, b as c.
// Module keeps leading dots of relative imports ("." or "..pkg").
type ImportFrom struct {
	Module   string
	Names    []Alias
	Wildcard bool
	At       Position
}

// If is a conditional statement. An elif chain is represented by a nested If
// as the only element of Orelse.
type If struct {
	Test   Node
	Body   []Node
	Orelse []Node
	At     Position
}

// FunctionDef is a function or method definition, including its decorators.
type FunctionDef struct {
	Name       string
	Decorators []Node
	Params     []*Param
	Returns    Node
	Body       []Node
	Async      bool
	At         Position
}

// Param is one function parameter. Annotation and Default are nil when absent.
type Param struct {
	Name       string
	Annotation Node
	Default    Node
	At         Position
}

// AnnAssign is an annotated assignment: target: annotation [= value].
type AnnAssign struct {
	Target     Node
	Annotation Node
	Value      Node
	At         Position
}

// Name is a reference to an identifier in expression position.
type Name struct {
	ID string
	At Position
}

// Attribute is an attribute access: value.attr. Attr is never a reference.
type Attribute struct {
	Value Node
	Attr  string
	At    Position
}

// ConstKind classifies literal constants.
type ConstKind uint8

// Constant kinds.
const (
	ConstOther ConstKind = iota
	ConstFalse
	ConstTrue
	ConstNone
	ConstNumber
	ConstString
)

var constKindNames = [...]string{
	ConstOther:  "other",
	ConstFalse:  "False",
	ConstTrue:   "True",
	ConstNone:   "None",
	ConstNumber: "number",
	ConstString: "string",
}

// String returns the name of the constant kind.
func (kind ConstKind) String() string {
	if int(kind) < len(constKindNames) {
		return constKindNames[kind]
	}

	return fmt.Sprintf("ConstKind(%d)", kind)
}

// Constant is a literal value.
type Constant struct {
	Kind ConstKind
	Text string
	At   Position
}

// Generic is any construct without dedicated handling. Type is the grammar's
// name for the construct (e.g. "call", "class_definition").
type Generic struct {
	Type     string
	Children []Node
	At       Position
}

// Pos implements Node.
func (*Module) Pos() Position { return Position{Line: 1} }

// Pos implements Node.
func (n *Import) Pos() Position { return n.At }

// Pos implements Node.
func (n *ImportFrom) Pos() Position { return n.At }

// Pos implements Node.
func (n *If) Pos() Position { return n.At }

// Pos implements Node.
func (n *FunctionDef) Pos() Position { return n.At }

// Pos implements Node.
func (n *Param) Pos() Position { return n.At }

// Pos implements Node.
func (n *AnnAssign) Pos() Position { return n.At }

// Pos implements Node.
func (n *Name) Pos() Position { return n.At }

// Pos implements Node.
func (n *Attribute) Pos() Position { return n.At }

// Pos implements Node.
func (n *Constant) Pos() Position { return n.At }

// Pos implements Node.
func (n *Generic) Pos() Position { return n.At }

func (*Module) node()      {}
func (*Import) node()      {}
func (*ImportFrom) node()  {}
func (*If) node()          {}
func (*FunctionDef) node() {}
func (*Param) node()       {}
func (*AnnAssign) node()   {}
func (*Name) node()        {}
func (*Attribute) node()   {}
func (*Constant) node()    {}
func (*Generic) node()     {}

// Bound returns the name the alias binds in the importing scope.
// For "import a.b.c" that is "a"; an explicit asname always wins.
func (alias Alias) Bound() string {
	if alias.AsName != "" {
		return alias.AsName
	}

	for i := range len(alias.Name) {
		if alias.Name[i] == '.' {
			return alias.Name[:i]
		}
	}

	return alias.Name
}

// Display returns the name as written by the user, preferring the alias.
func (alias Alias) Display() string {
	if alias.AsName != "" {
		return alias.AsName
	}

	return alias.Name
}
