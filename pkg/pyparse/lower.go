package pyparse

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/typimports/pkg/pyast"
)

// Tree-sitter Python node types with dedicated lowering.
const (
	tsModule               = "module"
	tsBlock                = "block"
	tsComment              = "comment"
	tsImport               = "import_statement"
	tsImportFrom           = "import_from_statement"
	tsFutureImport         = "future_import_statement"
	tsDottedName           = "dotted_name"
	tsAliasedImport        = "aliased_import"
	tsRelativeImport       = "relative_import"
	tsImportPrefix         = "import_prefix"
	tsWildcardImport       = "wildcard_import"
	tsIf                   = "if_statement"
	tsElif                 = "elif_clause"
	tsElse                 = "else_clause"
	tsFunctionDef          = "function_definition"
	tsClassDef             = "class_definition"
	tsDecorated            = "decorated_definition"
	tsDecorator            = "decorator"
	tsIdentifier           = "identifier"
	tsTypedParameter       = "typed_parameter"
	tsDefaultParameter     = "default_parameter"
	tsTypedDefaultParam    = "typed_default_parameter"
	tsListSplatPattern     = "list_splat_pattern"
	tsDictSplatPattern     = "dictionary_splat_pattern"
	tsTuplePattern         = "tuple_pattern"
	tsAssignment           = "assignment"
	tsAttribute            = "attribute"
	tsParenthesized        = "parenthesized_expression"
	tsType                 = "type"
	tsMemberType           = "member_type"
	tsTrue                 = "true"
	tsFalse                = "false"
	tsNone                 = "none"
	tsInteger              = "integer"
	tsFloat                = "float"
	tsString               = "string"
	tsInterpolation        = "interpolation"
	tsKeywordArgument      = "keyword_argument"
	tsLambda               = "lambda"
	tsGlobal               = "global_statement"
	tsNonlocal             = "nonlocal_statement"
	tsExceptClause         = "except_clause"
	tsAsync                = "async"
	tsAs                   = "as"
	futureModule           = "__future__"
	fieldName              = "name"
	fieldAlias             = "alias"
	fieldModuleName        = "module_name"
	fieldCondition         = "condition"
	fieldConsequence       = "consequence"
	fieldBody              = "body"
	fieldParameters        = "parameters"
	fieldReturnType        = "return_type"
	fieldDefinition        = "definition"
	fieldType              = "type"
	fieldValue             = "value"
	fieldLeft              = "left"
	fieldRight             = "right"
	fieldObject            = "object"
	fieldAttribute         = "attribute"
	fieldSuperclasses      = "superclasses"
	fieldTypeParameters    = "type_parameters"
	fieldTypeParametersAlt = "type_parameter"
)

// lowerer converts one tree-sitter tree into pyast nodes.
type lowerer struct {
	source []byte
}

func (low *lowerer) text(node sitter.Node) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint(len(low.source)) || start > end {
		return ""
	}

	return string(low.source[start:end])
}

// namedChildren returns the named children of node without comments.
func namedChildren(node sitter.Node) []sitter.Node {
	count := node.NamedChildCount()
	out := make([]sitter.Node, 0, count)

	for idx := range count {
		child := node.NamedChild(idx)
		if child.Type() == tsComment {
			continue
		}

		out = append(out, child)
	}

	return out
}

func field(node sitter.Node, name string) (sitter.Node, bool) {
	child := node.ChildByFieldName(name)

	return child, !child.IsNull()
}

func sameNode(a, b sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func (low *lowerer) module(root sitter.Node) *pyast.Module {
	return &pyast.Module{Body: low.statements(namedChildren(root))}
}

func (low *lowerer) statements(nodes []sitter.Node) []pyast.Node {
	out := make([]pyast.Node, 0, len(nodes))

	for _, node := range nodes {
		lowered := low.lower(node)
		if lowered != nil {
			out = append(out, lowered)
		}
	}

	return out
}

// suite lowers a statement body, which is normally a block.
func (low *lowerer) suite(node sitter.Node, ok bool) []pyast.Node {
	if !ok {
		return nil
	}

	if node.Type() == tsBlock {
		return low.statements(namedChildren(node))
	}

	return low.statements([]sitter.Node{node})
}

func (low *lowerer) lower(node sitter.Node) pyast.Node {
	if node.IsNull() {
		return nil
	}

	switch node.Type() {
	case tsComment:
		return nil
	case tsImport:
		return low.importStatement(node)
	case tsImportFrom:
		return low.importFrom(node)
	case tsFutureImport:
		return low.futureImport(node)
	case tsIf:
		return low.ifStatement(node)
	case tsFunctionDef:
		return low.functionDef(node, nil)
	case tsDecorated:
		return low.decorated(node)
	case tsClassDef:
		return low.classDef(node)
	case tsAssignment:
		return low.assignment(node)
	case tsIdentifier:
		return &pyast.Name{ID: low.text(node), At: position(node)}
	case tsAttribute:
		return low.attribute(node)
	case tsDottedName:
		return low.dottedExpr(node)
	case tsParenthesized:
		return low.parenthesized(node)
	case tsType:
		return low.typeExpr(node)
	case tsMemberType:
		return low.memberType(node)
	case tsTrue, tsFalse, tsNone, tsInteger, tsFloat:
		return &pyast.Constant{Kind: constKind(node.Type()), Text: low.text(node), At: position(node)}
	case tsString:
		return low.stringLiteral(node)
	case tsKeywordArgument:
		return low.keywordArgument(node)
	case tsLambda:
		return low.lambda(node)
	case tsGlobal, tsNonlocal:
		return &pyast.Generic{Type: node.Type(), At: position(node)}
	case tsExceptClause:
		return low.exceptClause(node)
	default:
		return low.generic(node)
	}
}

func (low *lowerer) generic(node sitter.Node) *pyast.Generic {
	return &pyast.Generic{
		Type:     node.Type(),
		Children: low.statements(namedChildren(node)),
		At:       position(node),
	}
}

func constKind(nodeType string) pyast.ConstKind {
	switch nodeType {
	case tsTrue:
		return pyast.ConstTrue
	case tsFalse:
		return pyast.ConstFalse
	case tsNone:
		return pyast.ConstNone
	case tsInteger, tsFloat:
		return pyast.ConstNumber
	default:
		return pyast.ConstOther
	}
}

// Imports.

func (low *lowerer) importStatement(node sitter.Node) *pyast.Import {
	stmt := &pyast.Import{At: position(node)}

	for _, child := range namedChildren(node) {
		if alias, ok := low.alias(child); ok {
			stmt.Names = append(stmt.Names, alias)
		}
	}

	return stmt
}

func (low *lowerer) importFrom(node sitter.Node) *pyast.ImportFrom {
	stmt := &pyast.ImportFrom{At: position(node)}

	moduleNode, hasModule := field(node, fieldModuleName)
	if hasModule {
		stmt.Module = low.moduleName(moduleNode)
	}

	for _, child := range namedChildren(node) {
		if hasModule && sameNode(child, moduleNode) {
			continue
		}

		if child.Type() == tsWildcardImport {
			stmt.Wildcard = true

			continue
		}

		if alias, ok := low.alias(child); ok {
			stmt.Names = append(stmt.Names, alias)
		}
	}

	return stmt
}

func (low *lowerer) futureImport(node sitter.Node) *pyast.ImportFrom {
	stmt := &pyast.ImportFrom{Module: futureModule, At: position(node)}

	for _, child := range namedChildren(node) {
		if alias, ok := low.alias(child); ok {
			stmt.Names = append(stmt.Names, alias)
		}
	}

	return stmt
}

func (low *lowerer) alias(node sitter.Node) (pyast.Alias, bool) {
	switch node.Type() {
	case tsDottedName:
		return pyast.Alias{Name: low.dotted(node), At: position(node)}, true
	case tsAliasedImport:
		name, _ := field(node, fieldName)
		asName, _ := field(node, fieldAlias)

		return pyast.Alias{Name: low.dotted(name), AsName: low.text(asName), At: position(node)}, true
	default:
		return pyast.Alias{}, false
	}
}

// dotted joins the identifiers of a dotted_name, dropping whitespace.
func (low *lowerer) dotted(node sitter.Node) string {
	if node.IsNull() {
		return ""
	}

	if node.Type() != tsDottedName {
		return low.text(node)
	}

	parts := make([]string, 0, node.NamedChildCount())

	for _, child := range namedChildren(node) {
		parts = append(parts, low.text(child))
	}

	return strings.Join(parts, ".")
}

// moduleName renders a from-import source, keeping relative dots.
func (low *lowerer) moduleName(node sitter.Node) string {
	if node.Type() != tsRelativeImport {
		return low.dotted(node)
	}

	var buf strings.Builder

	for _, child := range namedChildren(node) {
		switch child.Type() {
		case tsImportPrefix:
			buf.WriteString(strings.TrimSpace(low.text(child)))
		case tsDottedName:
			buf.WriteString(low.dotted(child))
		}
	}

	return buf.String()
}

// Control flow.

func (low *lowerer) ifStatement(node sitter.Node) *pyast.If {
	stmt := &pyast.If{At: position(node)}

	if cond, ok := field(node, fieldCondition); ok {
		stmt.Test = low.lower(cond)
	}

	stmt.Body = low.suite(field(node, fieldConsequence))

	var clauses []sitter.Node

	for _, child := range namedChildren(node) {
		if child.Type() == tsElif || child.Type() == tsElse {
			clauses = append(clauses, child)
		}
	}

	stmt.Orelse = low.alternatives(clauses)

	return stmt
}

// alternatives folds an elif/else chain into nested If nodes.
func (low *lowerer) alternatives(clauses []sitter.Node) []pyast.Node {
	if len(clauses) == 0 {
		return nil
	}

	first := clauses[0]

	if first.Type() == tsElse {
		return low.suite(field(first, fieldBody))
	}

	nested := &pyast.If{At: position(first)}

	if cond, ok := field(first, fieldCondition); ok {
		nested.Test = low.lower(cond)
	}

	nested.Body = low.suite(field(first, fieldConsequence))
	nested.Orelse = low.alternatives(clauses[1:])

	return []pyast.Node{nested}
}

// exceptClause drops the "as name" binding, which is not a reference.
func (low *lowerer) exceptClause(node sitter.Node) *pyast.Generic {
	clause := &pyast.Generic{Type: node.Type(), At: position(node)}
	afterAs := false

	for idx := range node.ChildCount() {
		child := node.Child(idx)

		if child.Type() == tsAs {
			afterAs = true

			continue
		}

		if !child.IsNamed() || child.Type() == tsComment {
			continue
		}

		if afterAs {
			afterAs = false

			continue
		}

		if child.Type() == tsBlock {
			clause.Children = append(clause.Children, low.statements(namedChildren(child))...)

			continue
		}

		if lowered := low.lower(child); lowered != nil {
			clause.Children = append(clause.Children, lowered)
		}
	}

	return clause
}

// Definitions.

func (low *lowerer) functionDef(node sitter.Node, decorators []pyast.Node) *pyast.FunctionDef {
	def := &pyast.FunctionDef{Decorators: decorators, At: position(node)}

	if name, ok := field(node, fieldName); ok {
		def.Name = low.text(name)
	}

	for idx := range node.ChildCount() {
		if node.Child(idx).Type() == tsAsync {
			def.Async = true

			break
		}
	}

	if params, ok := field(node, fieldParameters); ok {
		def.Params = low.parameters(params)
	}

	if returns, ok := field(node, fieldReturnType); ok {
		def.Returns = low.typeExpr(returns)
	}

	def.Body = low.suite(field(node, fieldBody))

	return def
}

func (low *lowerer) decorated(node sitter.Node) pyast.Node {
	var decorators []pyast.Node

	for _, child := range namedChildren(node) {
		if child.Type() != tsDecorator {
			continue
		}

		for _, expr := range namedChildren(child) {
			if lowered := low.lower(expr); lowered != nil {
				decorators = append(decorators, lowered)
			}
		}
	}

	definition, ok := field(node, fieldDefinition)
	if !ok {
		return &pyast.Generic{Type: node.Type(), Children: decorators, At: position(node)}
	}

	if definition.Type() == tsFunctionDef {
		return low.functionDef(definition, decorators)
	}

	children := append(decorators, low.lower(definition))

	return &pyast.Generic{Type: node.Type(), Children: children, At: position(node)}
}

// classDef keeps bases, type parameters and body; the class name is a binding.
func (low *lowerer) classDef(node sitter.Node) *pyast.Generic {
	class := &pyast.Generic{Type: node.Type(), At: position(node)}

	for _, name := range []string{fieldTypeParameters, fieldTypeParametersAlt, fieldSuperclasses} {
		if child, ok := field(node, name); ok {
			class.Children = append(class.Children, low.generic(child))
		}
	}

	class.Children = append(class.Children, low.suite(field(node, fieldBody))...)

	return class
}

func (low *lowerer) parameters(node sitter.Node) []*pyast.Param {
	var params []*pyast.Param

	for _, child := range namedChildren(node) {
		param := &pyast.Param{At: position(child)}

		switch child.Type() {
		case tsIdentifier, tsListSplatPattern, tsDictSplatPattern, tsTuplePattern:
			param.Name = low.text(child)
		case tsTypedParameter:
			if children := namedChildren(child); len(children) > 0 {
				param.Name = low.text(children[0])
			}

			if typ, ok := field(child, fieldType); ok {
				param.Annotation = low.typeExpr(typ)
			}
		case tsDefaultParameter:
			if name, ok := field(child, fieldName); ok {
				param.Name = low.text(name)
			}

			if value, ok := field(child, fieldValue); ok {
				param.Default = low.lower(value)
			}
		case tsTypedDefaultParam:
			if name, ok := field(child, fieldName); ok {
				param.Name = low.text(name)
			}

			if typ, ok := field(child, fieldType); ok {
				param.Annotation = low.typeExpr(typ)
			}

			if value, ok := field(child, fieldValue); ok {
				param.Default = low.lower(value)
			}
		default:
			// Separators ("*", "/") bind nothing.
			continue
		}

		params = append(params, param)
	}

	return params
}

func (low *lowerer) lambda(node sitter.Node) *pyast.Generic {
	fn := &pyast.Generic{Type: node.Type(), At: position(node)}

	if params, ok := field(node, fieldParameters); ok {
		for _, param := range low.parameters(params) {
			fn.Children = append(fn.Children, param)
		}
	}

	if body, ok := field(node, fieldBody); ok {
		if lowered := low.lower(body); lowered != nil {
			fn.Children = append(fn.Children, lowered)
		}
	}

	return fn
}

// Expressions.

// assignment lowers "x: T = v" to AnnAssign; plain assignments stay generic.
func (low *lowerer) assignment(node sitter.Node) pyast.Node {
	left, _ := field(node, fieldLeft)
	right, hasRight := field(node, fieldRight)

	if typ, ok := field(node, fieldType); ok {
		assign := &pyast.AnnAssign{
			Target:     low.lower(left),
			Annotation: low.typeExpr(typ),
			At:         position(node),
		}

		if hasRight {
			assign.Value = low.lower(right)
		}

		return assign
	}

	return low.generic(node)
}

func (low *lowerer) attribute(node sitter.Node) pyast.Node {
	attr := &pyast.Attribute{At: position(node)}

	if object, ok := field(node, fieldObject); ok {
		attr.Value = low.lower(object)
	}

	if name, ok := field(node, fieldAttribute); ok {
		attr.Attr = low.text(name)
	}

	return attr
}

// dottedExpr turns a dotted_name in expression position into an attribute chain.
func (low *lowerer) dottedExpr(node sitter.Node) pyast.Node {
	var expr pyast.Node

	for _, part := range namedChildren(node) {
		if expr == nil {
			expr = &pyast.Name{ID: low.text(part), At: position(part)}

			continue
		}

		expr = &pyast.Attribute{Value: expr, Attr: low.text(part), At: position(node)}
	}

	return expr
}

func (low *lowerer) parenthesized(node sitter.Node) pyast.Node {
	children := namedChildren(node)
	if len(children) == 1 {
		return low.lower(children[0])
	}

	return low.generic(node)
}

// typeExpr unwraps the grammar's "type" wrapper around annotation expressions.
func (low *lowerer) typeExpr(node sitter.Node) pyast.Node {
	if node.IsNull() {
		return nil
	}

	if node.Type() != tsType {
		return low.lower(node)
	}

	children := namedChildren(node)
	if len(children) == 1 {
		return low.lower(children[0])
	}

	return low.generic(node)
}

// memberType is "type.identifier" inside annotations; the suffix is not a reference.
func (low *lowerer) memberType(node sitter.Node) pyast.Node {
	children := namedChildren(node)
	if len(children) < 2 { //nolint:mnd // object and attribute
		return low.generic(node)
	}

	return &pyast.Attribute{
		Value: low.typeExpr(children[0]),
		Attr:  low.text(children[len(children)-1]),
		At:    position(node),
	}
}

// stringLiteral keeps f-string interpolations, which are evaluated at runtime.
func (low *lowerer) stringLiteral(node sitter.Node) pyast.Node {
	var interpolations []pyast.Node

	for _, child := range namedChildren(node) {
		if child.Type() == tsInterpolation {
			interpolations = append(interpolations, low.generic(child))
		}
	}

	if len(interpolations) == 0 {
		return &pyast.Constant{Kind: pyast.ConstString, Text: low.text(node), At: position(node)}
	}

	return &pyast.Generic{Type: node.Type(), Children: interpolations, At: position(node)}
}

// keywordArgument drops the keyword, which names a parameter.
func (low *lowerer) keywordArgument(node sitter.Node) *pyast.Generic {
	arg := &pyast.Generic{Type: node.Type(), At: position(node)}

	if value, ok := field(node, fieldValue); ok {
		if lowered := low.lower(value); lowered != nil {
			arg.Children = append(arg.Children, lowered)
		}
	}

	return arg
}
