package transform

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// SiteKind is the syntactic form of an async function.
type SiteKind int

const (
	FunctionDeclaration SiteKind = iota
	FunctionExpression
	ArrowFunction
	ObjectMethod
	ClassMethod
)

var siteKindNames = [...]string{
	FunctionDeclaration: "declaration",
	FunctionExpression:  "expression",
	ArrowFunction:       "arrow",
	ObjectMethod:        "object_method",
	ClassMethod:         "class_method",
}

func (k SiteKind) String() string {
	if int(k) < len(siteKindNames) {
		return siteKindNames[k]
	}
	return "unknown"
}

// Site is one async function selected for lowering.
type Site struct {
	Kind   SiteKind
	Node   *sitter.Node
	Async  *sitter.Node
	Name   string
	Params *sitter.Node
	Types  *sitter.Node
	Body   *sitter.Node
}

type siteStatus int

const (
	notSite siteStatus = iota
	isSite
	asyncGenerator
)

const (
	kindFunctionDeclaration  = "function_declaration"
	kindFunctionExpression   = "function_expression"
	kindGeneratorDeclaration = "generator_function_declaration"
	kindGeneratorExpression  = "generator_function"
	kindArrowFunction        = "arrow_function"
	kindMethodDefinition     = "method_definition"
	kindStatementBlock       = "statement_block"
	kindClassBody            = "class_body"
)

func isFunctionLike(kind string) bool {
	switch kind {
	case kindFunctionDeclaration, kindFunctionExpression,
		kindGeneratorDeclaration, kindGeneratorExpression,
		kindArrowFunction, kindMethodDefinition:
		return true
	}
	return false
}

// classify decides whether n is a lowering site. parent is n's parent node.
func classify(n, parent *sitter.Node, src []byte) (Site, siteStatus) {
	kw := asyncToken(n)
	if kw == nil {
		return Site{}, notSite
	}
	site := Site{
		Node:   n,
		Async:  kw,
		Params: n.ChildByFieldName("parameters"),
		Types:  n.ChildByFieldName("type_parameters"),
		Body:   n.ChildByFieldName("body"),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		site.Name = nodeText(name, src)
	}

	switch n.Kind() {
	case kindGeneratorDeclaration, kindGeneratorExpression:
		return site, asyncGenerator
	case kindFunctionDeclaration:
		site.Kind = FunctionDeclaration
	case kindFunctionExpression:
		site.Kind = FunctionExpression
	case kindArrowFunction:
		site.Kind = ArrowFunction
		if site.Params == nil {
			site.Params = n.ChildByFieldName("parameter")
		}
	case kindMethodDefinition:
		if hasToken(n, "*") {
			return site, asyncGenerator
		}
		site.Kind = ObjectMethod
		if parent != nil && parent.Kind() == kindClassBody {
			site.Kind = ClassMethod
		}
	default:
		return Site{}, notSite
	}
	if site.Body == nil {
		return Site{}, notSite
	}
	return site, isSite
}

// asyncToken returns the `async` keyword child of n, if any.
func asyncToken(n *sitter.Node) *sitter.Node {
	if !isFunctionLike(n.Kind()) {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child.Kind() == "async" && !child.IsNamed() {
			return child
		}
	}
	return nil
}

func hasToken(n *sitter.Node, kind string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child.Kind() == kind && !child.IsNamed() {
			return true
		}
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

func nodeText(n *sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}

// isStatementContainer reports whether a function declaration may appear
// directly under a node of this kind.
func isStatementContainer(kind string) bool {
	switch kind {
	case "program", kindStatementBlock, "export_statement", "switch_case", "switch_default":
		return true
	}
	return false
}
