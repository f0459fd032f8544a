package transform

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Unsupported construct kinds reported as diagnostics.
const (
	UnsupportedAsyncGenerator = "async_generator"
	UnsupportedForAwait       = "for_await"
	UnsupportedSuper          = "super"
	UnsupportedNewTarget      = "new_target"
	UnsupportedDeclPosition   = "declaration_position"
)

// CaptureDecision summarizes how a site's body uses its call context.
type CaptureDecision struct {
	NeedsThis      bool
	NeedsArguments bool
	HasAwait       bool
	UsesSuper      *sitter.Node
	UsesNewTarget  *sitter.Node
	ForAwait       *sitter.Node
	// Arrows lists the nested arrow functions that share the site's context.
	Arrows []*sitter.Node
}

// Blocker returns the first construct that prevents lowering a site of
// kind, or an empty kind when the site can be lowered.
func (d CaptureDecision) Blocker(kind SiteKind) (string, *sitter.Node) {
	if d.ForAwait != nil {
		return UnsupportedForAwait, d.ForAwait
	}
	switch kind {
	case ArrowFunction:
		if d.UsesSuper != nil {
			return UnsupportedSuper, d.UsesSuper
		}
		if d.UsesNewTarget != nil {
			return UnsupportedNewTarget, d.UsesNewTarget
		}
	case ObjectMethod, ClassMethod:
		if d.UsesSuper != nil {
			return UnsupportedSuper, d.UsesSuper
		}
	}
	return "", nil
}

type captureWalker struct {
	src []byte
	d   CaptureDecision
}

// resolveCapture walks the region a site's own body shares its call
// context with: the body plus nested arrows, stopping at other functions.
func resolveCapture(site Site, src []byte) CaptureDecision {
	w := &captureWalker{src: src}
	if site.Kind == ArrowFunction && site.Params != nil {
		w.walk(site.Params, true)
	}
	w.walk(site.Body, true)
	return w.d
}

func (w *captureWalker) walk(n *sitter.Node, awaitRegion bool) {
	switch n.Kind() {
	case "this":
		w.d.NeedsThis = true
		return
	case "super":
		if w.d.UsesSuper == nil {
			w.d.UsesSuper = n
		}
		return
	case "identifier", "shorthand_property_identifier":
		if nodeText(n, w.src) == "arguments" {
			w.d.NeedsArguments = true
		}
		return
	case "meta_property":
		if w.d.UsesNewTarget == nil && n.ChildCount() > 0 && n.Child(0).Kind() == "new" {
			w.d.UsesNewTarget = n
		}
		return
	case "await_expression":
		if awaitRegion {
			w.d.HasAwait = true
		}
	case "for_in_statement":
		if awaitRegion && w.d.ForAwait == nil && hasToken(n, "await") {
			w.d.ForAwait = n
		}
	case kindArrowFunction:
		w.d.Arrows = append(w.d.Arrows, n)
		w.walkChildren(n, false)
		return
	case kindMethodDefinition:
		w.walkOuterParts(n, awaitRegion)
		return
	case kindFunctionDeclaration, kindFunctionExpression,
		kindGeneratorDeclaration, kindGeneratorExpression:
		return
	case "field_definition", "public_field_definition":
		w.walkOuterParts(n, awaitRegion)
		return
	case "class_static_block":
		return
	}
	w.walkChildren(n, awaitRegion)
}

func (w *captureWalker) walkChildren(n *sitter.Node, awaitRegion bool) {
	for i := uint(0); i < n.ChildCount(); i++ {
		w.walk(n.Child(i), awaitRegion)
	}
}

// walkOuterParts visits the parts of a class or object member that are
// evaluated in the enclosing context: decorators and computed keys.
func (w *captureWalker) walkOuterParts(n *sitter.Node, awaitRegion bool) {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "decorator", "computed_property_name":
			w.walk(child, awaitRegion)
		}
	}
}
