package transform

import (
	"fmt"
	"strings"

	"ngasync/internal/core/errors"
	"ngasync/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// region is the evaluation context the current node is rendered in.
type region struct {
	// this and args replace `this` and `arguments` when set.
	this string
	args string
	// yield turns await expressions into yield expressions.
	yield bool
}

func (r region) thisExpr() string {
	if r.this != "" {
		return r.this
	}
	return "this"
}

func (r region) argsExpr() string {
	if r.args != "" {
		return r.args
	}
	return "arguments"
}

// arrow is the region inside a nested arrow: the function context carries
// over but await does not.
func (r region) arrow() region {
	return region{this: r.this, args: r.args}
}

type emitter struct {
	unit   *parser.Unit
	src    []byte
	opts   Options
	indent string
	nl     string
	scopes *Tracker
	diags  []Diagnostic
	stats  Stats
	err    error
}

func newEmitter(unit *parser.Unit, opts Options) *emitter {
	return &emitter{
		unit:   unit,
		src:    unit.Source,
		opts:   opts,
		indent: detectIndentUnit(unit.Source),
		nl:     detectNewline(unit.Source),
		scopes: NewTracker(),
		stats:  Stats{Sites: make(map[SiteKind]int)},
	}
}

func (e *emitter) run() (string, error) {
	root := e.unit.Root()
	program := e.scopes.Enter()
	seedIdentifiers(root, e.src, program)

	var out code
	out.write(string(e.src[:root.StartByte()]))
	e.render(root, nil, region{}, &out)
	out.write(string(e.src[root.EndByte():]))
	e.scopes.Exit()
	if e.err != nil {
		return "", e.err
	}
	return out.String(), nil
}

// seedIdentifiers declares every identifier-like token of the file in the
// program frame so generated names never shadow or capture source names.
func seedIdentifiers(n *sitter.Node, src []byte, s *Scope) {
	if n.ChildCount() == 0 {
		if strings.HasSuffix(n.Kind(), "identifier") {
			s.DeclareExisting(nodeText(n, src))
		}
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		seedIdentifiers(n.Child(i), src, s)
	}
}

func (e *emitter) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *emitter) render(n, parent *sitter.Node, r region, out *code) {
	if e.err != nil {
		return
	}
	switch n.Kind() {
	case kindFunctionDeclaration, kindFunctionExpression,
		kindGeneratorDeclaration, kindGeneratorExpression,
		kindArrowFunction, kindMethodDefinition:
		if e.renderSite(n, parent, r, out) {
			return
		}
		e.renderFunction(n, r, nil, out)
		return
	case "this":
		if r.this != "" {
			out.write(r.this)
			return
		}
	case "identifier":
		if r.args != "" && nodeText(n, e.src) == "arguments" {
			out.write(r.args)
			return
		}
	case "shorthand_property_identifier":
		if r.args != "" && nodeText(n, e.src) == "arguments" {
			out.write("arguments: " + r.args)
			return
		}
	case "await_expression":
		if r.yield {
			e.renderAwait(n, parent, r, out)
			return
		}
	case "call_expression", "member_expression", "subscript_expression", "non_null_expression":
		if r.yield && !sameNode(chainHead(parent), n) {
			if aw := hoistedAwait(n); aw != nil {
				e.renderHoistedAwait(n, aw, parent, r, out)
				return
			}
		}
	case "field_definition", "public_field_definition":
		value := n.ChildByFieldName("value")
		e.renderChildren(n, out, func(child *sitter.Node, out *code) bool {
			if sameNode(child, value) {
				e.render(child, n, region{}, out)
			} else {
				e.render(child, n, r, out)
			}
			return true
		})
		return
	case "class_static_block":
		e.scopes.Enter()
		defer e.scopes.Exit()
		e.renderChildren(n, out, e.visitWith(n, region{}))
		return
	case kindStatementBlock:
		e.scopes.Enter()
		defer e.scopes.Exit()
	case "template_string":
		e.renderTemplate(n, r, out)
		return
	case "string":
		out.writeRaw(nodeText(n, e.src))
		return
	}
	e.renderChildren(n, out, e.visitWith(n, r))
}

func (e *emitter) visitWith(n *sitter.Node, r region) func(*sitter.Node, *code) bool {
	return func(child *sitter.Node, out *code) bool {
		e.render(child, n, r, out)
		return true
	}
}

// renderChildren copies n's source, handing each child to visit for
// rendering. When visit returns false the child is dropped together with
// the whitespace that follows it.
func (e *emitter) renderChildren(n *sitter.Node, out *code, visit func(*sitter.Node, *code) bool) {
	pos := n.StartByte()
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if start := child.StartByte(); start > pos {
			out.write(string(e.src[pos:start]))
		}
		if visit(child, out) {
			pos = child.EndByte()
			continue
		}
		pos = skipSpace(e.src, child.EndByte())
	}
	if end := n.EndByte(); end > pos {
		out.write(string(e.src[pos:end]))
	}
}

func skipSpace(src []byte, pos uint) uint {
	for int(pos) < len(src) && (src[pos] == ' ' || src[pos] == '\t') {
		pos++
	}
	return pos
}

// renderFunction copies a function that is not rewritten. Its parameters
// and body get a fresh region; drop names a child to omit.
func (e *emitter) renderFunction(n *sitter.Node, r region, drop *sitter.Node, out *code) {
	inner := region{}
	if n.Kind() == kindArrowFunction {
		inner = r.arrow()
	}
	params := n.ChildByFieldName("parameters")
	if params == nil {
		params = n.ChildByFieldName("parameter")
	}
	body := n.ChildByFieldName("body")

	e.scopes.Enter()
	defer e.scopes.Exit()
	e.renderChildren(n, out, func(child *sitter.Node, out *code) bool {
		switch {
		case sameNode(child, drop):
			return false
		case sameNode(child, params), sameNode(child, body):
			e.render(child, n, inner, out)
		default:
			e.render(child, n, r, out)
		}
		return true
	})
}

// renderTemplate keeps literal text raw so re-indenting never changes the
// string value. Substitutions are rendered normally.
func (e *emitter) renderTemplate(n *sitter.Node, r region, out *code) {
	pos := n.StartByte()
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child.Kind() != "template_substitution" {
			continue
		}
		out.writeRaw(string(e.src[pos:child.StartByte()]))
		e.render(child, n, r, out)
		pos = child.EndByte()
	}
	out.writeRaw(string(e.src[pos:n.EndByte()]))
}

func (e *emitter) renderAwait(n, parent *sitter.Node, r region, out *code) {
	count := n.ChildCount()
	if count < 2 {
		e.renderChildren(n, out, e.visitWith(n, r))
		return
	}
	keyword := n.Child(0)
	arg := n.Child(count - 1)

	var inner code
	inner.write("yield")
	inner.write(string(e.src[keyword.EndByte():arg.StartByte()]))
	e.render(arg, n, r, &inner)
	inner.write(string(e.src[arg.EndByte():n.EndByte()]))

	if yieldNeedsParens(parent, n) {
		out.write("(")
		out.append(&inner)
		out.write(")")
		return
	}
	out.append(&inner)
}

// chainHead returns the leftmost operand of a call or member chain link.
func chainHead(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "call_expression":
		return n.ChildByFieldName("function")
	case "member_expression", "subscript_expression":
		return n.ChildByFieldName("object")
	case "non_null_expression":
		if n.ChildCount() > 0 {
			return n.Child(0)
		}
	}
	return nil
}

// hoistedAwait finds an await that the TypeScript grammar placed as the
// callee of a call in n's chain, as in `await f<T>(x).y`. The await
// applies to the whole chain.
func hoistedAwait(n *sitter.Node) *sitter.Node {
	for cur := n; ; {
		head := chainHead(cur)
		if head == nil {
			return nil
		}
		if head.Kind() == "await_expression" {
			if cur.Kind() == "call_expression" {
				return head
			}
			return nil
		}
		cur = head
	}
}

func (e *emitter) renderHoistedAwait(n, aw, parent *sitter.Node, r region, out *code) {
	var inner code
	inner.write("yield")
	if count := aw.ChildCount(); count >= 2 {
		inner.write(string(e.src[aw.Child(0).EndByte():aw.Child(count-1).StartByte()]))
	} else {
		inner.write(" ")
	}
	e.renderUnawaited(n, aw, r, &inner)

	if yieldNeedsParens(parent, n) {
		out.write("(")
		out.append(&inner)
		out.write(")")
		return
	}
	out.append(&inner)
}

// renderUnawaited renders the chain n with aw replaced by its operand.
func (e *emitter) renderUnawaited(n, aw *sitter.Node, r region, out *code) {
	if sameNode(n, aw) {
		if count := aw.ChildCount(); count > 0 {
			e.render(aw.Child(count-1), aw, r, out)
		}
		return
	}
	head := chainHead(n)
	e.renderChildren(n, out, func(child *sitter.Node, out *code) bool {
		if sameNode(child, head) {
			e.renderUnawaited(child, aw, r, out)
		} else {
			e.render(child, n, r, out)
		}
		return true
	})
}

// yieldNeedsParens reports whether a yield expression standing in for child
// must be parenthesized under parent. yield has assignment precedence.
func yieldNeedsParens(parent, child *sitter.Node) bool {
	if parent == nil {
		return true
	}
	switch parent.Kind() {
	case "expression_statement", "return_statement", "throw_statement",
		"variable_declarator", "arguments", "array", "parenthesized_expression",
		"template_substitution", "spread_element", "sequence_expression",
		"computed_property_name", kindArrowFunction:
		return false
	case "assignment_expression", "augmented_assignment_expression", "assignment_pattern":
		return !sameNode(parent.ChildByFieldName("right"), child)
	case "pair":
		return !sameNode(parent.ChildByFieldName("value"), child)
	case "ternary_expression":
		return sameNode(parent.ChildByFieldName("condition"), child)
	case "subscript_expression":
		return !sameNode(parent.ChildByFieldName("index"), child)
	case "switch_case":
		return !sameNode(parent.ChildByFieldName("value"), child)
	}
	return true
}

// renderSite lowers n when it is a supported async function and reports
// whether it did.
func (e *emitter) renderSite(n, parent *sitter.Node, r region, out *code) bool {
	site, status := classify(n, parent, e.src)
	switch status {
	case notSite:
		return false
	case asyncGenerator:
		e.report(UnsupportedAsyncGenerator, n, "async generator functions are not lowered")
		return false
	}

	decision := resolveCapture(site, e.src)
	if kind, at := decision.Blocker(site.Kind); kind != "" {
		e.report(kind, at, blockerMessage(kind, site.Kind))
		return false
	}
	if site.Kind == FunctionDeclaration && (parent == nil || !isStatementContainer(parent.Kind())) {
		e.report(UnsupportedDeclPosition, n, "async function declaration outside a statement list")
		return false
	}

	if e.opts.StripAwaitless && !decision.HasAwait {
		e.renderFunction(n, r, site.Async, out)
		e.stats.Stripped++
		return true
	}

	switch site.Kind {
	case FunctionDeclaration:
		e.emitDeclaration(site, out)
	case FunctionExpression, ArrowFunction:
		e.emitWrapped(site, decision, parent, r, out)
	case ObjectMethod, ClassMethod:
		e.emitMethod(site, decision, r, out)
	}
	if e.err == nil {
		e.stats.Sites[site.Kind]++
	}
	return true
}

func blockerMessage(kind string, form SiteKind) string {
	switch kind {
	case UnsupportedForAwait:
		return "for await loops are not lowered"
	case UnsupportedSuper:
		return fmt.Sprintf("super inside an async %s is not lowered", form)
	case UnsupportedNewTarget:
		return "new.target inside an async arrow is not lowered"
	}
	return kind
}

func (e *emitter) report(kind string, n *sitter.Node, msg string) {
	loc := e.unit.Locate(n)
	e.diags = append(e.diags, Diagnostic{
		Code:    errors.CodeUnsupportedSyntax,
		Kind:    kind,
		Message: msg,
		Line:    loc.Line,
		Column:  loc.Column,
	})
}
