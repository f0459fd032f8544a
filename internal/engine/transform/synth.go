package transform

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// lazyCell is a hidden function that replaces its own binding with the
// wrapped generator the first time it is called.
type lazyCell struct {
	name   string
	helper string
	gen    *code
}

func (c lazyCell) render(out *code, base, unit, nl string) {
	out.write("function " + c.name + "() {")
	out.write(nl + base + unit + c.name + " = " + c.helper + "(")
	out.append(c.gen)
	out.write(");")
	out.write(nl + base + unit + "return " + c.name + ".apply(this, arguments);")
	out.write(nl + base + "}")
}

// generator renders `function* PARAMS BODY` for site, indented one level
// deeper than the line the site starts on.
func (e *emitter) generator(site Site, inner region, base string, withParams bool) *code {
	var g code
	g.write("function* ")
	if withParams {
		if site.Types != nil {
			g.write(nodeText(site.Types, e.src))
		}
		e.renderParams(site, inner, &g)
	} else {
		g.write("()")
	}
	g.write(" ")
	e.renderBody(site, inner, base, &g)
	return g.shift(e.indent)
}

func (e *emitter) renderParams(site Site, inner region, out *code) {
	switch {
	case site.Params == nil:
		out.write("()")
	case site.Params.Kind() == "formal_parameters":
		e.render(site.Params, site.Node, inner, out)
	default:
		out.write("(")
		e.render(site.Params, site.Node, inner, out)
		out.write(")")
	}
}

func (e *emitter) renderBody(site Site, inner region, base string, out *code) {
	if site.Body.Kind() == kindStatementBlock {
		e.render(site.Body, site.Node, inner, out)
		return
	}
	out.write("{" + e.nl + base + e.indent + "return ")
	e.render(site.Body, site.Node, inner, out)
	out.write(";" + e.nl + base + "}")
}

// emitDeclaration replaces an async function declaration with a stub that
// forwards to a lazily initialized hidden helper declared right after it.
// Both are hoisted, so the stub is callable before its position.
func (e *emitter) emitDeclaration(site Site, out *code) {
	helper, err := e.scopes.Current().FreshName("_"+site.Name)
	if err != nil {
		e.fail(err)
		return
	}
	base := lineIndent(e.src, site.Node.StartByte())
	unit, nl := e.indent, e.nl

	e.scopes.Enter()
	gen := e.generator(site, region{yield: true}, base, true)
	e.scopes.Exit()

	if sig, ok := e.declarationSignature(site); ok {
		out.write("function " + sig + ";")
		out.write(nl + base + exportPrefix(site.Node, e.src))
	}
	out.write("function " + site.Name + "() {")
	out.write(nl + base + unit + "return " + helper + ".apply(this, arguments);")
	out.write(nl + base + "}")
	out.write(nl + base)
	lazyCell{name: helper, helper: e.opts.HelperName, gen: gen}.render(out, base, unit, nl)
}

// declarationSignature returns the overload signature that keeps a lowered
// declaration's public type in TypeScript units. Initializers become
// optional markers. It reports false when a parameter cannot be expressed
// in a signature.
func (e *emitter) declarationSignature(site Site) (string, bool) {
	if lang := e.unit.Language; lang != "typescript" && lang != "tsx" {
		return "", false
	}
	if site.Params == nil || site.Params.Kind() != "formal_parameters" {
		return "", false
	}
	var params []string
	for i := uint(0); i < site.Params.NamedChildCount(); i++ {
		p := site.Params.NamedChild(i)
		if isComment(p) {
			continue
		}
		if p.ChildByFieldName("value") == nil {
			params = append(params, nodeText(p, e.src))
			continue
		}
		pattern := p.ChildByFieldName("pattern")
		if pattern == nil || pattern.Kind() != "identifier" {
			return "", false
		}
		param := nodeText(pattern, e.src) + "?"
		if typ := p.ChildByFieldName("type"); typ != nil {
			param += nodeText(typ, e.src)
		}
		params = append(params, param)
	}

	sig := site.Name
	if site.Types != nil {
		sig += nodeText(site.Types, e.src)
	}
	sig += "(" + strings.Join(params, ", ") + ")"
	if ret := site.Node.ChildByFieldName("return_type"); ret != nil {
		sig += nodeText(ret, e.src)
	}
	return sig, true
}

// exportPrefix returns the `export` or `export default` text in front of
// an exported declaration. Overloads must share it.
func exportPrefix(n *sitter.Node, src []byte) string {
	parent := n.Parent()
	if parent == nil || parent.Kind() != "export_statement" {
		return ""
	}
	return string(src[parent.StartByte():n.StartByte()])
}

// emitWrapped replaces an async function expression or arrow with an
// immediately invoked wrapper that builds the driver once and returns a
// forwarding function.
func (e *emitter) emitWrapped(site Site, d CaptureDecision, parent *sitter.Node, r region, out *code) {
	ref, err := e.scopes.Current().FreshRef()
	if err != nil {
		e.fail(err)
		return
	}
	frame := e.scopes.Enter()
	defer e.scopes.Exit()
	frame.Adopt(ref)
	e.stats.GeneratedRefs++

	inner := region{yield: true}
	var params, args []string
	if site.Kind == ArrowFunction {
		if d.NeedsThis {
			alias, err := frame.FreshName("_this")
			if err != nil {
				e.fail(err)
				return
			}
			params = append(params, alias)
			args = append(args, r.thisExpr())
			inner.this = alias
			e.stats.ThisCaptures++
		}
		if d.NeedsArguments {
			alias, err := frame.FreshName("_arguments")
			if err != nil {
				e.fail(err)
				return
			}
			params = append(params, alias)
			args = append(args, r.argsExpr())
			inner.args = alias
			e.stats.ArgsCaptures++
		}
	}

	base := lineIndent(e.src, site.Node.StartByte())
	unit, nl := e.indent, e.nl
	gen := e.generator(site, inner, base, true)

	if e.needsASIGuard(site.Node, parent) {
		out.write(";")
	}
	out.write("(function (" + strings.Join(params, ", ") + ") {")
	out.write(nl + base + unit + "var " + ref + " = " + e.opts.HelperName + "(")
	out.append(gen)
	out.write(");")
	if site.Kind == FunctionExpression && site.Name != "" {
		out.write(nl + base + unit + "function " + site.Name + "() {")
		out.write(nl + base + unit + unit + "return " + ref + ".apply(this, arguments);")
		out.write(nl + base + unit + "}")
		out.write(nl + base + unit + "return " + site.Name + ";")
	} else {
		out.write(nl + base + unit + "return function () {")
		out.write(nl + base + unit + unit + "return " + ref + ".apply(" + inner.thisExpr() + ", arguments);")
		out.write(nl + base + unit + "};")
	}
	out.write(nl + base + "})(" + strings.Join(args, ", ") + ")")
}

// needsASIGuard reports whether a wrapper starting with `(` would join the
// previous statement in the same statement list.
func (e *emitter) needsASIGuard(n, parent *sitter.Node) bool {
	if parent == nil || parent.Kind() != "expression_statement" || parent.StartByte() != n.StartByte() {
		return false
	}
	list := parent.Parent()
	if list == nil || !isStatementContainer(list.Kind()) {
		return false
	}
	prev := parent.PrevSibling()
	for prev != nil && isComment(prev) {
		prev = prev.PrevSibling()
	}
	if prev == nil {
		return false
	}
	return !endsStatement(e.src, codeEnd(prev))
}

func isComment(n *sitter.Node) bool {
	return strings.HasSuffix(n.Kind(), "comment")
}

// codeEnd returns the end of the last token of n that is not a comment.
// The grammar can attach a trailing comment inside a statement.
func codeEnd(n *sitter.Node) uint {
	for n.ChildCount() > 0 {
		var last *sitter.Node
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			c := n.Child(uint(i))
			if !isComment(c) && c.EndByte() > c.StartByte() {
				last = c
				break
			}
		}
		if last == nil {
			break
		}
		n = last
	}
	return n.EndByte()
}

// emitMethod keeps the method and its parameters and turns the body into a
// direct call of the wrapped generator.
func (e *emitter) emitMethod(site Site, d CaptureDecision, r region, out *code) {
	frame := e.scopes.Enter()
	defer e.scopes.Exit()

	inner := region{yield: true}
	var prologue []string
	if d.NeedsThis {
		alias, err := frame.FreshName("_this")
		if err != nil {
			e.fail(err)
			return
		}
		prologue = append(prologue, "var "+alias+" = this;")
		inner.this = alias
		e.stats.ThisCaptures++
	}
	if d.NeedsArguments {
		alias, err := frame.FreshName("_arguments")
		if err != nil {
			e.fail(err)
			return
		}
		prologue = append(prologue, "var "+alias+" = arguments;")
		inner.args = alias
		e.stats.ArgsCaptures++
	}

	base := lineIndent(e.src, site.Node.StartByte())
	unit, nl := e.indent, e.nl
	gen := e.generator(site, inner, base, false)

	e.renderChildren(site.Node, out, func(child *sitter.Node, out *code) bool {
		switch {
		case sameNode(child, site.Async):
			return false
		case sameNode(child, site.Body):
			out.write("{")
			for _, line := range prologue {
				out.write(nl + base + unit + line)
			}
			out.write(nl + base + unit + "return " + e.opts.HelperName + "(")
			out.append(gen)
			out.write(")();")
			out.write(nl + base + "}")
		case sameNode(child, site.Params):
			e.render(child, site.Node, region{}, out)
		default:
			e.render(child, site.Node, r, out)
		}
		return true
	})
}
