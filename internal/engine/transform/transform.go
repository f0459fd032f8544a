// Package transform lowers async functions in JavaScript and TypeScript
// sources into generator functions driven by an external runtime helper.
package transform

import (
	"fmt"

	"ngasync/internal/core/errors"
	"ngasync/internal/engine/parser"
)

// DefaultHelperName is the runtime function that drives lowered generators.
const DefaultHelperName = "_ngAsyncToGenerator"

type Options struct {
	// HelperName is referenced, never defined, by the output.
	HelperName string
	// StripAwaitless lowers an async function that never awaits by dropping
	// its async keyword instead of wrapping it.
	StripAwaitless bool
}

func (o Options) withDefaults() Options {
	if o.HelperName == "" {
		o.HelperName = DefaultHelperName
	}
	return o
}

// Diagnostic describes an async function left untouched.
type Diagnostic struct {
	Code    errors.ErrorCode
	Kind    string
	Message string
	Line    int
	Column  int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s (%s)", d.Line, d.Column, d.Message, d.Kind)
}

// Stats counts rewritten sites by form.
type Stats struct {
	Sites         map[SiteKind]int
	Stripped      int
	ThisCaptures  int
	ArgsCaptures  int
	GeneratedRefs int
}

func (s Stats) Total() int {
	total := s.Stripped
	for _, n := range s.Sites {
		total += n
	}
	return total
}

type Result struct {
	Code        []byte
	Diagnostics []Diagnostic
	Stats       Stats
}

// Changed reports whether any site was rewritten.
func (r *Result) Changed() bool {
	return r.Stats.Total() > 0
}

// Process rewrites every supported async function in unit. A unit with
// syntax errors is rejected with a PARSE_ERROR and nothing is rewritten.
func Process(unit *parser.Unit, opts Options) (*Result, error) {
	if unit == nil || unit.Root() == nil {
		return nil, errors.New(errors.CodeValidationError, "nil unit")
	}
	if err := unit.SyntaxError(); err != nil {
		return nil, err
	}

	e := newEmitter(unit, opts.withDefaults())
	out, err := e.run()
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, unit.Path)
	}
	return &Result{
		Code:        []byte(out),
		Diagnostics: e.diags,
		Stats:       e.stats,
	}, nil
}

// Source parses content with p and rewrites it.
func Source(p *parser.Parser, path string, content []byte, opts Options) (*Result, error) {
	unit, err := p.Parse(path, content)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	return Process(unit, opts)
}
