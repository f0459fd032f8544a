package transform

import (
	"fmt"
	"strconv"

	"ngasync/internal/core/errors"
)

const maxNameAttempts = 10000

// Scope is one lexical frame. Names declared in any ancestor are visible.
type Scope struct {
	parent *Scope
	names  map[string]struct{}
	refs   int
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: make(map[string]struct{})}
}

func (s *Scope) Parent() *Scope {
	return s.parent
}

// DeclareExisting records a source-level name in this frame.
func (s *Scope) DeclareExisting(name string) {
	s.names[name] = struct{}{}
}

// Visible reports whether name is declared in this frame or an ancestor.
func (s *Scope) Visible(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.names[name]; ok {
			return true
		}
	}
	return false
}

// FreshName returns base, base1, base2, ... whichever is first not visible,
// and declares it in this frame.
func (s *Scope) FreshName(base string) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = base + strconv.Itoa(i)
		}
		if !s.Visible(candidate) {
			s.names[candidate] = struct{}{}
			return candidate, nil
		}
	}
	return "", errors.AddContext(
		errors.New(errors.CodeNameCollision, fmt.Sprintf("no free name for %q", base)),
		errors.CtxSymbol, base,
	)
}

// FreshRef returns the next reference-holder name from this frame's counter.
// The name is not declared here; the caller declares it in the frame that
// will hold the variable.
func (s *Scope) FreshRef() (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		candidate := "_ref"
		if s.refs > 0 {
			candidate = "_ref" + strconv.Itoa(s.refs)
		}
		s.refs++
		if !s.Visible(candidate) {
			return candidate, nil
		}
	}
	return "", errors.AddContext(
		errors.New(errors.CodeNameCollision, "no free reference holder name"),
		errors.CtxSymbol, "_ref",
	)
}

// Adopt declares an already chosen generated name in this frame.
func (s *Scope) Adopt(name string) {
	s.names[name] = struct{}{}
}

// Tracker is the stack of frames active during a traversal.
type Tracker struct {
	current *Scope
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Enter pushes a child of the current frame and returns it.
func (t *Tracker) Enter() *Scope {
	t.current = newScope(t.current)
	return t.current
}

// Exit pops the current frame.
func (t *Tracker) Exit() {
	if t.current != nil {
		t.current = t.current.parent
	}
}

func (t *Tracker) Current() *Scope {
	return t.current
}
