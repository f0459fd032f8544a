package parser

import (
	"fmt"

	"ngasync/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Unit is one parsed compilation unit.
type Unit struct {
	Path     string
	Language string
	Source   []byte
	Tree     *sitter.Tree
}

type Location struct {
	File   string
	Line   int
	Column int
}

func (u *Unit) Root() *sitter.Node {
	if u == nil || u.Tree == nil {
		return nil
	}
	return u.Tree.RootNode()
}

func (u *Unit) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(u.Source[n.StartByte():n.EndByte()])
}

// Locate returns the 1-based location of n.
func (u *Unit) Locate(n *sitter.Node) Location {
	pos := n.StartPosition()
	return Location{File: u.Path, Line: int(pos.Row) + 1, Column: int(pos.Column) + 1}
}

// SyntaxError reports the first ERROR or MISSING node, or nil for a clean tree.
func (u *Unit) SyntaxError() error {
	root := u.Root()
	if root == nil {
		return errors.New(errors.CodeParse, "empty tree")
	}
	if !root.HasError() {
		return nil
	}
	bad := firstErrorNode(root)
	if bad == nil {
		bad = root
	}
	loc := u.Locate(bad)
	msg := "syntax error"
	if bad.IsMissing() {
		msg = fmt.Sprintf("missing %s", bad.Kind())
	}
	err := errors.New(errors.CodeParse, msg)
	err = errors.AddContext(err, errors.CtxPath, u.Path)
	return errors.AddContext(err, errors.CtxLine, fmt.Sprintf("%d:%d", loc.Line, loc.Column))
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func (u *Unit) Close() {
	if u != nil && u.Tree != nil {
		u.Tree.Close()
		u.Tree = nil
	}
}
