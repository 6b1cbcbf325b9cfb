// Package ncx provides a lossless concrete syntax tree (CST) for a lazily evaluated, functional
// configuration language, together with the scanner and recursive-descent parser that build it.
//
// Every byte of the input is represented somewhere in the tree: significant tokens, insignificant
// whitespace and comments all appear as [token.Token] leaves. This losslessness is what lets the
// formatter in package format rewrite only whitespace while leaving every other byte untouched.
package ncx

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/elinlund/ncx/token"
)

// Format specifies the output representation for rendering a [Tree].
type Format int

const (
	// Default renders the tree as indented text annotated with byte ranges.
	Default Format = iota
	// JSON renders the tree as a nested JSON document, used by `--parse --output-format json`.
	JSON
)

var formats = map[string]Format{
	"default": Default,
	"json":    JSON,
}

var validFormats = [...]string{"default", "json"}

// NewFormat converts a string to a [Format] constant. Valid values are "default" and "json".
func NewFormat(format string) (Format, error) {
	if f, ok := formats[format]; ok {
		return f, nil
	}
	return Default, fmt.Errorf("invalid format string: %q, valid ones are: %q", format, validFormats)
}

// Tree is a node in the concrete syntax tree.
//
// Kind identifies the syntactic construct (e.g. [token.AttrSet], [token.Lambda], [token.IdentNode]).
// Children holds the node's children in source order, each either a [TreeChild] (subtree) or a
// [TokenChild] (leaf). Start and End are byte offsets into the original source text.
//
// Parent points back to the owning node, or nil for the root. This back-pointer is what lets
// [Element] answer "what contains this element" and "what is this element's indent anchor" without
// threading an explicit path through every traversal; it is set once, when the child is appended,
// and never mutated afterwards.
type Tree struct {
	Kind       token.Kind
	Children   []Child
	Parent     *Tree
	Start, End int
}

// Child is a marker interface for tree node children. Implementations are [TreeChild] and
// [TokenChild].
type Child interface {
	child()
	Kind() token.Kind
	Start() int
	End() int
}

// TreeChild wraps a [Tree] as a child of another tree node.
type TreeChild struct {
	*Tree
}

func (TreeChild) child() {}

// Kind returns the wrapped tree's kind.
func (c TreeChild) Kind() token.Kind { return c.Tree.Kind }

// Start returns the wrapped tree's start offset.
func (c TreeChild) Start() int { return c.Tree.Start }

// End returns the wrapped tree's end offset.
func (c TreeChild) End() int { return c.Tree.End }

// TokenChild wraps a [token.Token] as a child of a tree node.
type TokenChild struct {
	token.Token
}

func (TokenChild) child() {}

// Kind returns the wrapped token's kind.
func (c TokenChild) Kind() token.Kind { return c.Token.Kind }

// Start returns the wrapped token's start offset.
func (c TokenChild) Start() int { return c.Token.Start }

// End returns the wrapped token's end offset.
func (c TokenChild) End() int { return c.Token.End }

func (tree *Tree) appendToken(tok token.Token) {
	if len(tree.Children) == 0 {
		tree.Start = tok.Start
	}
	tree.End = tok.End
	tree.Children = append(tree.Children, TokenChild{tok})
}

// appendTree appends child, wiring up the parent back-pointer. A nil child is a no-op, which keeps
// call sites that build an optional subtree simple.
func (tree *Tree) appendTree(child *Tree) {
	if child == nil {
		return
	}
	// Leading trivia is moved up to the parent, so a child node starts at its first significant
	// token and the trivia before it is a sibling of the node rather than its first child.
	for len(child.Children) > 1 {
		tc, ok := child.Children[0].(TokenChild)
		if !ok || !tc.Kind().IsTrivia() {
			break
		}
		tree.appendToken(tc.Token)
		child.Children = child.Children[1:]
		child.Start = child.Children[0].Start()
	}
	if len(tree.Children) == 0 {
		tree.Start = child.Start
	}
	tree.End = child.End
	child.Parent = tree
	tree.Children = append(tree.Children, TreeChild{child})
}

// String returns the tree rendered using the [Default] format.
func (tree *Tree) String() string {
	if tree == nil {
		return ""
	}
	var sb strings.Builder
	_ = tree.Render(&sb, Default)
	return sb.String()
}

// Render writes tree to w in the given format. It backs the `--parse` CLI mode and is handy when
// debugging rules interactively.
func (tree *Tree) Render(w io.Writer, format Format) error {
	if tree == nil {
		return nil
	}
	switch format {
	case Default:
		bw := bufio.NewWriter(w)
		if err := renderDefault(bw, tree, 0); err != nil {
			return err
		}
		return bw.Flush()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(dumpTree(tree))
	default:
		panic(fmt.Errorf("rendering tree in format %q is not implemented", format))
	}
}

func renderDefault(bw *bufio.Writer, tree *Tree, indent int) error {
	if _, err := fmt.Fprintf(bw, "%s%s [%d; %d)\n", strings.Repeat("  ", indent), tree.Kind, tree.Start, tree.End); err != nil {
		return err
	}
	for _, child := range tree.Children {
		switch c := child.(type) {
		case TokenChild:
			if _, err := fmt.Fprintf(bw, "%s%s %q [%d; %d)\n", strings.Repeat("  ", indent+1), c.Kind(), c.Literal, c.Start(), c.End()); err != nil {
				return err
			}
		case TreeChild:
			if err := renderDefault(bw, c.Tree, indent+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// dumpNode is the JSON shape of a tree node or token, used only by [Tree.Render] in [JSON] format.
type dumpNode struct {
	Kind     string     `json:"kind"`
	Start    int        `json:"start"`
	End      int        `json:"end"`
	Literal  string     `json:"literal,omitempty"`
	Children []dumpNode `json:"children,omitempty"`
}

func dumpTree(tree *Tree) dumpNode {
	n := dumpNode{Kind: tree.Kind.String(), Start: tree.Start, End: tree.End}
	for _, child := range tree.Children {
		switch c := child.(type) {
		case TokenChild:
			n.Children = append(n.Children, dumpNode{Kind: c.Kind().String(), Start: c.Start(), End: c.End(), Literal: c.Literal})
		case TreeChild:
			n.Children = append(n.Children, dumpTree(c.Tree))
		}
	}
	return n
}

// Element is a cursor over a single position in the concrete syntax tree: either a node or a token,
// together with enough context to navigate to its parent and siblings. It plays the same role a
// red/green syntax node plays in a lossless-parser library: the tree itself (green) is an immutable,
// shared structure, while Element (red) is a lightweight, freely constructed view used while
// formatting.
type Element struct {
	tree   *Tree
	tok    token.Token
	isTok  bool
	parent *Tree
}

// NewElement returns the Element for the root of tree.
func NewElement(tree *Tree) Element {
	return Element{tree: tree, parent: tree.Parent}
}

func elementFromChild(parent *Tree, child Child) Element {
	switch c := child.(type) {
	case TreeChild:
		return Element{tree: c.Tree, parent: parent}
	case TokenChild:
		return Element{tok: c.Token, isTok: true, parent: parent}
	}
	panic(fmt.Sprintf("unreachable: unknown Child implementation %T", child))
}

// IsToken reports whether e is a token leaf.
func (e Element) IsToken() bool { return e.isTok }

// IsTree reports whether e is a subtree.
func (e Element) IsTree() bool { return !e.isTok }

// Tree returns the underlying subtree and true, or the zero value and false if e is a token.
func (e Element) Tree() (*Tree, bool) {
	if e.isTok {
		return nil, false
	}
	return e.tree, true
}

// Token returns the underlying token and true, or the zero value and false if e is a subtree.
func (e Element) Token() (token.Token, bool) {
	if !e.isTok {
		return token.Token{}, false
	}
	return e.tok, true
}

// Kind returns the syntactic kind of e.
func (e Element) Kind() token.Kind {
	if e.isTok {
		return e.tok.Kind
	}
	return e.tree.Kind
}

// Start returns the byte offset where e begins.
func (e Element) Start() int {
	if e.isTok {
		return e.tok.Start
	}
	return e.tree.Start
}

// End returns the byte offset where e ends.
func (e Element) End() int {
	if e.isTok {
		return e.tok.End
	}
	return e.tree.End
}

// Text returns the verbatim source text of e when e is a token. Subtrees do not carry their source
// text directly; callers needing it should slice the original source by [Element.Start] and
// [Element.End].
func (e Element) Text() (string, bool) {
	if !e.isTok {
		return "", false
	}
	return e.tok.Literal, true
}

// Parent returns e's parent, or false if e is the root.
func (e Element) Parent() (Element, bool) {
	if e.parent == nil {
		return Element{}, false
	}
	return NewElement(e.parent), true
}

// Ancestors yields e's ancestors, nearest first, up to and including the root.
func (e Element) Ancestors() iter.Seq[Element] {
	return func(yield func(Element) bool) {
		cur, ok := e.Parent()
		for ok {
			if !yield(cur) {
				return
			}
			cur, ok = cur.Parent()
		}
	}
}

// indexInParent finds e's position among its parent's children. Elements are constructed freely
// (from traversal, or directly from a Tree pointer) rather than carrying an index, so sibling lookup
// recomputes it on demand; parent child lists are small enough that a linear scan is cheap and keeps
// Element itself trivial to construct and compare.
func (e Element) indexInParent() int {
	if e.parent == nil {
		return -1
	}
	for i, c := range e.parent.Children {
		if e.isTok {
			if tc, ok := c.(TokenChild); ok && tc.Start() == e.tok.Start && tc.Kind() == e.tok.Kind {
				return i
			}
		} else if tc, ok := c.(TreeChild); ok && tc.Tree == e.tree {
			return i
		}
	}
	return -1
}

// PrevSiblingOrToken returns the element immediately preceding e among its parent's children.
func (e Element) PrevSiblingOrToken() (Element, bool) {
	if e.parent == nil {
		return Element{}, false
	}
	idx := e.indexInParent()
	if idx <= 0 {
		return Element{}, false
	}
	return elementFromChild(e.parent, e.parent.Children[idx-1]), true
}

// NextSiblingOrToken returns the element immediately following e among its parent's children.
func (e Element) NextSiblingOrToken() (Element, bool) {
	if e.parent == nil {
		return Element{}, false
	}
	idx := e.indexInParent()
	if idx < 0 || idx+1 >= len(e.parent.Children) {
		return Element{}, false
	}
	return elementFromChild(e.parent, e.parent.Children[idx+1]), true
}

// FirstChild returns the first child element of e, or false if e is a token or has no children.
func (e Element) FirstChild() (Element, bool) {
	if e.isTok || len(e.tree.Children) == 0 {
		return Element{}, false
	}
	return elementFromChild(e.tree, e.tree.Children[0]), true
}

// LastChild returns the last child element of e, or false if e is a token or has no children.
func (e Element) LastChild() (Element, bool) {
	if e.isTok || len(e.tree.Children) == 0 {
		return Element{}, false
	}
	return elementFromChild(e.tree, e.tree.Children[len(e.tree.Children)-1]), true
}

// HasNewline reports whether e (if a token) or any token reachable from e (if a subtree) contains a
// newline in its literal text.
func HasNewline(e Element) bool {
	if e.isTok {
		return strings.Contains(e.tok.Literal, "\n")
	}
	for tok := range WalkTokens(e.tree) {
		if strings.Contains(tok.Literal, "\n") {
			return true
		}
	}
	return false
}
