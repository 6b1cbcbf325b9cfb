package ncx

import (
	"iter"

	"github.com/elinlund/ncx/token"
)

// Walk yields every element of the tree rooted at root in pre-order: a node is yielded before its
// children, tokens are yielded in source order alongside sibling nodes. Whitespace and comment
// tokens are included.
func Walk(root *Tree) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		walk(root, yield)
	}
}

func walk(tree *Tree, yield func(Element) bool) bool {
	if !yield(NewElement(tree)) {
		return false
	}
	for _, child := range tree.Children {
		switch c := child.(type) {
		case TreeChild:
			if !walk(c.Tree, yield) {
				return false
			}
		case TokenChild:
			if !yield(elementFromChild(tree, c)) {
				return false
			}
		}
	}
	return true
}

// WalkTokens yields every token reachable from tree, in source order, including whitespace and
// comments.
func WalkTokens(tree *Tree) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		for e := range Walk(tree) {
			if tok, ok := e.Token(); ok {
				if !yield(tok) {
					return
				}
			}
		}
	}
}

// WalkNonTrivia is like [Walk] but skips whitespace and comment tokens. The spacing phase drives
// its element loop from this, since trivia carries no syntactic meaning of its own;
// it is only ever the subject of an edit, never the anchor for one.
func WalkNonTrivia(root *Tree) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		walk(root, func(e Element) bool {
			if e.IsToken() && e.Kind().IsTrivia() {
				return true
			}
			return yield(e)
		})
	}
}

// WalkSkipInterpolations is like [Walk], including trivia, except it does not descend into the
// children of an [token.Interpolation] node. The indentation phase uses it so that it never
// re-indents the inside of a nested `${ expr }` as part of the enclosing string literal.
func WalkSkipInterpolations(root *Tree) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		walkSkipInterpolations(root, yield)
	}
}

func walkSkipInterpolations(tree *Tree, yield func(Element) bool) bool {
	if !yield(NewElement(tree)) {
		return false
	}
	if tree.Kind == token.Interpolation {
		return true
	}
	for _, child := range tree.Children {
		switch c := child.(type) {
		case TreeChild:
			if !walkSkipInterpolations(c.Tree, yield) {
				return false
			}
		case TokenChild:
			if !yield(elementFromChild(tree, c)) {
				return false
			}
		}
	}
	return true
}

// NextNonTrivia returns the next sibling of e that is not whitespace or a comment, skipping over
// any trivia in between.
func NextNonTrivia(e Element) (Element, bool) {
	cur, ok := e.NextSiblingOrToken()
	for ok {
		if !(cur.IsToken() && cur.Kind().IsTrivia()) {
			return cur, true
		}
		cur, ok = cur.NextSiblingOrToken()
	}
	return Element{}, false
}

// PrevNonTrivia returns the previous sibling of e that is not whitespace or a comment, skipping
// over any trivia in between.
func PrevNonTrivia(e Element) (Element, bool) {
	cur, ok := e.PrevSiblingOrToken()
	for ok {
		if !(cur.IsToken() && cur.Kind().IsTrivia()) {
			return cur, true
		}
		cur, ok = cur.PrevSiblingOrToken()
	}
	return Element{}, false
}

// TreeFirst returns the first child tree of kind want, skipping trivia.
func TreeFirst(tree *Tree, want token.Kind) (*Tree, bool) {
	for _, child := range tree.Children {
		if c, ok := child.(TreeChild); ok && c.Kind() == want {
			return c.Tree, true
		}
	}
	return nil, false
}

// TreeLast returns the last child tree of kind want, skipping trivia.
func TreeLast(tree *Tree, want token.Kind) (*Tree, bool) {
	for i := len(tree.Children) - 1; i >= 0; i-- {
		if c, ok := tree.Children[i].(TreeChild); ok && c.Kind() == want {
			return c.Tree, true
		}
	}
	return nil, false
}

// TokenFirst returns the first child token of kind want, skipping trivia.
func TokenFirst(tree *Tree, want token.Kind) (token.Token, bool) {
	for _, child := range tree.Children {
		if c, ok := child.(TokenChild); ok && c.Kind() == want {
			return c.Token, true
		}
	}
	return token.Token{}, false
}

// TokenLast returns the last child token of kind want, skipping trivia.
func TokenLast(tree *Tree, want token.Kind) (token.Token, bool) {
	for i := len(tree.Children) - 1; i >= 0; i-- {
		if c, ok := tree.Children[i].(TokenChild); ok && c.Kind() == want {
			return c.Token, true
		}
	}
	return token.Token{}, false
}
