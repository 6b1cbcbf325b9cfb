package ncx

import (
	"testing"

	"github.com/elinlund/ncx/token"
	"github.com/teleivo/assertive/assert"
)

func parseNoErrors(t *testing.T, src string) *Tree {
	t.Helper()
	tree, errs := Parse(src)
	assert.Equals(t, len(errs), 0, "parse errors for %q: %v", src, errs)
	return tree
}

func TestParserLiterals(t *testing.T) {
	tests := []string{"foo", "42", "3.14", "./foo", "<nixpkgs>"}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			tree := parseNoErrors(t, src)
			assert.That(t, len(tree.Children) > 0, "expected a parsed expression for %q", src)
		})
	}
}

func TestParserAttrSet(t *testing.T) {
	tree := parseNoErrors(t, "{ a = 1; b = 2; }")
	set, ok := TreeFirst(tree, token.AttrSet)
	assert.That(t, ok, "expected an AttrSet")
	var bindings int
	for _, c := range set.Children {
		if tc, ok := c.(TreeChild); ok && tc.Kind() == token.Binding {
			bindings++
		}
	}
	assert.Equals(t, bindings, 2, "binding count")
}

func TestParserRecAttrSet(t *testing.T) {
	tree := parseNoErrors(t, "rec { a = 1; b = a; }")
	set, ok := TreeFirst(tree, token.AttrSet)
	assert.That(t, ok, "expected an AttrSet")
	_, hasRec := TokenFirst(set, token.KwRec)
	assert.That(t, hasRec, "expected a leading rec keyword")
}

func TestParserList(t *testing.T) {
	tree := parseNoErrors(t, "[ 1 2 3 ]")
	list, ok := TreeFirst(tree, token.List)
	assert.That(t, ok, "expected a List")
	var elems int
	for _, c := range list.Children {
		if _, ok := c.(TreeChild); ok {
			elems++
		}
	}
	assert.Equals(t, elems, 3, "element count")
}

func TestParserLambdaSimple(t *testing.T) {
	tree := parseNoErrors(t, "x: x + 1")
	_, ok := TreeFirst(tree, token.Lambda)
	assert.That(t, ok, "expected a Lambda")
}

func TestParserLambdaFormals(t *testing.T) {
	tree := parseNoErrors(t, "{ a, b ? 1, ... }: a + b")
	lam, ok := TreeFirst(tree, token.Lambda)
	assert.That(t, ok, "expected a Lambda")
	formals, ok := TreeFirst(lam, token.Formals)
	assert.That(t, ok, "expected Formals")
	_, hasEllipsis := TokenFirst(formals, token.Ellipsis)
	assert.That(t, hasEllipsis, "expected an ellipsis")
}

func TestParserLambdaVsAttrSetAmbiguity(t *testing.T) {
	lambda := parseNoErrors(t, "{ a }: a")
	_, ok := TreeFirst(lambda, token.Lambda)
	assert.That(t, ok, "{ a }: a must parse as a Lambda")

	set := parseNoErrors(t, "{ a = 1; }")
	_, ok = TreeFirst(set, token.AttrSet)
	assert.That(t, ok, "{ a = 1; } must parse as an AttrSet")
}

func TestParserLetIn(t *testing.T) {
	tree := parseNoErrors(t, "let a = 1; in a")
	_, ok := TreeFirst(tree, token.LetIn)
	assert.That(t, ok, "expected a LetIn")
}

func TestParserIfThenElse(t *testing.T) {
	tree := parseNoErrors(t, "if true then 1 else 2")
	_, ok := TreeFirst(tree, token.IfThenElse)
	assert.That(t, ok, "expected an IfThenElse")
}

func TestParserWithAndAssert(t *testing.T) {
	tree := parseNoErrors(t, "with foo; assert true; 1")
	with, ok := TreeFirst(tree, token.With)
	assert.That(t, ok, "expected a With")
	_, ok = TreeFirst(with, token.Assert)
	assert.That(t, ok, "expected an Assert")
}

func TestParserBinaryPrecedence(t *testing.T) {
	// '+' binds tighter than '->', so this should parse as (1 + 2) -> 3 at the top, with the
	// addition nested as the left operand.
	tree := parseNoErrors(t, "1 + 2 -> 3")
	top, ok := TreeFirst(tree, token.BinOp)
	assert.That(t, ok, "expected a top-level BinOp")
	_, isImplies := TokenFirst(top, token.Implies)
	assert.That(t, isImplies, "top-level operator should be ->")
	nested, ok := TreeFirst(top, token.BinOp)
	assert.That(t, ok, "expected a nested BinOp for the left operand")
	_, isPlus := TokenFirst(nested, token.Plus)
	assert.That(t, isPlus, "nested operator should be +")
}

func TestParserSelectAndHasAttr(t *testing.T) {
	tree := parseNoErrors(t, "a.b.c")
	sel, ok := TreeFirst(tree, token.Select)
	assert.That(t, ok, "expected a Select")
	path, ok := TreeFirst(sel, token.AttrPath)
	assert.That(t, ok, "expected an AttrPath")
	var attrs int
	for _, c := range path.Children {
		if tc, ok := c.(TreeChild); ok && tc.Kind() == token.Attr {
			attrs++
		}
	}
	assert.Equals(t, attrs, 2, "attr count")
}

func TestParserSelectWithDefault(t *testing.T) {
	tree := parseNoErrors(t, "a.b or c")
	sel, ok := TreeFirst(tree, token.Select)
	assert.That(t, ok, "expected a Select")
	_, hasOr := TokenFirst(sel, token.KwOr)
	assert.That(t, hasOr, "expected an or keyword")
}

func TestParserApplication(t *testing.T) {
	tree := parseNoErrors(t, "f a b")
	apply, ok := TreeFirst(tree, token.Apply)
	assert.That(t, ok, "expected an Apply")
	_, ok = TreeFirst(apply, token.Apply)
	assert.That(t, ok, "application should be left-associative")
}

func TestParserStringWithInterpolation(t *testing.T) {
	tree := parseNoErrors(t, `"hello ${name}!"`)
	str, ok := TreeFirst(tree, token.Str)
	assert.That(t, ok, "expected a Str")
	_, ok = TreeFirst(str, token.Interpolation)
	assert.That(t, ok, "expected an Interpolation")
}

func TestParserIndentedString(t *testing.T) {
	tree := parseNoErrors(t, "''\n  hello\n''")
	_, ok := TreeFirst(tree, token.IndentedStr)
	assert.That(t, ok, "expected an IndentedStr")
}

func TestParserInherit(t *testing.T) {
	tree := parseNoErrors(t, "{ inherit a b; inherit (x) c; }")
	set, ok := TreeFirst(tree, token.AttrSet)
	assert.That(t, ok, "expected an AttrSet")
	var inherits int
	for _, c := range set.Children {
		if tc, ok := c.(TreeChild); ok && tc.Kind() == token.Inherit {
			inherits++
		}
	}
	assert.Equals(t, inherits, 2, "inherit count")
}

func TestParserRecoversFromErrors(t *testing.T) {
	_, errs := Parse("{ a = ; }")
	assert.That(t, len(errs) > 0, "expected parse errors for malformed binding")
}

func TestParserLosslessRoundTrip(t *testing.T) {
	src := "{ a = 1; # comment\n  b = [ 1 2 ]; }"
	tree := parseNoErrors(t, src)
	var buf []byte
	for tok := range WalkTokens(tree) {
		buf = append(buf, tok.Literal...)
	}
	assert.Equals(t, string(buf), src, "concatenating every token's literal must reproduce the source")
}
