// Package rules holds the concrete spacing and indentation rules for the language, built from
// internal/dsl's fluent builders. The catalogs are pure data: internal/engine walks a tree and
// consults them, never the other way around.
package rules

import (
	"sync"

	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/dsl"
	"github.com/elinlund/ncx/internal/pattern"
	"github.com/elinlund/ncx/token"
)

// hasPrecedingElement reports whether e has a sibling-or-token before it that isn't an opening
// bracket. Whitespace and comments count as preceding siblings too.
func hasPrecedingElement(e ncx.Element) bool {
	sib, ok := e.PrevSiblingOrToken()
	if !ok {
		return false
	}
	switch sib.Kind() {
	case token.LeftBracket, token.LeftBrace, token.LeftParen:
		return false
	}
	return true
}

// listElementKinds are the node kinds parseList/parseSelect can actually produce as a direct list
// child. Lambdas are parsed only from parseExpr, never from parsePrimary, so an unparenthesized
// lambda can never appear here; nixpkgs-fmt's own LIST_ELEMENTS set includes one because rnix's
// grammar differs at that point.
var listElementKinds = []token.Kind{
	token.IdentNode, token.Literal, token.Str, token.IndentedStr,
	token.ParenExpr, token.List, token.AttrSet, token.Select, token.HasAttr,
}

// entryOwnerKinds are the node kinds that directly contain bindings and inherit clauses.
var entryOwnerKinds = []token.Kind{token.AttrSet, token.LetIn}

func spacingDsl() *dsl.SpacingDsl {
	d := &dsl.SpacingDsl{}

	// Bindings: `attr = value;`.
	d.Inside(pattern.Of(token.Binding)).Around(pattern.Of(token.Equals)).
		Named("binding-equals").
		Example("{ foo=1; }", "{ foo = 1; }").
		SingleSpace()
	d.Inside(pattern.Of(token.Binding)).Before(pattern.Of(token.Semicolon)).
		Named("binding-semicolon").NoSpace()

	// Inherit: `inherit (src) a b c;`.
	d.Inside(pattern.Of(token.Inherit)).Before(pattern.Of(token.Semicolon)).
		Named("inherit-semicolon").NoSpace()
	d.Inside(pattern.Of(token.Inherit)).Before(pattern.Of(token.LeftParen)).
		Named("inherit-paren-before").SingleSpace()
	d.Inside(pattern.Of(token.Inherit)).After(pattern.Of(token.LeftParen)).
		Named("inherit-paren-open").NoSpace()
	d.Inside(pattern.Of(token.Inherit)).Before(pattern.Of(token.RightParen)).
		Named("inherit-paren-close").NoSpace()
	d.Inside(pattern.Of(token.Inherit)).After(pattern.Of(token.RightParen)).
		Named("inherit-paren-after").SingleSpace()
	d.Inside(pattern.Of(token.Inherit)).Before(pattern.FromPred(hasPrecedingElement)).
		Named("inherit-name-gap").SingleSpaceOrNewline()

	// Infix operators, every precedence level.
	d.Inside(pattern.Of(token.BinOp)).Around(pattern.OfKinds(
		token.Implies, token.Or, token.And,
		token.Eq, token.NotEq, token.Less, token.LessEq, token.Greater, token.GreaterEq,
		token.Update, token.Plus, token.Minus, token.Star, token.Slash, token.Concat,
	)).Named("binop-operator").
		Example("1+1", "1 + 1").
		SingleSpace()

	// Unary negation and boolean not never take a space before their operand.
	d.Inside(pattern.Of(token.UnaryOp)).After(pattern.OfKinds(token.Minus, token.Not)).
		Named("unary-operator").NoSpace()

	// `a ? b`, both as a has-attr test and as a formal's default value.
	d.Inside(pattern.Of(token.HasAttr)).Around(pattern.Of(token.Question)).
		Named("has-attr-question").SingleSpace()
	d.Inside(pattern.Of(token.Formal)).Around(pattern.Of(token.Question)).
		Named("formal-default-question").SingleSpace()

	// `a.b.c`, `a.b or c`.
	d.Inside(pattern.Of(token.Select)).Around(pattern.Of(token.Dot)).
		Named("select-dot").NoSpace()
	d.Inside(pattern.Of(token.AttrPath)).Around(pattern.Of(token.Dot)).
		Named("attrpath-dot").NoSpace()
	d.Inside(pattern.Of(token.Select)).Before(pattern.Of(token.KwOr)).
		Named("select-or-before").SingleSpace()
	d.Inside(pattern.Of(token.Select)).After(pattern.Of(token.KwOr)).
		Named("select-or-after").SingleSpace()

	// Lambdas: `x: body`, `{ a, b }@args: body`, `args@{ a, b }: body`.
	d.Inside(pattern.Of(token.Lambda)).Before(pattern.Of(token.Colon)).
		Named("lambda-colon-before").NoSpace()
	d.Inside(pattern.Of(token.Lambda)).After(pattern.Of(token.Colon)).
		Named("lambda-colon-after").
		Example("{ x }:x+1", "{ x }: x + 1").
		SingleSpaceOrNewline()
	d.Inside(pattern.Of(token.Lambda)).Around(pattern.Of(token.At)).
		Named("lambda-at").NoSpace()

	// Formal parameter lists.
	d.Inside(pattern.Of(token.Formals)).After(pattern.Of(token.LeftBrace)).
		Named("formals-open").SingleSpaceOrNewline()
	d.Inside(pattern.Of(token.Formals)).Before(pattern.Of(token.RightBrace)).
		Named("formals-close").SingleSpaceOrNewline()
	d.Inside(pattern.Of(token.Formals)).Before(pattern.Of(token.Comma)).
		Named("formals-comma-before").NoSpace()
	d.Inside(pattern.Of(token.Formals)).After(pattern.Of(token.Comma)).
		Named("formals-comma-after").SingleSpaceOrNewline()

	// Attribute sets: `{ a = 1; }`, `rec { a = 1; }`.
	d.Inside(pattern.Of(token.AttrSet)).After(pattern.Of(token.LeftBrace)).
		Named("attrset-open").
		Example("{a=1;}", "{ a = 1; }").
		SingleSpaceOrNewline()
	d.Inside(pattern.Of(token.AttrSet)).Before(pattern.Of(token.RightBrace)).
		Named("attrset-close").SingleSpaceOrNewline()
	d.Inside(pattern.Of(token.AttrSet)).After(pattern.Of(token.KwRec)).
		Named("attrset-rec").SingleSpace()

	// Lists: `[ 1 2 3 ]`.
	d.Inside(pattern.Of(token.List)).After(pattern.Of(token.LeftBracket)).
		Named("list-open").
		Example("[1 2 3]", "[ 1 2 3 ]").
		SingleSpaceOrNewline()
	d.Inside(pattern.Of(token.List)).Before(pattern.Of(token.RightBracket)).
		Named("list-close").SingleSpaceOrNewline()
	d.Inside(pattern.Of(token.List)).Before(pattern.FromPred(hasPrecedingElement)).
		Named("list-element-gap").SingleSpaceOrNewline()

	// Function application: `f x y`.
	d.Inside(pattern.Of(token.Apply)).Before(pattern.FromPred(hasPrecedingElement)).
		Named("apply-arg-gap").SingleSpaceOrNewline()

	// Parenthesized expressions hug their parens.
	d.Inside(pattern.Of(token.ParenExpr)).After(pattern.Of(token.LeftParen)).
		Named("paren-open").NoSpace()
	d.Inside(pattern.Of(token.ParenExpr)).Before(pattern.Of(token.RightParen)).
		Named("paren-close").NoSpace()

	// `let ... in body`.
	d.Inside(pattern.Of(token.LetIn)).After(pattern.Of(token.KwLet)).
		Named("let-keyword").SingleSpaceOrNewline()
	d.Inside(pattern.Of(token.LetIn)).Before(pattern.Of(token.KwIn)).
		Named("let-in-before").SingleSpaceOrNewline()
	d.Inside(pattern.Of(token.LetIn)).After(pattern.Of(token.KwIn)).
		Named("let-in-after").SingleSpaceOrNewline()

	// `with expr; body`.
	d.Inside(pattern.Of(token.With)).After(pattern.Of(token.KwWith)).
		Named("with-keyword").SingleSpace()
	d.Inside(pattern.Of(token.With)).Before(pattern.Of(token.Semicolon)).
		Named("with-semicolon").NoSpace()
	d.Inside(pattern.Of(token.With)).After(pattern.Of(token.Semicolon)).
		Named("with-body").SingleSpaceOrNewline()

	// `assert cond; body`.
	d.Inside(pattern.Of(token.Assert)).After(pattern.Of(token.KwAssert)).
		Named("assert-keyword").SingleSpace()
	d.Inside(pattern.Of(token.Assert)).Before(pattern.Of(token.Semicolon)).
		Named("assert-semicolon").NoSpace()
	d.Inside(pattern.Of(token.Assert)).After(pattern.Of(token.Semicolon)).
		Named("assert-body").SingleSpaceOrNewline()

	// `if cond then a else b`.
	d.Inside(pattern.Of(token.IfThenElse)).After(pattern.Of(token.KwIf)).
		Named("if-keyword").SingleSpace()
	d.Inside(pattern.Of(token.IfThenElse)).Around(pattern.Of(token.KwThen)).
		Named("then-keyword").SingleSpace()
	d.Inside(pattern.Of(token.IfThenElse)).Around(pattern.Of(token.KwElse)).
		Named("else-keyword").SingleSpace()

	// String interpolation hugs its delimiters: `"${foo}"`.
	d.Inside(pattern.Of(token.Interpolation)).After(pattern.Of(token.InterpolStart)).
		Named("interpolation-open").NoSpace()
	d.Inside(pattern.Of(token.Interpolation)).Before(pattern.Of(token.InterpolEnd)).
		Named("interpolation-close").NoSpace()

	return d
}

func indentDsl() *dsl.IndentDsl {
	d := &dsl.IndentDsl{}

	d.AddAnchor(pattern.Of(token.Formals))
	d.AddAnchor(pattern.Of(token.ParenExpr))

	d.Inside(pattern.Of(token.List)).Named("list-element-indent").
		Example("[\n1\n2\n]", "[\n  1\n  2\n]").
		Indent(pattern.OfKinds(listElementKinds...))
	d.Inside(pattern.Of(token.List)).Named("list-comment-indent").
		Indent(pattern.Of(token.Comment))

	d.Inside(pattern.OfKinds(entryOwnerKinds...)).Named("entry-indent").
		Example("{\nfoo = 1;\n}", "{\n  foo = 1;\n}").
		Indent(pattern.OfKinds(token.Binding, token.Inherit))
	d.Inside(pattern.OfKinds(entryOwnerKinds...)).Named("entry-comment-indent").
		Indent(pattern.Of(token.Comment))

	d.Inside(pattern.Of(token.Formals)).Named("formal-indent").
		Indent(pattern.Of(token.Formal))
	d.Inside(pattern.Of(token.Formals)).Named("formals-comment-indent").
		Indent(pattern.Of(token.Comment))

	return d
}

// Catalog bundles an indent rule set with the anchor patterns standing apart from any single rule.
type Catalog struct {
	Rules   *pattern.Set[dsl.IndentRule]
	Anchors []pattern.Pattern
}

var (
	theSpacingDsl = sync.OnceValue(spacingDsl)
	theIndentDsl  = sync.OnceValue(indentDsl)
	spacingSet    = sync.OnceValue(func() *pattern.Set[dsl.SpacingRule] { return pattern.NewSet(theSpacingDsl().Rules()) })
	indentCatalog = sync.OnceValue(func() Catalog {
		d := theIndentDsl()
		return Catalog{Rules: pattern.NewSet(d.Rules()), Anchors: d.Anchors()}
	})
)

// Spacing returns the spacing rule catalog, built once per process.
func Spacing() *pattern.Set[dsl.SpacingRule] { return spacingSet() }

// Indentation returns the indent rule catalog together with its standalone anchor patterns, built
// once per process.
func Indentation() Catalog { return indentCatalog() }

// SpacingExamples returns every (before, after) fixture captured by the spacing rule declarations.
func SpacingExamples() []dsl.Example { return theSpacingDsl().Examples() }

// IndentExamples returns every (before, after) fixture captured by the indent rule declarations.
func IndentExamples() []dsl.Example { return theIndentDsl().Examples() }
