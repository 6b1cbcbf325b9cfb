package dsl_test

import (
	"testing"

	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/dsl"
	"github.com/elinlund/ncx/internal/pattern"
	"github.com/elinlund/ncx/token"
	"github.com/teleivo/assertive/assert"
)

func elementOf(t *testing.T, src string, kind token.Kind) ncx.Element {
	t.Helper()
	tree, errs := ncx.Parse(src)
	assert.Equals(t, len(errs), 0, "expected no parse errors for %q", src)
	for e := range ncx.Walk(tree) {
		if e.Kind() == kind {
			return e
		}
	}
	t.Fatalf("no element of kind %v found in %q", kind, src)
	return ncx.Element{}
}

func TestSpacingDslAroundProducesParentChildRule(t *testing.T) {
	var d dsl.SpacingDsl
	d.Inside(pattern.Of(token.BinOp)).
		Around(pattern.Of(token.Plus)).
		Named("plus-spacing").
		Example("1+2", "1 + 2").
		SingleSpace()

	rules := d.Rules()
	assert.Equals(t, len(rules), 1, "expected a single rule")
	r := rules[0]
	assert.Equals(t, r.Name, "plus-spacing", "rule name should be preserved")
	assert.Equals(t, r.Loc, dsl.Around, "location should be Around")
	assert.Equals(t, r.Val, dsl.Single, "value should be Single")

	plus := elementOf(t, "1 + 2", token.Plus)
	assert.That(t, r.Pattern().Matches(plus), "rule should match the Plus token inside its BinOp")

	examples := d.Examples()
	assert.Equals(t, len(examples), 1, "expected the captured example")
	assert.Equals(t, examples[0].Before, "1+2", "example before text")
	assert.Equals(t, examples[0].After, "1 + 2", "example after text")
}

func TestSpacingDslBetweenExpandsToTwoRules(t *testing.T) {
	var d dsl.SpacingDsl
	d.Inside(pattern.Of(token.LetIn)).
		Between(token.KwLet, token.KwIn).
		ForceNewline()

	rules := d.Rules()
	assert.Equals(t, len(rules), 2, "Between should expand into two rules")
	assert.Equals(t, rules[0].Loc, dsl.After, "first rule governs the left token's trailing side")
	assert.Equals(t, rules[1].Loc, dsl.Before, "second rule governs the right token's leading side")
}

func TestSpacingDslWhenNarrowsMatch(t *testing.T) {
	var d dsl.SpacingDsl
	d.Inside(pattern.Of(token.AttrSet)).
		Before(pattern.Of(token.RightBrace)).
		When(func(e ncx.Element) bool { return false }).
		NoSpace()

	r := d.Rules()[0]
	rb := elementOf(t, "{ a = 1; }", token.RightBrace)
	assert.That(t, !r.Pattern().Matches(rb), "When predicate returning false should veto the match")
}

func TestIndentDslIndentMatchesChildOutsideAnchor(t *testing.T) {
	var d dsl.IndentDsl
	d.Inside(pattern.Of(token.AttrSet)).
		Indent(pattern.Of(token.Binding))

	rules := d.Rules()
	assert.Equals(t, len(rules), 1, "expected a single indent rule")
	binding := elementOf(t, "{ a = 1; }", token.Binding)
	assert.That(t, rules[0].Pattern().Matches(binding), "rule should match a Binding inside an AttrSet")
}

func TestIndentDslNegativeFlipsMatch(t *testing.T) {
	var d dsl.IndentDsl
	d.Inside(pattern.Of(token.AttrSet)).
		Negative().
		Indent(pattern.Of(token.RightBrace))

	rules := d.Rules()
	binding := elementOf(t, "{ a = 1; }", token.Binding)
	rbrace := elementOf(t, "{ a = 1; }", token.RightBrace)
	assert.That(t, rules[0].Pattern().Matches(binding), "Negative rule should match non-RightBrace children")
	assert.That(t, !rules[0].Pattern().Matches(rbrace), "Negative rule should not match RightBrace itself")
}

func TestIndentDslAnchorIsRecorded(t *testing.T) {
	var d dsl.IndentDsl
	anchorPat := pattern.Of(token.Formals)
	d.Inside(pattern.Of(token.Lambda)).
		Anchor(anchorPat).
		Indent(pattern.Of(token.Apply))

	r := d.Rules()[0]
	got, ok := r.Anchor()
	assert.That(t, ok, "expected an anchor to be recorded")
	_ = got
}

func TestIndentDslAddAnchorIsStandalone(t *testing.T) {
	var d dsl.IndentDsl
	d.AddAnchor(pattern.Of(token.Formals))
	anchors := d.Anchors()
	assert.Equals(t, len(anchors), 1, "expected one standalone anchor")
}
