package pattern_test

import (
	"testing"

	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/pattern"
	"github.com/elinlund/ncx/token"
	"github.com/teleivo/assertive/assert"
)

func elementOf(kind token.Kind) ncx.Element {
	tree, _ := ncx.Parse("1 + 2.5")
	for e := range ncx.Walk(tree) {
		if e.Kind() == kind {
			return e
		}
	}
	return ncx.Element{}
}

func TestPatternMatchesKindFilter(t *testing.T) {
	p := pattern.Of(token.Int)
	e := elementOf(token.Int)
	assert.That(t, p.Matches(e), "expected Int pattern to match an Int element")

	other := pattern.Of(token.Plus)
	assert.That(t, !other.Matches(e), "expected Plus pattern not to match an Int element")
}

func TestPatternAndIntersectsKindSets(t *testing.T) {
	a := pattern.OfKinds(token.Int, token.Float)
	b := pattern.OfKinds(token.Float, token.Path)
	combined := a.And(b)
	assert.That(t, combined.HasKinds, "expected a kind set after And")
	assert.That(t, combined.Kinds.Has(token.Float), "Float should survive the intersection")
	assert.That(t, !combined.Kinds.Has(token.Int), "Int should not survive the intersection")
}

func TestPatternAndWithDisjointKindsMatchesNothing(t *testing.T) {
	a := pattern.Of(token.Int)
	b := pattern.Of(token.Float)
	combined := a.And(b)
	e := elementOf(token.Int)
	assert.That(t, !combined.Matches(e), "disjoint kind sets must match nothing")
}

func TestPatternAndKeepsKindedFilterWhenOtherIsUnconstrained(t *testing.T) {
	kinded := pattern.Of(token.Int)
	unconstrained := pattern.FromPred(func(ncx.Element) bool { return true })
	combined := kinded.And(unconstrained)
	assert.That(t, combined.HasKinds, "expected the kinded filter to survive")
	assert.That(t, combined.Kinds.Has(token.Int), "expected Int to remain in the kind set")
}

type namedPattern struct {
	name string
	pat  pattern.Pattern
}

func (n namedPattern) Pattern() pattern.Pattern { return n.pat }

func TestSetMatchingBucketsByKind(t *testing.T) {
	items := []namedPattern{
		{name: "int-rule", pat: pattern.Of(token.Int)},
		{name: "any-rule", pat: pattern.FromPred(func(ncx.Element) bool { return true })},
		{name: "float-rule", pat: pattern.Of(token.Float)},
	}
	set := pattern.NewSet(items)
	e := elementOf(token.Int)
	matches := set.Matching(e)

	var names []string
	for _, m := range matches {
		names = append(names, m.name)
	}
	assert.Equals(t, len(names), 2, "expected int-rule and any-rule to match")
	assert.Equals(t, names[0], "int-rule", "kinded matches come before unconstrained ones")
	assert.Equals(t, names[1], "any-rule", "unconstrained rule should still match")
}
