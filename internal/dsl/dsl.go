// Package dsl provides fluent builders for spacing and indentation rules, mirroring the style of
// nixpkgs-fmt's rule DSL: a parent pattern scopes a sequence of child/location/value declarations
// that finalize into a rule pushed onto the containing catalog.
package dsl

import (
	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/assert"
	"github.com/elinlund/ncx/internal/pattern"
	"github.com/elinlund/ncx/token"
)

// Location names which side(s) of an element a spacing rule governs.
type Location int

const (
	Before Location = iota
	After
	Around
)

func (l Location) isBefore() bool { return l == Before || l == Around }
func (l Location) isAfter() bool  { return l == After || l == Around }

// Value enumerates the whitespace policies a spacing rule may enforce.
type Value int

const (
	Single Value = iota
	Newline
	None
	SingleOrNewline
	NoneOrNewline
	SingleOptionalNewline
	NoneOptionalNewline
)

// Example is a before/after source pair captured alongside a rule declaration, surfaced so tests
// can assert each rule against its own documented fixture.
type Example struct {
	Before, After string
}

// SpacingRule is a finalized spacing declaration.
type SpacingRule struct {
	Name string
	pat  pattern.Pattern
	Loc  Location
	Val  Value
}

// Pattern implements pattern.Named.
func (r SpacingRule) Pattern() pattern.Pattern { return r.pat }

// SpacingDsl accumulates spacing rules and their inline examples.
type SpacingDsl struct {
	rules    []SpacingRule
	examples []Example
}

// Rules returns every rule pushed onto the DSL, in declaration order.
func (d *SpacingDsl) Rules() []SpacingRule { return d.rules }

// Examples returns every (before, after) fixture captured via Example.
func (d *SpacingDsl) Examples() []Example { return d.examples }

// Inside starts a rule scoped to elements whose parent matches parent.
func (d *SpacingDsl) Inside(parent pattern.Pattern) *SpacingRuleBuilder {
	return &SpacingRuleBuilder{dsl: d, parent: parent}
}

// SpacingRuleBuilder accumulates the pieces of a single spacing rule.
type SpacingRuleBuilder struct {
	dsl           *SpacingDsl
	parent        pattern.Pattern
	child         pattern.Pattern
	hasChild      bool
	between       *[2]token.Kind
	loc           Location
	name          string
	exampleBefore string
	exampleAfter  string
	hasExample    bool
}

// Around scopes the rule to child, on both sides.
func (b *SpacingRuleBuilder) Around(child pattern.Pattern) *SpacingRuleBuilder {
	b.child, b.hasChild, b.loc = child, true, Around
	return b
}

// Before scopes the rule to child, on its leading side.
func (b *SpacingRuleBuilder) Before(child pattern.Pattern) *SpacingRuleBuilder {
	b.child, b.hasChild, b.loc = child, true, Before
	return b
}

// After scopes the rule to child, on its trailing side.
func (b *SpacingRuleBuilder) After(child pattern.Pattern) *SpacingRuleBuilder {
	b.child, b.hasChild, b.loc = child, true, After
	return b
}

// Between expands, when a terminal method finishes the rule, into two rules: an After rule on left requiring the next non-trivia
// sibling be right, and a symmetric Before rule on right.
func (b *SpacingRuleBuilder) Between(left, right token.Kind) *SpacingRuleBuilder {
	b.between = &[2]token.Kind{left, right}
	return b
}

// When tightens the child pattern with an additional predicate.
func (b *SpacingRuleBuilder) When(pred pattern.Pred) *SpacingRuleBuilder {
	assert.That(b.hasChild, "When must follow Around/Before/After")
	b.child = b.child.And(pattern.FromPred(pred))
	return b
}

// Named attaches a human-readable name, surfaced by Explain.
func (b *SpacingRuleBuilder) Named(name string) *SpacingRuleBuilder {
	b.name = name
	return b
}

// Example captures a (before, after) fixture alongside this rule declaration.
func (b *SpacingRuleBuilder) Example(before, after string) *SpacingRuleBuilder {
	b.exampleBefore, b.exampleAfter, b.hasExample = before, after, true
	return b
}

func (b *SpacingRuleBuilder) SingleSpace() *SpacingDsl            { return b.finish(Single) }
func (b *SpacingRuleBuilder) NoSpace() *SpacingDsl                { return b.finish(None) }
func (b *SpacingRuleBuilder) SingleSpaceOrNewline() *SpacingDsl   { return b.finish(SingleOrNewline) }
func (b *SpacingRuleBuilder) NoSpaceOrNewline() *SpacingDsl       { return b.finish(NoneOrNewline) }
func (b *SpacingRuleBuilder) ForceNewline() *SpacingDsl           { return b.finish(Newline) }
func (b *SpacingRuleBuilder) SingleOptionalNewline() *SpacingDsl  { return b.finish(SingleOptionalNewline) }
func (b *SpacingRuleBuilder) NoSpaceOptionalNewline() *SpacingDsl { return b.finish(NoneOptionalNewline) }

func (b *SpacingRuleBuilder) finish(val Value) *SpacingDsl {
	assert.That(b.between != nil != b.hasChild, "a spacing rule needs exactly one of Between or a child pattern")
	if b.hasExample {
		b.dsl.examples = append(b.dsl.examples, Example{Before: b.exampleBefore, After: b.exampleAfter})
	}
	if b.between != nil {
		left, right := b.between[0], b.between[1]
		afterLeft := pattern.Of(left).And(pattern.FromPred(func(e ncx.Element) bool {
			next, ok := ncx.NextNonTrivia(e)
			return ok && next.Kind() == right
		}))
		b.dsl.rules = append(b.dsl.rules, SpacingRule{
			Name: b.name,
			pat:  pattern.ParentChild(b.parent, afterLeft),
			Loc:  After,
			Val:  val,
		})
		beforeRight := pattern.Of(right).And(pattern.FromPred(func(e ncx.Element) bool {
			prev, ok := ncx.PrevNonTrivia(e)
			return ok && prev.Kind() == left
		}))
		b.dsl.rules = append(b.dsl.rules, SpacingRule{
			Name: b.name,
			pat:  pattern.ParentChild(b.parent, beforeRight),
			Loc:  Before,
			Val:  val,
		})
		return b.dsl
	}
	b.dsl.rules = append(b.dsl.rules, SpacingRule{
		Name: b.name,
		pat:  pattern.ParentChild(b.parent, b.child),
		Loc:  b.loc,
		Val:  val,
	})
	return b.dsl
}

// IsBefore reports whether loc governs the leading side of an element.
func (l Location) IsBefore() bool { return l.isBefore() }

// IsAfter reports whether loc governs the trailing side of an element.
func (l Location) IsAfter() bool { return l.isAfter() }

// Modality controls how an IndentRule's optional child pattern is interpreted.
type Modality int

const (
	Positive Modality = iota
	Negative
)

// IndentRule is a finalized indentation declaration.
type IndentRule struct {
	Name      string
	pat       pattern.Pattern
	anchor    pattern.Pattern
	hasAnchor bool
}

// Pattern implements pattern.Named.
func (r IndentRule) Pattern() pattern.Pattern { return r.pat }

// Anchor returns the rule's anchor pattern, if any.
func (r IndentRule) Anchor() (pattern.Pattern, bool) { return r.anchor, r.hasAnchor }

// IndentDsl accumulates indent rules and standalone anchor patterns.
type IndentDsl struct {
	rules    []IndentRule
	anchors  []pattern.Pattern
	examples []Example
}

// Rules returns every indent rule, in declaration order.
func (d *IndentDsl) Rules() []IndentRule { return d.rules }

// Anchors returns every pattern registered via AddAnchor.
func (d *IndentDsl) Anchors() []pattern.Pattern { return d.anchors }

// Examples returns every (before, after) fixture captured via Example.
func (d *IndentDsl) Examples() []Example { return d.examples }

// AddAnchor registers a pattern that acts as an indent anchor even when it does not itself start a
// line, such as a formal-parameter list or a parenthesized call's argument list.
func (d *IndentDsl) AddAnchor(p pattern.Pattern) *IndentDsl {
	d.anchors = append(d.anchors, p)
	return d
}

// Inside starts a rule scoped to elements whose parent matches parent.
func (d *IndentDsl) Inside(parent pattern.Pattern) *IndentRuleBuilder {
	return &IndentRuleBuilder{dsl: d, parent: parent, modality: Positive}
}

// IndentRuleBuilder accumulates the pieces of a single indent rule.
type IndentRuleBuilder struct {
	dsl           *IndentDsl
	parent        pattern.Pattern
	when          pattern.Pattern
	hasWhen       bool
	anchor        pattern.Pattern
	hasAnchor     bool
	modality      Modality
	name          string
	exampleBefore string
	exampleAfter  string
	hasExample    bool
}

// When tightens the match with an additional predicate evaluated against the child.
func (b *IndentRuleBuilder) When(pred pattern.Pred) *IndentRuleBuilder {
	b.when, b.hasWhen = pattern.FromPred(pred), true
	return b
}

// Negative flips the child-pattern modality: the rule matches elements NOT matching child.
func (b *IndentRuleBuilder) Negative() *IndentRuleBuilder {
	b.modality = Negative
	return b
}

// Anchor restricts the rule to fire only when the discovered anchor matches anchorPattern,
// otherwise falling back to default indentation.
func (b *IndentRuleBuilder) Anchor(anchorPattern pattern.Pattern) *IndentRuleBuilder {
	b.anchor, b.hasAnchor = anchorPattern, true
	return b
}

// Named attaches a human-readable name, surfaced by Explain.
func (b *IndentRuleBuilder) Named(name string) *IndentRuleBuilder {
	b.name = name
	return b
}

// Example captures a (before, after) fixture alongside this rule declaration.
func (b *IndentRuleBuilder) Example(before, after string) *IndentRuleBuilder {
	b.exampleBefore, b.exampleAfter, b.hasExample = before, after, true
	return b
}

// Indent finalizes the rule: it matches an element whose parent matches the builder's parent
// pattern and whose match against child equals (modality == Positive).
func (b *IndentRuleBuilder) Indent(child pattern.Pattern) *IndentDsl {
	want := b.modality == Positive
	test := pattern.FromPred(func(e ncx.Element) bool { return child.Matches(e) == want })
	if b.hasWhen {
		test = test.And(b.when)
	}
	if b.hasExample {
		b.dsl.examples = append(b.dsl.examples, Example{Before: b.exampleBefore, After: b.exampleAfter})
	}
	b.dsl.rules = append(b.dsl.rules, IndentRule{
		Name:      b.name,
		pat:       pattern.ParentChild(b.parent, test),
		anchor:    b.anchor,
		hasAnchor: b.hasAnchor,
	})
	return b.dsl
}
