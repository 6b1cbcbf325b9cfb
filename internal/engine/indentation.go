package engine

import (
	"iter"

	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/assert"
	"github.com/elinlund/ncx/internal/dsl"
	"github.com/elinlund/ncx/internal/pattern"
	"github.com/elinlund/ncx/token"
)

// ApplyIndentation walks every non-whitespace element of model's tree, comments included (skipping
// into interpolations, which format independently), whose leading space block already starts a new
// line after spacing has run, and sets that block's indentation: one level deeper than its anchor if
// exactly one indent rule matches, or equal to the anchor's own indent (defaultIndent) if none does.
// An element that starts at its parent's start offset shares its parent's line start and is left
// alone. Elements whose Before block has no newline are left to the spacing phase and never touched
// here.
func ApplyIndentation(model *Model, rules *pattern.Set[dsl.IndentRule], anchors []pattern.Pattern) {
	for e := range ncx.WalkSkipInterpolations(model.Root()) {
		if e.IsToken() && e.Kind() == token.Whitespace {
			continue
		}
		if parent, ok := e.Parent(); ok && e.Start() == parent.Start() {
			continue
		}
		if !model.BlockFor(e, Before).HasNewline() {
			continue
		}
		matches := rules.Matching(e)
		assert.That(len(matches) <= 1, "more than one indent rule matches the same element")
		if len(matches) == 1 {
			applyIndentRule(model, matches[0], anchors, e)
		} else {
			defaultIndent(model, e, anchors)
		}
	}
}

func applyIndentRule(model *Model, rule dsl.IndentRule, anchors []pattern.Pattern, e ncx.Element) {
	anchorElem, anchorLevel, ok := indentAnchor(model, e, anchors)
	if !ok {
		block := model.BlockFor(e, Before)
		block.SetIndent(IndentLevel{}.Indent(), rule.Name)
		return
	}
	if anchorPat, hasAnchor := rule.Anchor(); hasAnchor && !anchorPat.Matches(anchorElem) {
		defaultIndent(model, e, anchors)
		return
	}
	block := model.BlockFor(e, Before)
	block.SetIndent(anchorLevel.Indent(), rule.Name)
}

// defaultIndent preserves the indentation implied by e's anchor without adding a level, matching
// nixpkgs-fmt's "Preserve indentation" fallback for elements no rule claims.
func defaultIndent(model *Model, e ncx.Element, anchors []pattern.Pattern) {
	level := IndentLevel{}
	if _, anchorLevel, ok := indentAnchor(model, e, anchors); ok {
		level = anchorLevel
	}
	block := model.BlockFor(e, Before)
	block.SetIndent(level, "preserve-indentation")
}

// ancestorsInclusive yields e itself, then every ancestor of e, root last.
func ancestorsInclusive(e ncx.Element) iter.Seq[ncx.Element] {
	return func(yield func(ncx.Element) bool) {
		if !yield(e) {
			return
		}
		for a := range e.Ancestors() {
			if !yield(a) {
				return
			}
		}
	}
}

// indentAnchor finds the nearest ancestor of e (inclusive of e's own parent) that either starts a
// line of its own, matches one of the registered anchor patterns, or is the root, and returns that
// ancestor together with its indentation. Elements in anchors are considered anchors even when they
// do not themselves begin a line, such as a formal-parameter list.
func indentAnchor(model *Model, e ncx.Element, anchors []pattern.Pattern) (ncx.Element, IndentLevel, bool) {
	parent, ok := e.Parent()
	if !ok {
		return ncx.Element{}, IndentLevel{}, false
	}
	for node := range ancestorsInclusive(parent) {
		block := model.BlockFor(node, Before)
		if block.HasNewline() {
			return node, block.IndentLevel(), true
		}
		if anchorMatches(anchors, node) {
			return node, model.indentOf(node), true
		}
		if node.Kind() == token.Root {
			return node, IndentLevel{}, true
		}
	}
	return ncx.Element{}, IndentLevel{}, false
}

func anchorMatches(anchors []pattern.Pattern, e ncx.Element) bool {
	for _, p := range anchors {
		if p.Matches(e) {
			return true
		}
	}
	return false
}

// indentOf computes node's current column by walking backwards from it, accumulating the length of
// whatever sits on its line, until a line break is found; the indentation at that line break is
// then added to what was accumulated.
func (m *Model) indentOf(node ncx.Element) IndentLevel {
	block := m.BlockFor(node, Before)
	n, hasNL := lastLineLen(block.Text())
	if hasNL {
		return block.IndentLevel()
	}
	return m.walkIndentBack(node, IndentLevel{Alignment: n})
}

func (m *Model) walkIndentBack(from ncx.Element, indent IndentLevel) IndentLevel {
	cur := from
	for {
		prev, ok := prevLeaf(cur)
		if !ok {
			return indent
		}
		if prev.IsToken() && prev.Kind() == token.Whitespace {
			cur = prev
			continue
		}
		literal, _ := prev.Text()
		n, hasNL := lastLineLen(literal)
		indent.Alignment += n
		if hasNL {
			return indent
		}

		block := m.BlockFor(prev, Before)
		btext := block.Text()
		bn, bHasNL := lastLineLen(btext)
		if bHasNL {
			return addLevels(indent, block.IndentLevel())
		}
		indent.Alignment += bn
		cur = prev
	}
}

// prevLeaf returns the previous token, in document order, before e — including whitespace and
// comments — or false if e is (or is within) the first token of the tree.
func prevLeaf(e ncx.Element) (ncx.Element, bool) {
	cur := e
	for {
		sib, ok := cur.PrevSiblingOrToken()
		if !ok {
			parent, pok := cur.Parent()
			if !pok {
				return ncx.Element{}, false
			}
			cur = parent
			continue
		}
		if sib.IsToken() {
			return sib, true
		}
		t := sib
		for {
			last, lok := t.LastChild()
			if !lok {
				return t, true
			}
			if last.IsToken() {
				return last, true
			}
			t = last
		}
	}
}
