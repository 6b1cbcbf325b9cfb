package engine

import (
	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/dsl"
	"github.com/elinlund/ncx/internal/pattern"
)

// ApplySpacing walks every non-trivia element of model's tree and, for each spacing rule that
// matches it, rewrites the space block(s) on the sides the rule governs.
func ApplySpacing(model *Model, rules *pattern.Set[dsl.SpacingRule]) {
	for e := range ncx.WalkNonTrivia(model.Root()) {
		for _, rule := range rules.Matching(e) {
			applySpacingRule(model, rule, e)
		}
	}
}

func applySpacingRule(model *Model, rule dsl.SpacingRule, e ncx.Element) {
	if !rule.Pattern().Matches(e) {
		return
	}
	if rule.Loc.IsBefore() {
		ensureSpace(model.BlockFor(e, Before), e, rule.Val, rule.Name)
	}
	if rule.Loc.IsAfter() {
		ensureSpace(model.BlockFor(e, After), e, rule.Val, rule.Name)
	}
}

func ensureSpace(block *SpaceBlock, e ncx.Element, val dsl.Value, rule string) {
	switch val {
	case dsl.Single:
		block.SetText(" ", rule)
	case dsl.None:
		block.SetText("", rule)
	case dsl.Newline:
		if !block.HasNewline() {
			block.SetText("\n", rule)
		}
	case dsl.SingleOptionalNewline:
		if !block.HasNewline() {
			block.SetText(" ", rule)
		}
	case dsl.NoneOptionalNewline:
		if !block.HasNewline() {
			block.SetText("", rule)
		}
	case dsl.SingleOrNewline:
		applyOrNewline(block, e, " ", rule)
	case dsl.NoneOrNewline:
		applyOrNewline(block, e, "", rule)
	}
}

// applyOrNewline implements the two "or newline" values: when the element's parent already spans
// multiple lines, force a line break (unless one is already present); otherwise fall back to flat.
func applyOrNewline(block *SpaceBlock, e ncx.Element, flat, rule string) {
	parent, ok := e.Parent()
	if ok && ncx.HasNewline(parent) {
		if !block.HasNewline() {
			block.SetText("\n", rule)
		}
		return
	}
	block.SetText(flat, rule)
}
