package engine

import (
	"strings"

	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/pattern"
	"github.com/elinlund/ncx/token"
)

// ApplyFixups runs after spacing and indentation: it re-indents the body of multi-line indented
// strings and block comments to track the indentation their surrounding context just received,
// since those bodies are not themselves made of space blocks.
func ApplyFixups(model *Model, anchors []pattern.Pattern) {
	for e := range ncx.Walk(model.Root()) {
		switch {
		case e.IsTree() && e.Kind() == token.IndentedStr:
			fixIndentedString(model, e, anchors)
		case e.IsToken() && e.Kind() == token.Comment:
			fixBlockComment(model, e)
		}
	}
}

type textRange struct{ Start, End int }

// fixIndentedString dedents and re-indents the content lines of an indented string literal
// (`''...''`) so they sit one level deeper than the string's own opening quote, provided the
// string follows the idiomatic layout of starting content on its own line.
func fixIndentedString(model *Model, node ncx.Element, anchors []pattern.Pattern) {
	quoteIndent, ok := blockOrAnchorIndent(model, node, anchors)
	if !ok {
		return
	}
	contentIndent := quoteIndent.Indent()

	tree, _ := node.Tree()
	var ranges []textRange
	for _, child := range tree.Children {
		tc, ok := child.(ncx.TokenChild)
		if !ok || tc.Kind() != token.StringContent {
			continue
		}
		ranges = append(ranges, stringIndentRanges(tc.Literal, tc.Start())...)
	}
	if len(ranges) == 0 {
		return
	}
	first, last := ranges[0], ranges[len(ranges)-1]

	firstLineBlank := first.Start == node.Start()+len("''\n")
	lastLineBlank := last.End+len("''") == node.End()
	if !firstLineBlank {
		return
	}

	content := ranges
	if lastLineBlank {
		content = ranges[:len(ranges)-1]
	}
	if len(content) == 0 {
		return
	}
	commonWidth := content[0].End - content[0].Start
	for _, r := range content[1:] {
		if w := r.End - r.Start; w < commonWidth {
			commonWidth = w
		}
	}

	if contentIndent.Width() != commonWidth {
		for _, r := range content {
			end := r.Start + min(commonWidth, r.End-r.Start)
			model.AddFixup(AtomEdit{DeleteStart: r.Start, DeleteEnd: end, Insert: contentIndent.Text()})
		}
	}
	if lastLineBlank && (last.End-last.Start) != quoteIndent.Width() {
		model.AddFixup(AtomEdit{DeleteStart: last.Start, DeleteEnd: last.End, Insert: quoteIndent.Text()})
	}
}

// stringIndentRanges returns the byte range of the leading run of spaces on every non-blank line of
// s, offsetting every range by base. Purely blank lines (a run of spaces immediately followed by
// another newline) contribute no range of their own; a space run that reaches the end of s (the
// last line, before the closing quote) does get a range.
func stringIndentRanges(s string, base int) []textRange {
	var ranges []textRange
	offset := 0
	for {
		nl := strings.IndexByte(s[offset:], '\n')
		if nl < 0 {
			return ranges
		}
		offset += nl + 1
		indentStart := offset
		for offset < len(s) && s[offset] == ' ' {
			offset++
		}
		if offset < len(s) && s[offset] == '\n' {
			continue
		}
		ranges = append(ranges, textRange{Start: base + indentStart, End: base + offset})
	}
}

// fixBlockComment re-indents the continuation lines of a multi-line `/* */` comment whose own
// indentation just changed, shifting every continuation line's leading space run by the same delta
// the comment's own opening line moved by. A line starting with `*` and a line that doesn't shift by
// the same amount algebraically: both preserve the line's original extra alignment past the
// comment's own indent.
func fixBlockComment(model *Model, tok ncx.Element) {
	literal, _ := tok.Text()
	if !strings.HasPrefix(literal, "/*") || !strings.Contains(literal, "\n") {
		return
	}
	block := model.BlockFor(tok, Before)
	if !block.HasNewline() {
		return
	}
	oldWidth, _ := lastLineLen(block.Original)
	newWidth := block.IndentLevel().Width()
	delta := newWidth - oldWidth

	lines := strings.Split(literal, "\n")
	offset := tok.Start()
	for i, line := range lines {
		lineLen := len(line)
		if i == 0 {
			offset += lineLen + 1
			continue
		}
		wsEnd := firstLineIndent(line)
		if wsEnd < len(line) {
			width := max(0, wsEnd+delta)
			model.AddFixup(AtomEdit{DeleteStart: offset, DeleteEnd: offset + wsEnd, Insert: strings.Repeat(" ", width)})
		}
		offset += lineLen + 1
	}
}

func firstLineIndent(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

// blockOrAnchorIndent returns e's current indentation if its leading block already starts a new
// line, or the indentation implied by its anchor otherwise.
func blockOrAnchorIndent(model *Model, e ncx.Element, anchors []pattern.Pattern) (IndentLevel, bool) {
	block := model.BlockFor(e, Before)
	if block.HasNewline() {
		return block.IndentLevel(), true
	}
	_, level, ok := indentAnchor(model, e, anchors)
	return level, ok
}
