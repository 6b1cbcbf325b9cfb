// Package engine implements the mutable whitespace-slot model the formatter rewrites: spacing and
// indentation rules act on [SpaceBlock]s rather than directly on source bytes, and a final diff pass
// turns the accumulated changes into byte-level edits.
package engine

import (
	"strings"

	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/assert"
	"github.com/elinlund/ncx/token"
)

// indentUnit is the number of spaces one indentation level contributes.
const indentUnit = 2

// IndentLevel is a nesting depth plus extra alignment spaces used to line up with a non-multiple-of-2
// column, such as a binding's value lining up under an opening brace on the same line.
type IndentLevel struct {
	Level     int
	Alignment int
}

// Width returns the total number of leading spaces this level renders as.
func (l IndentLevel) Width() int { return l.Level*indentUnit + l.Alignment }

// Text returns the leading whitespace this level renders as.
func (l IndentLevel) Text() string { return strings.Repeat(" ", l.Width()) }

// Indent returns the next deeper level, keeping the same alignment.
func (l IndentLevel) Indent() IndentLevel { return IndentLevel{Level: l.Level + 1, Alignment: l.Alignment} }

func levelFromString(s string) IndentLevel {
	n := len([]rune(s))
	return IndentLevel{Level: n / indentUnit, Alignment: n % indentUnit}
}

func addLevels(a, b IndentLevel) IndentLevel {
	return IndentLevel{Level: a.Level + b.Level, Alignment: a.Alignment + b.Alignment}
}

func levelFromWidth(n int) IndentLevel {
	return IndentLevel{Level: n / indentUnit, Alignment: n % indentUnit}
}

// lastLineLen returns the rune length of the text following the final newline in s (or of s itself
// if it has none), and whether s contains a newline at all.
func lastLineLen(s string) (int, bool) {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return len([]rune(s[idx+1:])), true
	}
	return len([]rune(s)), false
}

// BlockPosition selects which side of an element a space block represents.
type BlockPosition int

const (
	Before BlockPosition = iota
	After
)

// SpaceBlock is a (possibly empty) run of whitespace between two syntax elements. It is backed
// either by a real whitespace token from the source (Original non-empty) or by a virtual,
// zero-width slot at a junction where two non-whitespace elements (comments included) sit directly
// next to each other.
//
// semanticNewline is set once, at construction, when the block immediately follows a line comment:
// removing its newline would silently comment out whatever comes next, so every write that would
// drop the newline is refused.
type SpaceBlock struct {
	Start, End      int
	Original        string
	newText         *string
	RuleName        string
	semanticNewline bool
}

// Text returns the block's current text: the last value set on it, or its original text.
func (b *SpaceBlock) Text() string {
	if b.newText != nil {
		return *b.newText
	}
	return b.Original
}

// HasNewline reports whether the block's current text contains a newline.
func (b *SpaceBlock) HasNewline() bool {
	return strings.Contains(b.Text(), "\n")
}

// IndentLevel reports the indentation width of the block's current text, i.e. the width of the run
// of spaces following its last newline (zero if it has none).
func (b *SpaceBlock) IndentLevel() IndentLevel {
	text := b.Text()
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		return IndentLevel{}
	}
	return levelFromString(text[idx+1:])
}

// SetText overwrites the block's text, recording which rule did so. A block carrying
// semanticNewline refuses any text lacking a newline, so a line comment's trailing newline can
// never be clobbered away by a later rule.
func (b *SpaceBlock) SetText(text, rule string) {
	if b.semanticNewline && !strings.Contains(text, "\n") {
		return
	}
	b.newText = &text
	b.RuleName = rule
}

// SetIndent rewrites the block to keep every newline already present in its text and replace
// everything else with level's whitespace.
func (b *SpaceBlock) SetIndent(level IndentLevel, rule string) {
	var newlines strings.Builder
	for _, r := range b.Text() {
		if r == '\n' {
			newlines.WriteByte('\n')
		}
	}
	b.SetText(newlines.String()+level.Text(), rule)
}

// Changed reports whether the block's text differs from its original text.
func (b *SpaceBlock) Changed() bool {
	return b.newText != nil && *b.newText != b.Original
}

// AtomEdit is a single byte-range replacement over the original source.
type AtomEdit struct {
	DeleteStart, DeleteEnd int
	Insert                 string
}

// Model is the mutable whitespace model built over a parsed tree: every space block discovered so
// far, indexed by the original offsets it spans, plus any raw fix-up edits collected outside the
// space-block mechanism (re-indenting string and comment bodies).
type Model struct {
	root    *ncx.Tree
	src     string
	blocks  []*SpaceBlock
	byStart map[int]*SpaceBlock
	byEnd   map[int]*SpaceBlock
	fixups  []AtomEdit
}

// NewModel creates an empty model over root, whose elements' byte offsets index into src.
func NewModel(root *ncx.Tree, src string) *Model {
	return &Model{root: root, src: src, byStart: make(map[int]*SpaceBlock), byEnd: make(map[int]*SpaceBlock)}
}

// Root returns the tree this model was built over.
func (m *Model) Root() *ncx.Tree { return m.root }

func (m *Model) registerBlock(b *SpaceBlock) *SpaceBlock {
	if existing, ok := m.byStart[b.Start]; ok {
		assert.That(existing.End == b.End, "duplicate space block registered at start offset %d", b.Start)
		return existing
	}
	if existing, ok := m.byEnd[b.End]; ok {
		assert.That(existing.Start == b.Start, "duplicate space block registered at end offset %d", b.End)
		return existing
	}
	m.byStart[b.Start] = b
	m.byEnd[b.End] = b
	m.blocks = append(m.blocks, b)
	return b
}

// BlockFor returns the space block immediately before or after element, creating and registering it
// on first access. Root is special-cased: its surrounding whitespace is its own first/last child,
// not a sibling, since the root element has no siblings of its own.
func (m *Model) BlockFor(e ncx.Element, pos BlockPosition) *SpaceBlock {
	offset := e.Start()
	if pos == After {
		offset = e.End()
	}
	if pos == Before {
		if b, ok := m.byEnd[offset]; ok {
			return b
		}
	} else if b, ok := m.byStart[offset]; ok {
		return b
	}

	if e.Kind() == token.Root {
		return m.rootBlock(e, pos, offset)
	}
	return m.siblingBlock(e, pos, offset)
}

func (m *Model) rootBlock(e ncx.Element, pos BlockPosition, offset int) *SpaceBlock {
	var edge ncx.Element
	var ok bool
	if pos == Before {
		edge, ok = e.FirstChild()
	} else {
		edge, ok = e.LastChild()
	}
	if ok && edge.IsToken() && edge.Kind() == token.Whitespace {
		return m.blockFromToken(edge)
	}
	return m.registerBlock(&SpaceBlock{Start: offset, End: offset})
}

func (m *Model) siblingBlock(e ncx.Element, pos BlockPosition, offset int) *SpaceBlock {
	var sib ncx.Element
	var ok bool
	if pos == Before {
		sib, ok = e.PrevSiblingOrToken()
	} else {
		sib, ok = e.NextSiblingOrToken()
	}
	if !ok {
		parent, pok := e.Parent()
		assert.That(pok, "element with no sibling and no parent is not the root")
		return m.BlockFor(parent, pos)
	}
	if sib.IsToken() && sib.Kind() == token.Whitespace {
		return m.blockFromToken(sib)
	}
	return m.registerBlock(&SpaceBlock{Start: offset, End: offset})
}

func (m *Model) blockFromToken(tok ncx.Element) *SpaceBlock {
	t, _ := tok.Token()
	b := &SpaceBlock{Start: t.Start, End: t.End, Original: t.Literal}
	if prev, ok := tok.PrevSiblingOrToken(); ok && prev.Kind() == token.Comment {
		text, _ := prev.Text()
		b.semanticNewline = strings.HasPrefix(text, "#") && strings.Contains(t.Literal, "\n")
	}
	return m.registerBlock(b)
}

// AddFixup records a raw byte-level edit outside the space-block mechanism.
func (m *Model) AddFixup(edit AtomEdit) {
	m.fixups = append(m.fixups, edit)
}

// Blocks returns every space block the model has registered so far, in registration order.
func (m *Model) Blocks() []*SpaceBlock { return m.blocks }

// Fixups returns every raw fix-up edit recorded so far, in recording order.
func (m *Model) Fixups() []AtomEdit { return m.fixups }

// Diff is the set of edits a model has accumulated, ready to apply to the original source.
type Diff struct {
	Edits []AtomEdit
}

// IntoDiff collects every changed space block plus every raw fix-up edit into a [Diff].
func (m *Model) IntoDiff() Diff {
	var edits []AtomEdit
	for _, b := range m.blocks {
		if !b.Changed() {
			continue
		}
		edits = append(edits, AtomEdit{DeleteStart: b.Start, DeleteEnd: b.End, Insert: b.Text()})
	}
	edits = append(edits, m.fixups...)
	return Diff{Edits: edits}
}
