// Package format is the public entry point for reformatting source text: it wires the rule
// catalogs in internal/rules onto the phases in internal/engine, and exposes the result as plain
// strings or trees so callers never have to build a [engine.Model] by hand.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/engine"
	"github.com/elinlund/ncx/internal/rules"
)

// ReformatString reformats text and returns the result. CRLF line endings are normalized to LF
// before parsing and restored afterwards if the input used them; tabs are expanded to two spaces
// before parsing and never reintroduced. The error return is non-nil only if text could not be
// parsed into any tree at all, which the parser's error-tolerant design makes unreachable in
// practice; it exists for signature symmetry with [ncx.Parse].
func ReformatString(text string) (string, error) {
	crlf := strings.Contains(text, "\r\n")
	src := text
	if crlf {
		src = strings.ReplaceAll(src, "\r\n", "\n")
	}
	src = strings.ReplaceAll(src, "\t", "  ")

	tree, errs := ncx.Parse(src)
	if tree == nil {
		return "", fmt.Errorf("format: could not parse input: %v", errs)
	}

	p := runPipeline(tree, src)
	out := ensureTrailingNewline(p.final)
	if crlf {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	return out, nil
}

// ReformatNode runs the core phases directly on an already-parsed tree and returns the reformatted
// tree, reconstructed by reparsing the final text.
func ReformatNode(tree *ncx.Tree) *ncx.Tree {
	p := runPipeline(tree, sourceText(tree))
	out, _ := ncx.Parse(ensureTrailingNewline(p.final))
	return out
}

// ReformatEdits runs the core phases on tree and returns the spacing and indentation edit sets
// separately, each sorted by start offset. Indent-edit offsets refer to the text that results from
// applying the spacing edits, not to tree's own source.
func ReformatEdits(tree *ncx.Tree) (spacing, indent []engine.AtomEdit) {
	p := runPipeline(tree, sourceText(tree))
	return sortedEdits(p.spacingDiff.Edits), sortedEdits(p.indentDiff.Edits)
}

// Explain reformats text and returns it annotated, one line at a time, with the rules that changed
// whitespace on that line: trailing comments of the form "  # [from; to): RuleName", multiple
// changes on one line joined by ", ". Offsets are into the pre-formatting text after CRLF line
// endings are normalized and tabs are expanded.
func Explain(text string) (string, error) {
	crlf := strings.Contains(text, "\r\n")
	src := text
	if crlf {
		src = strings.ReplaceAll(src, "\r\n", "\n")
	}
	src = strings.ReplaceAll(src, "\t", "  ")

	tree, errs := ncx.Parse(src)
	if tree == nil {
		return "", fmt.Errorf("format: could not parse input: %v", errs)
	}
	p := runPipeline(tree, src)

	type note struct {
		from, to int
		name     string
	}
	byLine := make(map[int][]note)
	add := func(from, to int, name string) {
		byLine[lineOf(src, from)] = append(byLine[lineOf(src, from)], note{from, to, name})
	}

	for _, b := range p.model1.Blocks() {
		if b.Changed() {
			add(b.Start, b.End, b.RuleName)
		}
	}
	for _, b := range p.model2.Blocks() {
		if b.Changed() {
			from, to := mapOffset(b.Start, p.spacingDiff.Edits), mapOffset(b.End, p.spacingDiff.Edits)
			add(from, to, b.RuleName)
		}
	}
	for _, e := range p.model2.Fixups() {
		from, to := mapOffset(e.DeleteStart, p.spacingDiff.Edits), mapOffset(e.DeleteEnd, p.spacingDiff.Edits)
		add(from, to, "reindent")
	}
	for _, notes := range byLine {
		sort.Slice(notes, func(i, j int) bool { return notes[i].from < notes[j].from })
	}

	var out strings.Builder
	for i, line := range strings.Split(src, "\n") {
		out.WriteString(line)
		if notes, ok := byLine[i]; ok {
			labels := make([]string, len(notes))
			for j, n := range notes {
				labels[j] = fmt.Sprintf("[%d; %d): %s", n.from, n.to, n.name)
			}
			out.WriteString("  # ")
			out.WriteString(strings.Join(labels, ", "))
		}
		out.WriteByte('\n')
	}

	result := out.String()
	if crlf {
		result = strings.ReplaceAll(result, "\n", "\r\n")
	}
	return result, nil
}

// pipelineResult holds every intermediate value the phase state machine produces, so callers that
// need the models (Explain) and callers that only need text (ReformatString) share one run.
type pipelineResult struct {
	src          string
	model1       *engine.Model
	spacingDiff  engine.Diff
	afterSpacing string
	model2       *engine.Model
	indentDiff   engine.Diff
	final        string
}

// runPipeline carries tree, whose text is src, through spacing, a reparse, indentation and
// fix-up.
func runPipeline(tree *ncx.Tree, src string) pipelineResult {
	model1 := engine.NewModel(tree, src)
	engine.ApplySpacing(model1, rules.Spacing())
	spacingDiff := model1.IntoDiff()
	afterSpacing := spacingDiff.Apply(src)

	tree2, _ := ncx.Parse(afterSpacing)
	catalog := rules.Indentation()
	model2 := engine.NewModel(tree2, afterSpacing)
	engine.ApplyIndentation(model2, catalog.Rules, catalog.Anchors)
	engine.ApplyFixups(model2, catalog.Anchors)
	indentDiff := model2.IntoDiff()
	final := indentDiff.Apply(afterSpacing)

	return pipelineResult{
		src: src, model1: model1, spacingDiff: spacingDiff,
		afterSpacing: afterSpacing, model2: model2, indentDiff: indentDiff, final: final,
	}
}

// sourceText reconstructs the exact text a tree was parsed from by concatenating every leaf token's
// literal in document order, relying on the tree's losslessness: every byte of the original input
// ends up in some token.
func sourceText(tree *ncx.Tree) string {
	var sb strings.Builder
	for e := range ncx.Walk(tree) {
		if tok, ok := e.Token(); ok {
			sb.WriteString(tok.Literal)
		}
	}
	return sb.String()
}

func ensureTrailingNewline(s string) string {
	return strings.TrimRight(s, "\n") + "\n"
}

func sortedEdits(edits []engine.AtomEdit) []engine.AtomEdit {
	out := make([]engine.AtomEdit, len(edits))
	copy(out, edits)
	sort.Slice(out, func(i, j int) bool { return out[i].DeleteStart < out[j].DeleteStart })
	return out
}

func lineOf(s string, offset int) int {
	if offset > len(s) {
		offset = len(s)
	}
	return strings.Count(s[:offset], "\n")
}

// mapOffset translates offset, a position in the text that results from applying edits to some
// original text, back to the corresponding position in that original text.
func mapOffset(offset int, edits []engine.AtomEdit) int {
	sorted := sortedEdits(edits)
	delta := 0
	for _, e := range sorted {
		newStart := e.DeleteStart + delta
		newEnd := newStart + len(e.Insert)
		if offset < newStart {
			break
		}
		if offset <= newEnd {
			return e.DeleteStart
		}
		delta += len(e.Insert) - (e.DeleteEnd - e.DeleteStart)
	}
	return offset - delta
}
