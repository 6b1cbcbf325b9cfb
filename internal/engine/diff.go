package engine

import (
	"sort"
	"strings"

	"github.com/elinlund/ncx/internal/assert"
)

// Apply renders src with every edit in d applied, in source order. Edits must not overlap.
func (d Diff) Apply(src string) string {
	edits := make([]AtomEdit, len(d.Edits))
	copy(edits, d.Edits)
	sort.Slice(edits, func(i, j int) bool { return edits[i].DeleteStart < edits[j].DeleteStart })

	var out strings.Builder
	pos := 0
	for _, e := range edits {
		assert.That(e.DeleteStart >= pos, "overlapping edits at offset %d", e.DeleteStart)
		out.WriteString(src[pos:e.DeleteStart])
		out.WriteString(e.Insert)
		pos = e.DeleteEnd
	}
	out.WriteString(src[pos:])
	return out.String()
}
