package engine_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/teleivo/assertive/assert"
	"github.com/teleivo/assertive/require"

	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/internal/dsl"
	"github.com/elinlund/ncx/internal/engine"
	"github.com/elinlund/ncx/internal/pattern"
	"github.com/elinlund/ncx/token"
)

// singleSpaceAroundEquals builds a minimal catalog with one rule, so spacing tests exercise
// ApplySpacing's dispatch without depending on the full production catalog in internal/rules.
func singleSpaceAroundEquals() *pattern.Set[dsl.SpacingRule] {
	d := &dsl.SpacingDsl{}
	d.Inside(pattern.Of(token.Binding)).Around(pattern.Of(token.Equals)).Named("test-equals").SingleSpace()
	return pattern.NewSet(d.Rules())
}

func TestApplySpacing(t *testing.T) {
	tests := map[string]struct {
		in   string
		want []engine.AtomEdit
	}{
		"adds missing spaces around equals": {
			in: "{a=1;}",
			want: []engine.AtomEdit{
				{DeleteStart: 2, DeleteEnd: 2, Insert: " "},
				{DeleteStart: 3, DeleteEnd: 3, Insert: " "},
			},
		},
		"already spaced produces no edits": {
			in:   "{a = 1;}",
			want: nil,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			tree, errs := ncx.Parse(test.in)
			require.Truef(t, len(errs) == 0, "parsing %q: %v", test.in, errs)

			model := engine.NewModel(tree, test.in)
			engine.ApplySpacing(model, singleSpaceAroundEquals())
			diff := model.IntoDiff()

			if diff := cmp.Diff(test.want, diff.Edits); diff != "" {
				t.Errorf("edits mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiffApply(t *testing.T) {
	src := "{a=1;}"
	tree, errs := ncx.Parse(src)
	require.Truef(t, len(errs) == 0, "parsing %q: %v", src, errs)

	model := engine.NewModel(tree, src)
	engine.ApplySpacing(model, singleSpaceAroundEquals())
	diff := model.IntoDiff()

	got := diff.Apply(src)
	assert.Equals(t, got, "{a = 1;}")
}
