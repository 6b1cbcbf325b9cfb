package token_test

import (
	"strconv"
	"testing"

	"github.com/elinlund/ncx/token"
	"github.com/teleivo/assertive/assert"
)

func TestPositionBeforeAfter(t *testing.T) {
	pos := token.Position{Line: 2, Column: 2}
	tests := []struct {
		in   token.Position
		want map[string]bool
	}{
		{
			in:   token.Position{Line: 1, Column: 1},
			want: map[string]bool{"Before": false, "After": true},
		},
		{
			in:   token.Position{Line: 2, Column: 1},
			want: map[string]bool{"Before": false, "After": true},
		},
		{
			in:   token.Position{Line: 2, Column: 2},
			want: map[string]bool{"Before": false, "After": false},
		},
		{
			in:   token.Position{Line: 2, Column: 3},
			want: map[string]bool{"Before": true, "After": false},
		},
		{
			in:   token.Position{Line: 3, Column: 1},
			want: map[string]bool{"Before": true, "After": false},
		},
	}
	for i, test := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			assert.Equals(t, pos.Before(test.in), test.want["Before"], "pos.Before(%#v)", test.in)
			assert.Equals(t, pos.After(test.in), test.want["After"], "pos.After(%#v)", test.in)
		})
	}
}

func TestLineIndex(t *testing.T) {
	src := "abc\ndef\n\nghi"
	//      0123 4567 8 9ab
	li := token.NewLineIndex(src)

	tests := []struct {
		offset int
		want   token.Position
	}{
		{offset: 0, want: token.Position{Line: 1, Column: 1}},
		{offset: 2, want: token.Position{Line: 1, Column: 3}},
		{offset: 4, want: token.Position{Line: 2, Column: 1}},
		{offset: 7, want: token.Position{Line: 2, Column: 4}},
		{offset: 8, want: token.Position{Line: 3, Column: 1}},
		{offset: 9, want: token.Position{Line: 4, Column: 1}},
		{offset: 12, want: token.Position{Line: 4, Column: 4}},
	}
	for _, test := range tests {
		t.Run(strconv.Itoa(test.offset), func(t *testing.T) {
			got := li.PositionFor(test.offset)
			assert.Equals(t, got, test.want, "PositionFor(%d)", test.offset)
		})
	}
}
