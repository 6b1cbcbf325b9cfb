package format_test

import (
	"strings"
	"testing"

	"github.com/teleivo/assertive/assert"
	"github.com/teleivo/assertive/require"

	"github.com/elinlund/ncx/format"
)

func TestReformatString(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"adds a newline indent inside braces": {
			in:   "{foo = 92;\n}",
			want: "{\n  foo = 92;\n}\n",
		},
		"preserves CRLF line endings": {
			in:   "{foo = 92;\r\n}",
			want: "{\r\n  foo = 92;\r\n}\r\n",
		},
		"expands tabs to two spaces": {
			in:   "{\n\tfoo = 92;\t}\n",
			want: "{\n  foo = 92;\n}\n",
		},
		"spaces a single-line set": {
			in:   "{ a=92; }",
			want: "{ a = 92; }\n",
		},
		"spaces a single-line list": {
			in:   "[1 2 3]",
			want: "[ 1 2 3 ]\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := format.ReformatString(test.in)
			require.NoErrorf(t, err, "ReformatString(%q)", test.in)
			assert.NoDiff(t, got, test.want)
		})
	}
}

func TestReformatStringIdempotent(t *testing.T) {
	fixtures := []string{
		"{foo = 92;\n}",
		"{foo = 92;\r\n}",
		"{\n\tfoo = 92;\t}\n",
		"{ a=92; }",
		"[1 2 3]",
		"let a = 1; in a",
		"x: x + 1",
		"{ a, b ? 1, ... }: a",
		"rec { a = 1; b = a; }",
		"with foo; bar",
	}

	for _, in := range fixtures {
		once, err := format.ReformatString(in)
		require.NoErrorf(t, err, "ReformatString(%q)", in)
		twice, err := format.ReformatString(once)
		require.NoErrorf(t, err, "ReformatString(%q)", once)
		assert.NoDiff(t, twice, once)
	}
}

func TestExplain(t *testing.T) {
	// Already correctly indented, so only the missing space around "=" is annotated; this keeps
	// the assertion independent of whatever the indentation phase does on this fixture.
	in := "{\n  foo =1;\n}\n"
	wantLine := "  foo =1;  # [9; 9): binding-equals"

	got, err := format.Explain(in)
	require.NoErrorf(t, err, "Explain(%q)", in)

	lines := strings.Split(got, "\n")
	require.Truef(t, len(lines) > 1, "expected at least one annotated line, got %q", got)
	assert.Truef(t, lines[1] == wantLine, "line 1: got %q, want %q", lines[1], wantLine)
}
