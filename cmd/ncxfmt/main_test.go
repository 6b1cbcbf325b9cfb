package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teleivo/assertive/assert"
	"github.com/teleivo/assertive/require"
)

func runWithArgs(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(append([]string{"ncxfmt"}, args...), strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestRunStdin(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"formats a set": {
			in:   "{foo = 92;\n}",
			want: "{\n  foo = 92;\n}\n",
		},
		"formats a list": {
			in:   "[1 2 3]",
			want: "[ 1 2 3 ]\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			stdout, _, err := runWithArgs(t, test.in)
			require.NoErrorf(t, err, "run(%q)", test.in)
			assert.NoDiff(t, stdout, test.want)
		})
	}
}

func TestRunCheck(t *testing.T) {
	t.Run("already formatted reports no error", func(t *testing.T) {
		_, _, err := runWithArgs(t, "{ foo = 92; }\n", "--check")
		assert.NoError(t, err)
	})

	t.Run("unformatted input fails", func(t *testing.T) {
		_, _, err := runWithArgs(t, "{foo=92;}", "--check")
		require.NotNil(t, err)
	})
}

func TestRunExplain(t *testing.T) {
	stdout, _, err := runWithArgs(t, "{\n  foo =1;\n}\n", "--explain")
	require.NoError(t, err)
	assert.Truef(t, strings.Contains(stdout, "binding-equals"), "expected an annotation naming binding-equals, got %q", stdout)
}

func TestRunParse(t *testing.T) {
	stdout, _, err := runWithArgs(t, "{ }", "--parse")
	require.NoError(t, err)
	assert.Truef(t, strings.Contains(stdout, "AttrSet"), "expected the tree dump to mention AttrSet, got %q", stdout)
}

func TestRunVersion(t *testing.T) {
	stdout, _, err := runWithArgs(t, "", "--version")
	require.NoError(t, err)
	assert.Truef(t, len(strings.TrimSpace(stdout)) > 0, "expected a non-empty version string")
}

func TestRunFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.nix")
	require.NoError(t, os.WriteFile(path, []byte("{foo = 1;\n}"), 0o644))

	_, _, err := runWithArgs(t, "", "--write", path)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NoDiff(t, string(got), "{\n  foo = 1;\n}\n")
}

func TestRunDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.nix"), []byte("{foo = 1;\n}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.nix"), []byte("{ bar = 2; }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.me"), []byte("not nix"), 0o644))

	_, _, err := runWithArgs(t, "", "--check", dir)
	require.NotNil(t, err)

	_, _, err = runWithArgs(t, "", "--write", dir)
	require.NoError(t, err)

	_, _, err = runWithArgs(t, "", "--check", dir)
	require.NoError(t, err)
}

