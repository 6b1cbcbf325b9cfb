package ncx

import (
	"testing"

	"github.com/elinlund/ncx/token"
	"github.com/teleivo/assertive/assert"
)

func scanAll(src string) []token.Token {
	sc := NewScanner(src)
	var toks []token.Token
	for {
		tok := sc.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScannerPunctuationAndOperators(t *testing.T) {
	tests := map[string]struct {
		in   string
		want []token.Kind
	}{
		"Empty": {in: "", want: []token.Kind{token.EOF}},
		"Braces": {
			in:   "{}[]()",
			want: []token.Kind{token.LeftBrace, token.RightBrace, token.LeftBracket, token.RightBracket, token.LeftParen, token.RightParen, token.EOF},
		},
		"Operators": {
			in: "-> || && == != <= >= ++ // + - * / < > ! ? : @ ; , .",
			want: []token.Kind{
				token.Implies, token.Whitespace,
				token.Or, token.Whitespace,
				token.And, token.Whitespace,
				token.Eq, token.Whitespace,
				token.NotEq, token.Whitespace,
				token.LessEq, token.Whitespace,
				token.GreaterEq, token.Whitespace,
				token.Concat, token.Whitespace,
				token.Update, token.Whitespace,
				token.Plus, token.Whitespace,
				token.Minus, token.Whitespace,
				token.Star, token.Whitespace,
				token.Slash, token.Whitespace,
				token.Less, token.Whitespace,
				token.Greater, token.Whitespace,
				token.Not, token.Whitespace,
				token.Question, token.Whitespace,
				token.Colon, token.Whitespace,
				token.At, token.Whitespace,
				token.Semicolon, token.Whitespace,
				token.Comma, token.Whitespace,
				token.Dot,
				token.EOF,
			},
		},
		"Ellipsis": {in: "...", want: []token.Kind{token.Ellipsis, token.EOF}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := scanAll(test.in)
			assert.Equals(t, len(got), len(test.want), "token count for %q", test.in)
			for i, tok := range got {
				if i < len(test.want) {
					assert.Equals(t, tok.Kind, test.want[i], "token %d of %q", i, test.in)
				}
			}
		})
	}
}

func TestScannerIdentsKeywordsAndNumbers(t *testing.T) {
	tests := map[string]struct {
		in       string
		wantKind token.Kind
		wantLit  string
	}{
		"Ident":    {in: "fooBar_1", wantKind: token.Ident, wantLit: "fooBar_1"},
		"KwIf":     {in: "if", wantKind: token.KwIf, wantLit: "if"},
		"KwLet":    {in: "let", wantKind: token.KwLet, wantLit: "let"},
		"KwRec":    {in: "rec", wantKind: token.KwRec, wantLit: "rec"},
		"Int":      {in: "42", wantKind: token.Int, wantLit: "42"},
		"Float":    {in: "3.14", wantKind: token.Float, wantLit: "3.14"},
		"FloatExp": {in: "1.5e10", wantKind: token.Float, wantLit: "1.5e10"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := scanAll(test.in)
			assert.Equals(t, got[0].Kind, test.wantKind, "kind for %q", test.in)
			assert.Equals(t, got[0].Literal, test.wantLit, "literal for %q", test.in)
		})
	}
}

func TestScannerPaths(t *testing.T) {
	tests := map[string]string{
		"Absolute": "/etc/nixos",
		"Relative": "./foo/bar",
		"Parent":   "../foo",
		"Home":     "~/.config",
		"Bare":     "foo/bar",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			got := scanAll(in)
			assert.Equals(t, got[0].Kind, token.Path, "kind for %q", in)
			assert.Equals(t, got[0].Literal, in, "literal for %q", in)
		})
	}
}

func TestScannerSearchPath(t *testing.T) {
	got := scanAll("<nixpkgs>")
	assert.Equals(t, got[0].Kind, token.SearchPath, "kind")
	assert.Equals(t, got[0].Literal, "<nixpkgs>", "literal")
}

func TestScannerComments(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"Line":  {in: "# hello\n", want: "# hello"},
		"Block": {in: "/* hello */", want: "/* hello */"},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := scanAll(test.in)
			assert.Equals(t, got[0].Kind, token.Comment, "kind for %q", test.in)
			assert.Equals(t, got[0].Literal, test.want, "literal for %q", test.in)
		})
	}
}

func TestScannerSimpleString(t *testing.T) {
	got := scanAll(`"hello ${ world }!"`)
	want := []token.Kind{
		token.StringStart, token.StringContent, token.InterpolStart, token.Whitespace,
		token.Ident, token.Whitespace, token.InterpolEnd, token.StringContent,
		token.StringEnd, token.EOF,
	}
	assert.Equals(t, len(got), len(want), "token count")
	for i, tok := range got {
		assert.Equals(t, tok.Kind, want[i], "token %d", i)
	}
}

func TestScannerEscapedStringContent(t *testing.T) {
	got := scanAll(`"a\"b"`)
	assert.Equals(t, got[0].Kind, token.StringStart, "kind 0")
	assert.Equals(t, got[1].Kind, token.StringContent, "kind 1")
	assert.Equals(t, got[1].Literal, `a\"b`, "literal 1")
	assert.Equals(t, got[2].Kind, token.StringEnd, "kind 2")
}

func TestScannerIndentedString(t *testing.T) {
	got := scanAll("''\n  hi ''${escaped} bye\n''")
	assert.Equals(t, got[0].Kind, token.IndentStringStart, "kind 0")
	last := got[len(got)-2]
	assert.Equals(t, last.Kind, token.IndentStringEnd, "last non-EOF token")
}

func TestScannerNestedAttrSetInInterpolation(t *testing.T) {
	got := scanAll(`"${ { a = 1; }.a }"`)
	var kinds []token.Kind
	for _, tok := range got {
		kinds = append(kinds, tok.Kind)
	}
	// the inner '{' and '}' of the attribute set must scan as LeftBrace/RightBrace, and only the
	// outer '}' closing the interpolation becomes InterpolEnd.
	assert.Equals(t, countKind(kinds, token.LeftBrace), 1, "LeftBrace count")
	assert.Equals(t, countKind(kinds, token.RightBrace), 1, "RightBrace count")
	assert.Equals(t, countKind(kinds, token.InterpolEnd), 1, "InterpolEnd count")
}

func countKind(kinds []token.Kind, want token.Kind) int {
	n := 0
	for _, k := range kinds {
		if k == want {
			n++
		}
	}
	return n
}
