package ncx

import (
	"fmt"
	"unicode/utf8"

	"github.com/elinlund/ncx/token"
)

// Scanner tokenizes configuration language source code into a stream of tokens. Unlike a
// conventional lexer, Scanner never skips anything: whitespace and comments are returned as
// ordinary tokens, so that nothing about the source text is lost. It is the parser's job to ignore
// trivia when deciding what production to take, while still attaching every token it sees to the
// tree it builds.
//
// String literals are tokenized as a sequence of StringStart, StringContent/InterpolStart/
// InterpolEnd and StringEnd tokens rather than a single opaque token, since an embedded `${ expr }`
// must itself be fully tokenized (and, later, formatted) as ordinary source. Scanner tracks this
// with a small mode stack: entering a string pushes a string frame, `${` pushes a normal-mode frame
// so brace matching resumes, and the matching `}` pops back to the string.
type Scanner struct {
	src   string
	pos   int
	stack []scanFrame
}

type scanMode int

const (
	modeNormal scanMode = iota
	modeString
	modeIndentString
)

type scanFrame struct {
	mode scanMode
	// depth counts unmatched '{' seen since this frame was pushed. It lets a normal-mode frame
	// opened by an interpolation's "${" tell an attribute set's closing '}' from the '}' that
	// closes the interpolation itself.
	depth int
}

// NewScanner returns a scanner positioned at the start of src.
func NewScanner(src string) *Scanner {
	return &Scanner{src: src, stack: []scanFrame{{mode: modeNormal}}}
}

func (sc *Scanner) top() *scanFrame { return &sc.stack[len(sc.stack)-1] }
func (sc *Scanner) push(f scanFrame) { sc.stack = append(sc.stack, f) }
func (sc *Scanner) pop()             { sc.stack = sc.stack[:len(sc.stack)-1] }

func (sc *Scanner) atEOF() bool { return sc.pos >= len(sc.src) }

func (sc *Scanner) byteAt(offset int) byte {
	if sc.pos+offset >= len(sc.src) {
		return 0
	}
	return sc.src[sc.pos+offset]
}

func (sc *Scanner) hasPrefix(prefix string) bool {
	return sc.pos+len(prefix) <= len(sc.src) && sc.src[sc.pos:sc.pos+len(prefix)] == prefix
}

func (sc *Scanner) tok(kind token.Kind, start, end int) token.Token {
	return token.Token{Kind: kind, Literal: sc.src[start:end], Start: start, End: end}
}

// Next scans and returns the next token. Once the input is exhausted it returns an [token.EOF]
// token forever.
func (sc *Scanner) Next() token.Token {
	switch sc.top().mode {
	case modeString:
		return sc.nextString(false)
	case modeIndentString:
		return sc.nextString(true)
	default:
		return sc.nextNormal()
	}
}

func (sc *Scanner) nextString(indent bool) token.Token {
	if sc.atEOF() {
		return sc.tok(token.EOF, sc.pos, sc.pos)
	}
	if indent {
		if sc.hasPrefix("''") {
			start := sc.pos
			sc.pos += 2
			sc.pop()
			return sc.tok(token.IndentStringEnd, start, sc.pos)
		}
	} else if sc.src[sc.pos] == '"' {
		start := sc.pos
		sc.pos++
		sc.pop()
		return sc.tok(token.StringEnd, start, sc.pos)
	}
	if sc.hasPrefix("${") {
		start := sc.pos
		sc.pos += 2
		sc.push(scanFrame{mode: modeNormal})
		return sc.tok(token.InterpolStart, start, sc.pos)
	}
	return sc.scanStringContent(indent)
}

// scanStringContent consumes a run of literal text up to (not including) the next unescaped
// interpolation start or closing delimiter. Escape sequences are recognized only so their
// delimiter-like characters are not mistaken for the end of the string; their text is kept
// verbatim, since the formatter never interprets string content.
func (sc *Scanner) scanStringContent(indent bool) token.Token {
	start := sc.pos
	for !sc.atEOF() {
		if indent {
			switch {
			case sc.hasPrefix("'''"):
				sc.pos += 3
				continue
			case sc.hasPrefix("''$"):
				sc.pos += 3
				continue
			case sc.hasPrefix("''\\"):
				sc.pos += 3
				if !sc.atEOF() {
					_, size := utf8.DecodeRuneInString(sc.src[sc.pos:])
					sc.pos += size
				}
				continue
			case sc.hasPrefix("''"), sc.hasPrefix("${"):
				return sc.tok(token.StringContent, start, sc.pos)
			}
		} else {
			if sc.src[sc.pos] == '\\' {
				sc.pos++
				if !sc.atEOF() {
					_, size := utf8.DecodeRuneInString(sc.src[sc.pos:])
					sc.pos += size
				}
				continue
			}
			if sc.src[sc.pos] == '"' || sc.hasPrefix("${") {
				return sc.tok(token.StringContent, start, sc.pos)
			}
		}
		_, size := utf8.DecodeRuneInString(sc.src[sc.pos:])
		sc.pos += size
	}
	return sc.tok(token.StringContent, start, sc.pos)
}

func (sc *Scanner) nextNormal() token.Token {
	if sc.atEOF() {
		return sc.tok(token.EOF, sc.pos, sc.pos)
	}

	r := sc.src[sc.pos]
	switch {
	case isSpace(r):
		return sc.scanWhitespace()
	case r == '#':
		return sc.scanLineComment()
	case r == '/' && sc.byteAt(1) == '*':
		return sc.scanBlockComment()
	case r == '"':
		start := sc.pos
		sc.pos++
		sc.push(scanFrame{mode: modeString})
		return sc.tok(token.StringStart, start, sc.pos)
	case sc.hasPrefix("''"):
		start := sc.pos
		sc.pos += 2
		sc.push(scanFrame{mode: modeIndentString})
		return sc.tok(token.IndentStringStart, start, sc.pos)
	case r == '<':
		if tok, ok := sc.tryScanSearchPath(); ok {
			return tok
		}
		return sc.scanOperator()
	case r == '~':
		if looksLikePathStart(sc.src, sc.pos) {
			return sc.scanPath()
		}
		return sc.scanOperator()
	case r == '/':
		if sc.byteAt(1) == '/' {
			return sc.scanOperator() // `//` update operator
		}
		if looksLikePathStart(sc.src, sc.pos) {
			return sc.scanPath()
		}
		return sc.scanOperator()
	case r == '.':
		if sc.byteAt(1) == '.' && sc.byteAt(2) == '.' {
			start := sc.pos
			sc.pos += 3
			return sc.tok(token.Ellipsis, start, sc.pos)
		}
		if (sc.byteAt(1) == '/' || sc.byteAt(1) == '.') && looksLikePathStart(sc.src, sc.pos) {
			return sc.scanPath()
		}
		start := sc.pos
		sc.pos++
		return sc.tok(token.Dot, start, sc.pos)
	case r == '{':
		sc.top().depth++
		start := sc.pos
		sc.pos++
		return sc.tok(token.LeftBrace, start, sc.pos)
	case r == '}':
		if len(sc.stack) > 1 && sc.top().depth == 0 {
			start := sc.pos
			sc.pos++
			sc.pop()
			return sc.tok(token.InterpolEnd, start, sc.pos)
		}
		sc.top().depth--
		start := sc.pos
		sc.pos++
		return sc.tok(token.RightBrace, start, sc.pos)
	case isDigit(r):
		return sc.scanNumber()
	case isIdentStart(r):
		return sc.scanIdentOrPathOrURI()
	default:
		return sc.scanOperator()
	}
}

func isSpace(r byte) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }
func isDigit(r byte) bool { return r >= '0' && r <= '9' }
func isIdentStart(r byte) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
func isIdentCont(r byte) bool {
	return isIdentStart(r) || isDigit(r) || r == '\'' || r == '-'
}

func (sc *Scanner) scanWhitespace() token.Token {
	start := sc.pos
	for !sc.atEOF() && isSpace(sc.src[sc.pos]) {
		sc.pos++
	}
	return sc.tok(token.Whitespace, start, sc.pos)
}

func (sc *Scanner) scanLineComment() token.Token {
	start := sc.pos
	for !sc.atEOF() && sc.src[sc.pos] != '\n' {
		sc.pos++
	}
	return sc.tok(token.Comment, start, sc.pos)
}

func (sc *Scanner) scanBlockComment() token.Token {
	start := sc.pos
	sc.pos += 2
	for !sc.atEOF() {
		if sc.hasPrefix("*/") {
			sc.pos += 2
			break
		}
		sc.pos++
	}
	return sc.tok(token.Comment, start, sc.pos)
}

// scanIdentOrPathOrURI scans a run of identifier characters and then, by looking at what follows,
// decides whether the whole thing is a plain identifier/keyword, the head of a bare path
// (`foo/bar`) or the scheme of a URI (`scheme:rest`). This mirrors the maximal-munch ambiguity a
// Nix-like grammar has to resolve at the lexer level rather than the parser level.
func (sc *Scanner) scanIdentOrPathOrURI() token.Token {
	start := sc.pos
	for !sc.atEOF() && isIdentCont(sc.src[sc.pos]) {
		sc.pos++
	}
	if !sc.atEOF() && sc.src[sc.pos] == '/' && sc.byteAt(1) != '/' {
		sc.pos = start
		return sc.scanPath()
	}
	if !sc.atEOF() && sc.src[sc.pos] == ':' && looksLikeURIRest(sc.src, sc.pos+1) {
		sc.pos = start
		return sc.scanURI()
	}
	literal := sc.src[start:sc.pos]
	return token.Token{Kind: token.LookupIdent(literal), Literal: literal, Start: start, End: sc.pos}
}

func looksLikeURIRest(src string, pos int) bool {
	if pos >= len(src) {
		return false
	}
	switch src[pos] {
	case ' ', '\t', '\n', '\r', ';', ',', ')', '}', ']', 0:
		return false
	case '=':
		return false
	}
	return true
}

var pathChars = func() [256]bool {
	var m [256]bool
	for c := 'a'; c <= 'z'; c++ {
		m[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		m[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		m[c] = true
	}
	for _, c := range []byte{'.', '_', '-', '+', '~', '/'} {
		m[c] = true
	}
	return m
}()

// looksLikePathStart reports whether the text at pos begins one of the recognized path forms:
// `/...`, `./...`, `../...`, `~/...` or a bare segment containing a `/`.
func looksLikePathStart(src string, pos int) bool {
	end := pos
	for end < len(src) && pathChars[src[end]] {
		end++
	}
	segment := src[pos:end]
	for i := 0; i < len(segment); i++ {
		if segment[i] == '/' && i+1 < len(segment) {
			return true
		}
	}
	return false
}

func (sc *Scanner) scanPath() token.Token {
	start := sc.pos
	for !sc.atEOF() && pathChars[sc.src[sc.pos]] {
		sc.pos++
	}
	return sc.tok(token.Path, start, sc.pos)
}

func (sc *Scanner) scanURI() token.Token {
	start := sc.pos
	for !sc.atEOF() && looksLikeURIRest(sc.src, sc.pos) {
		sc.pos++
	}
	return sc.tok(token.Uri, start, sc.pos)
}

func (sc *Scanner) tryScanSearchPath() (token.Token, bool) {
	end := sc.pos + 1
	for end < len(sc.src) && sc.src[end] != '>' && sc.src[end] != '\n' && sc.src[end] != ' ' {
		end++
	}
	if end >= len(sc.src) || sc.src[end] != '>' {
		return token.Token{}, false
	}
	start := sc.pos
	sc.pos = end + 1
	return sc.tok(token.SearchPath, start, sc.pos), true
}

func (sc *Scanner) scanNumber() token.Token {
	start := sc.pos
	for !sc.atEOF() && isDigit(sc.src[sc.pos]) {
		sc.pos++
	}
	isFloat := false
	if !sc.atEOF() && sc.src[sc.pos] == '.' && sc.byteAt(1) >= '0' && sc.byteAt(1) <= '9' {
		isFloat = true
		sc.pos++
		for !sc.atEOF() && isDigit(sc.src[sc.pos]) {
			sc.pos++
		}
	}
	if !sc.atEOF() && (sc.src[sc.pos] == 'e' || sc.src[sc.pos] == 'E') {
		save := sc.pos
		sc.pos++
		if !sc.atEOF() && (sc.src[sc.pos] == '+' || sc.src[sc.pos] == '-') {
			sc.pos++
		}
		if !sc.atEOF() && isDigit(sc.src[sc.pos]) {
			isFloat = true
			for !sc.atEOF() && isDigit(sc.src[sc.pos]) {
				sc.pos++
			}
		} else {
			sc.pos = save
		}
	}
	kind := token.Int
	if isFloat {
		kind = token.Float
	}
	return sc.tok(kind, start, sc.pos)
}

// operators is tried longest-prefix-first so that e.g. "->" is not mistaken for "-" followed by
// ">".
var operators = []struct {
	text string
	kind token.Kind
}{
	{"...", token.Ellipsis},
	{"++", token.Concat},
	{"//", token.Update},
	{"==", token.Eq},
	{"!=", token.NotEq},
	{"<=", token.LessEq},
	{">=", token.GreaterEq},
	{"&&", token.And},
	{"||", token.Or},
	{"->", token.Implies},
	{"{", token.LeftBrace},
	{"}", token.RightBrace},
	{"[", token.LeftBracket},
	{"]", token.RightBracket},
	{"(", token.LeftParen},
	{")", token.RightParen},
	{";", token.Semicolon},
	{"=", token.Equals},
	{",", token.Comma},
	{":", token.Colon},
	{"@", token.At},
	{"?", token.Question},
	{".", token.Dot},
	{"+", token.Plus},
	{"-", token.Minus},
	{"*", token.Star},
	{"/", token.Slash},
	{"<", token.Less},
	{">", token.Greater},
	{"!", token.Not},
}

func (sc *Scanner) scanOperator() token.Token {
	for _, op := range operators {
		if sc.hasPrefix(op.text) {
			start := sc.pos
			sc.pos += len(op.text)
			return sc.tok(op.kind, start, sc.pos)
		}
	}
	start := sc.pos
	_, size := utf8.DecodeRuneInString(sc.src[sc.pos:])
	sc.pos += size
	return token.Token{Kind: token.ERROR, Literal: sc.src[start:sc.pos], Start: start, End: sc.pos}
}

// ScannerError describes a position a scanner or parser rejected.
type ScannerError struct {
	Pos    token.Position
	Reason string
}

func (e ScannerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Reason)
}
