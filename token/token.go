// Package token defines the lexical and syntactic kinds shared by the scanner, parser and
// formatter, together with the [Token] and [KindSet] types used to navigate and match them.
//
// Unlike a conventional lexer package, Kind enumerates both leaf tokens (braces, operators,
// identifiers, whitespace, comments) and the composite tree kinds produced by the parser (attribute
// sets, lambdas, let/in, ...). Keeping both in one namespace lets the formatter's pattern engine
// match a syntax element by kind without caring whether that element is a token or a node, mirroring
// how the concrete syntax tree is walked uniformly in the rest of the module.
package token

import "fmt"

// Kind identifies the syntactic category of a token or tree node.
type Kind int

const (
	ERROR Kind = iota
	// EOF marks the end of input. No token follows it.
	EOF

	Whitespace
	Comment // '#'-line or '/* */'-block, text includes the delimiters

	Ident
	Int
	Float
	Path       // ./foo/bar, /foo/bar, ~/foo
	SearchPath // <nixpkgs>
	Uri        // scheme:rest, unquoted

	StringStart       // "
	StringEnd         // "
	StringContent     // raw text run inside a string or indented string
	IndentStringStart // ''
	IndentStringEnd   // ''
	InterpolStart     // ${
	InterpolEnd       // } closing an interpolation

	LeftBrace    // {
	RightBrace   // }
	LeftBracket  // [
	RightBracket // ]
	LeftParen    // (
	RightParen   // )

	Semicolon // ;
	Equals    // =
	Comma     // ,
	Colon     // :
	At        // @
	Question  // ?
	Ellipsis  // ...
	Dot       // .

	Plus  // +
	Minus // -
	Star  // *
	Slash // /

	Concat    // ++
	Update    // //
	Eq        // ==
	NotEq     // !=
	Less      // <
	LessEq    // <=
	Greater   // >
	GreaterEq // >=
	And       // &&
	Or        // ||
	Implies   // ->
	Not       // !

	KwIf
	KwThen
	KwElse
	KwLet
	KwIn
	KwWith
	KwAssert
	KwRec
	KwInherit
	KwOr // the "or" used by the default-valued select expression

	// Tree (non-terminal) kinds. A parse error in a subtree is reported as ErrorNode rather than
	// aborting the whole parse.
	Root
	ErrorNode
	ParenExpr
	AttrSet
	List
	Lambda
	Formals
	Formal
	LetIn
	With
	Assert
	IfThenElse
	Apply
	UnaryOp
	BinOp
	HasAttr
	Select
	AttrPath
	Attr
	Binding
	Inherit
	IdentNode
	Literal
	Str
	IndentedStr
	Interpolation

	numKinds
)

var names = [numKinds]string{
	ERROR:             "ERROR",
	EOF:               "EOF",
	Whitespace:        "WHITESPACE",
	Comment:           "COMMENT",
	Ident:             "IDENT",
	Int:               "INT",
	Float:             "FLOAT",
	Path:              "PATH",
	SearchPath:        "SEARCH_PATH",
	Uri:               "URI",
	StringStart:       `"`,
	StringEnd:         `"`,
	StringContent:     "STRING_CONTENT",
	IndentStringStart: "''",
	IndentStringEnd:   "''",
	InterpolStart:     "${",
	InterpolEnd:       "}",
	LeftBrace:         "{",
	RightBrace:        "}",
	LeftBracket:       "[",
	RightBracket:      "]",
	LeftParen:         "(",
	RightParen:        ")",
	Semicolon:         ";",
	Equals:            "=",
	Comma:             ",",
	Colon:             ":",
	At:                "@",
	Question:          "?",
	Ellipsis:          "...",
	Dot:               ".",
	Plus:              "+",
	Minus:             "-",
	Star:              "*",
	Slash:             "/",
	Concat:            "++",
	Update:            "//",
	Eq:                "==",
	NotEq:             "!=",
	Less:              "<",
	LessEq:            "<=",
	Greater:           ">",
	GreaterEq:         ">=",
	And:               "&&",
	Or:                "||",
	Implies:           "->",
	Not:               "!",
	KwIf:              "if",
	KwThen:            "then",
	KwElse:            "else",
	KwLet:             "let",
	KwIn:              "in",
	KwWith:            "with",
	KwAssert:          "assert",
	KwRec:             "rec",
	KwInherit:         "inherit",
	KwOr:              "or",
	Root:              "Root",
	ErrorNode:         "ErrorNode",
	ParenExpr:         "ParenExpr",
	AttrSet:           "AttrSet",
	List:              "List",
	Lambda:            "Lambda",
	Formals:           "Formals",
	Formal:            "Formal",
	LetIn:             "LetIn",
	With:              "With",
	Assert:            "Assert",
	IfThenElse:        "IfThenElse",
	Apply:             "Apply",
	UnaryOp:           "UnaryOp",
	BinOp:             "BinOp",
	HasAttr:           "HasAttr",
	Select:            "Select",
	AttrPath:          "AttrPath",
	Attr:              "Attr",
	Binding:           "Binding",
	Inherit:           "Inherit",
	IdentNode:         "Ident",
	Literal:           "Literal",
	Str:               "Str",
	IndentedStr:       "IndentedStr",
	Interpolation:     "Interpolation",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(names) || names[k] == "" {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return names[k]
}

// IsTrivia reports whether tokens of this kind carry no syntactic meaning besides formatting.
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == Comment
}

var keywords = map[string]Kind{
	"if":      KwIf,
	"then":    KwThen,
	"else":    KwElse,
	"let":     KwLet,
	"in":      KwIn,
	"with":    KwWith,
	"assert":  KwAssert,
	"rec":     KwRec,
	"inherit": KwInherit,
	"or":      KwOr,
}

// LookupIdent returns the keyword Kind for ident, or Ident if it is not a keyword.
func LookupIdent(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return Ident
}

// Token is a single lexical token: its kind, verbatim source text and byte range.
type Token struct {
	Kind       Kind
	Literal    string
	Start, End int // byte offsets into the source text
}

// String returns the literal text for identifier-like tokens, the kind name otherwise.
func (t Token) String() string {
	switch t.Kind {
	case Ident, Int, Float, Path, SearchPath, Uri, StringContent, Comment:
		return t.Literal
	default:
		return t.Kind.String()
	}
}

// KindSet is a small, fast set of [Kind] values used as a dispatch filter. The zero value is the
// empty set.
type KindSet struct {
	words [2]uint64 // supports kinds 0..127
}

// NewKindSet returns the set containing exactly the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.Add(k)
	}
	return s
}

// Add returns a set with k additionally included.
func (s KindSet) Add(k Kind) KindSet {
	word, bit := int(k)/64, uint(int(k)%64)
	s.words[word] |= 1 << bit
	return s
}

// Union returns the set of kinds present in s or other.
func (s KindSet) Union(other KindSet) KindSet {
	return KindSet{[2]uint64{s.words[0] | other.words[0], s.words[1] | other.words[1]}}
}

// Intersect returns the set of kinds present in both s and other.
func (s KindSet) Intersect(other KindSet) KindSet {
	return KindSet{[2]uint64{s.words[0] & other.words[0], s.words[1] & other.words[1]}}
}

// Has reports whether k is a member of s.
func (s KindSet) Has(k Kind) bool {
	word, bit := int(k)/64, uint(int(k)%64)
	return s.words[word]&(1<<bit) != 0
}

// IsEmpty reports whether s has no members.
func (s KindSet) IsEmpty() bool {
	return s.words[0] == 0 && s.words[1] == 0
}

// Kinds returns the members of s in ascending order.
func (s KindSet) Kinds() []Kind {
	var kinds []Kind
	for k := Kind(0); k < numKinds; k++ {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
