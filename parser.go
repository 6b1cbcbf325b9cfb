// Package ncx provides a lossless concrete syntax tree (CST) for a lazily evaluated, functional
// configuration language, together with the scanner and recursive-descent parser that build it.
//
// # Grammar
//
// The parser implements a Nix-like expression grammar:
//
//	expr        : lambda | 'assert' expr ';' expr | 'with' expr ';' expr | letIn | ifExpr
//	lambda      : IDENT ':' expr
//	            | IDENT '@' formals ':' expr
//	            | formals [ '@' IDENT ] ':' expr
//	formals     : '{' [ formal (',' formal)* [ ',' ] [ '...' ] ] '}'
//	formal      : IDENT [ '?' expr ]
//	letIn       : 'let' binding* 'in' expr
//	ifExpr      : 'if' expr 'then' expr 'else' expr | opExpr
//	opExpr      : opExpr '->' opExpr | opExpr '||' opExpr | ... | unary   (see precedence table)
//	unary       : ( '-' | '!' ) unary | application
//	application : select select*
//	select      : primary [ '.' attrpath [ 'or' select ] ] [ '?' attrpath ]
//	primary     : IDENT | INT | FLOAT | PATH | SEARCH_PATH | URI | string | indentedString
//	            | '(' expr ')' | list | attrset | 'rec' attrset
//	list        : '[' select* ']'
//	attrset     : '{' ( binding | inherit )* '}'
//	binding     : attrpath '=' expr ';'
//	inherit     : 'inherit' [ '(' expr ')' ] IDENT* ';'
//	attrpath    : attr ( '.' attr )*
//	attr        : IDENT | string | '${' expr '}'
//
// Binary operators bind, from loosest to tightest: '->', '||', '&&', '==' '!=', '<' '<=' '>' '>=',
// '//', '+' '-', '*' '/', '++'.
package ncx

import (
	"fmt"

	"github.com/elinlund/ncx/token"
)

// Error represents a parse error. Pos points at the offending token; Msg describes the problem.
type Error struct {
	Pos token.Position
	Msg string
}

// Error formats the error as "line:column: message".
func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Parser parses source text into a concrete syntax tree.
//
// Parser is error-resilient: it never stops at the first syntax error. Instead it wraps the
// offending token in an [token.ErrorNode] and keeps going, collecting every error for later
// retrieval via [Parser.Errors]. The returned tree is lossless: every byte of the input, including
// whitespace and comments, ends up attached to some node.
type Parser struct {
	src           string
	scanner       *Scanner
	lineIndex     *token.LineIndex
	cur           token.Token
	pendingTrivia []token.Token
	errors        []Error
}

// NewParser returns a parser for src.
func NewParser(src string) *Parser {
	p := &Parser{
		src:       src,
		scanner:   NewScanner(src),
		lineIndex: token.NewLineIndex(src),
	}
	p.advance()
	return p
}

// Parse parses src and returns the root of the concrete syntax tree. Parse always returns a tree,
// even for syntactically invalid input; check [Parser.Errors] to learn whether recovery occurred.
func Parse(src string) (*Tree, []Error) {
	p := NewParser(src)
	return p.Parse(), p.Errors()
}

// Errors returns every error collected during parsing, in the order encountered.
func (p *Parser) Errors() []Error {
	return p.errors
}

// Parse parses the whole of p's source as a single expression, reporting anything left over as
// trailing-input errors.
func (p *Parser) Parse() *Tree {
	root := &Tree{Kind: token.Root}
	if !p.curTokenIs(token.EOF) {
		root.appendTree(p.parseExpr())
	}
	for !p.curTokenIs(token.EOF) {
		p.wrapErrorMsg(root, "is unexpected trailing input")
	}
	p.flushPendingTrivia(root)
	return root
}

func (p *Parser) advance() {
	for {
		tok := p.scanner.Next()
		if tok.Kind.IsTrivia() {
			p.pendingTrivia = append(p.pendingTrivia, tok)
			continue
		}
		p.cur = tok
		return
	}
}

func (p *Parser) flushPendingTrivia(tree *Tree) {
	for _, t := range p.pendingTrivia {
		tree.appendToken(t)
	}
	p.pendingTrivia = p.pendingTrivia[:0]
}

func (p *Parser) curTokenIs(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.cur.Kind == k {
			return true
		}
	}
	return false
}

// consume appends the current token to tree, along with any trivia that preceded it, and advances.
func (p *Parser) consume(tree *Tree) {
	p.flushPendingTrivia(tree)
	tree.appendToken(p.cur)
	p.advance()
}

// expect consumes the current token into tree if it matches want, reporting an error and leaving
// the cursor in place otherwise.
func (p *Parser) expect(tree *Tree, want token.Kind) bool {
	if p.curTokenIs(want) {
		p.consume(tree)
		return true
	}
	p.errorExpected(want)
	return false
}

func (p *Parser) error(msg string) {
	p.errors = append(p.errors, Error{Pos: p.lineIndex.PositionFor(p.cur.Start), Msg: msg})
}

func (p *Parser) errorExpected(want token.Kind) {
	p.error(fmt.Sprintf("expected %s, got %s", want, p.cur))
}

// wrapError consumes the current token into a fresh [token.ErrorNode], appended to tree, and
// records a generic "unexpected token" error.
func (p *Parser) wrapError(tree *Tree) {
	if p.cur.Kind == token.ERROR {
		p.error(fmt.Sprintf("illegal character %q", p.cur.Literal))
	} else {
		p.error(fmt.Sprintf("unexpected token %s", p.cur))
	}
	p.wrapBadToken(tree)
}

// wrapErrorMsg is like [Parser.wrapError] but records "<token> <suffix>" instead.
func (p *Parser) wrapErrorMsg(tree *Tree, suffix string) {
	p.error(fmt.Sprintf("%s %s", p.cur, suffix))
	p.wrapBadToken(tree)
}

func (p *Parser) wrapBadToken(tree *Tree) {
	errTree := &Tree{Kind: token.ErrorNode}
	p.flushPendingTrivia(errTree)
	errTree.appendToken(p.cur)
	tree.appendTree(errTree)
	p.advance()
}

// peekKind scans ahead to the next non-trivia token kind without consuming it.
func (p *Parser) peekKind() token.Kind {
	snap := p.snapshotScanner()
	defer p.restoreScanner(snap)
	for {
		tok := p.scanner.Next()
		if !tok.Kind.IsTrivia() {
			return tok.Kind
		}
	}
}

// looksLikeFormals decides, by scanning ahead for the matching '}' and the token that follows it,
// whether the '{' under the cursor opens a lambda's formal parameter list rather than an attribute
// set literal. Both start identically, so resolving the ambiguity needs this lookahead; a plain
// recursive-descent parser cannot tell them apart from the opening brace alone.
func (p *Parser) looksLikeFormals() bool {
	snap := p.snapshotScanner()
	defer p.restoreScanner(snap)
	depth := 1
	for {
		tok := p.scanner.Next()
		switch tok.Kind {
		case token.LeftBrace:
			depth++
		case token.RightBrace:
			depth--
			if depth == 0 {
				for {
					next := p.scanner.Next()
					if next.Kind.IsTrivia() {
						continue
					}
					return next.Kind == token.Colon || next.Kind == token.At
				}
			}
		case token.EOF:
			return false
		}
	}
}

type scannerSnapshot struct {
	pos   int
	stack []scanFrame
}

func (p *Parser) snapshotScanner() scannerSnapshot {
	stack := make([]scanFrame, len(p.scanner.stack))
	copy(stack, p.scanner.stack)
	return scannerSnapshot{pos: p.scanner.pos, stack: stack}
}

func (p *Parser) restoreScanner(s scannerSnapshot) {
	p.scanner.pos = s.pos
	p.scanner.stack = s.stack
}

func isAtomStart(k token.Kind) bool {
	switch k {
	case token.Ident, token.Int, token.Float, token.Path, token.SearchPath, token.Uri,
		token.StringStart, token.IndentStringStart, token.LeftParen, token.LeftBracket,
		token.LeftBrace, token.KwRec:
		return true
	}
	return false
}

func isAttrStart(k token.Kind) bool {
	switch k {
	case token.Ident, token.StringStart, token.InterpolStart:
		return true
	}
	return false
}

// parseExpr parses a full expression, including the forms (lambda, assert, with, let/in) that may
// only appear at the outermost level of an expression, never as an un-parenthesized operand of a
// binary operator or function application.
func (p *Parser) parseExpr() *Tree {
	switch {
	case p.curTokenIs(token.Ident) && p.peekKind() == token.Colon:
		return p.parseSimpleLambda()
	case p.curTokenIs(token.Ident) && p.peekKind() == token.At:
		return p.parseBoundFormalsLambda()
	case p.curTokenIs(token.LeftBrace) && p.looksLikeFormals():
		return p.parseFormalsLambda()
	case p.curTokenIs(token.KwAssert):
		return p.parseAssert()
	case p.curTokenIs(token.KwWith):
		return p.parseWith()
	case p.curTokenIs(token.KwLet):
		return p.parseLetIn()
	default:
		return p.parseIf()
	}
}

func (p *Parser) parseSimpleLambda() *Tree {
	lam := &Tree{Kind: token.Lambda}
	formal := &Tree{Kind: token.Formal}
	formal.appendTree(p.parseIdentNode())
	lam.appendTree(formal)
	p.expect(lam, token.Colon)
	lam.appendTree(p.parseExpr())
	return lam
}

func (p *Parser) parseBoundFormalsLambda() *Tree {
	lam := &Tree{Kind: token.Lambda}
	lam.appendTree(p.parseIdentNode())
	p.expect(lam, token.At)
	lam.appendTree(p.parseFormals())
	p.expect(lam, token.Colon)
	lam.appendTree(p.parseExpr())
	return lam
}

func (p *Parser) parseFormalsLambda() *Tree {
	lam := &Tree{Kind: token.Lambda}
	lam.appendTree(p.parseFormals())
	if p.curTokenIs(token.At) {
		p.consume(lam)
		lam.appendTree(p.parseIdentNode())
	}
	p.expect(lam, token.Colon)
	lam.appendTree(p.parseExpr())
	return lam
}

func (p *Parser) parseFormals() *Tree {
	formals := &Tree{Kind: token.Formals}
	p.expect(formals, token.LeftBrace)
	for !p.curTokenIs(token.RightBrace, token.EOF) {
		if p.curTokenIs(token.Ellipsis) {
			p.consume(formals)
			break
		}
		if !p.curTokenIs(token.Ident) {
			p.wrapErrorMsg(formals, "is not a valid formal parameter")
			continue
		}
		formal := &Tree{Kind: token.Formal}
		formal.appendTree(p.parseIdentNode())
		if p.curTokenIs(token.Question) {
			p.consume(formal)
			formal.appendTree(p.parseExpr())
		}
		formals.appendTree(formal)
		if p.curTokenIs(token.Comma) {
			p.consume(formals)
		} else if !p.curTokenIs(token.RightBrace, token.Ellipsis) {
			break
		}
	}
	p.expect(formals, token.RightBrace)
	return formals
}

func (p *Parser) parseAssert() *Tree {
	n := &Tree{Kind: token.Assert}
	p.expect(n, token.KwAssert)
	n.appendTree(p.parseExpr())
	p.expect(n, token.Semicolon)
	n.appendTree(p.parseExpr())
	return n
}

func (p *Parser) parseWith() *Tree {
	n := &Tree{Kind: token.With}
	p.expect(n, token.KwWith)
	n.appendTree(p.parseExpr())
	p.expect(n, token.Semicolon)
	n.appendTree(p.parseExpr())
	return n
}

func (p *Parser) parseLetIn() *Tree {
	n := &Tree{Kind: token.LetIn}
	p.expect(n, token.KwLet)
	for !p.curTokenIs(token.KwIn, token.EOF) {
		switch {
		case p.curTokenIs(token.KwInherit):
			n.appendTree(p.parseInherit())
		case isAttrStart(p.cur.Kind):
			n.appendTree(p.parseBinding())
		default:
			p.wrapErrorMsg(n, "is not a valid binding")
		}
	}
	p.expect(n, token.KwIn)
	n.appendTree(p.parseExpr())
	return n
}

func (p *Parser) parseIf() *Tree {
	if !p.curTokenIs(token.KwIf) {
		return p.parseBinary(1)
	}
	n := &Tree{Kind: token.IfThenElse}
	p.expect(n, token.KwIf)
	n.appendTree(p.parseExpr())
	p.expect(n, token.KwThen)
	n.appendTree(p.parseExpr())
	p.expect(n, token.KwElse)
	n.appendTree(p.parseExpr())
	return n
}

type binOpInfo struct {
	level      int
	rightAssoc bool
}

// binOps maps a binary operator token to its precedence level (higher binds tighter) and
// associativity. Listed loosest to tightest: '->', '||', '&&', '==' '!=', comparisons, '//', '+'
// '-', '*' '/', '++'.
var binOps = map[token.Kind]binOpInfo{
	token.Implies:   {1, true},
	token.Or:        {2, false},
	token.And:       {3, false},
	token.Eq:        {4, false},
	token.NotEq:     {4, false},
	token.Less:      {5, false},
	token.LessEq:    {5, false},
	token.Greater:   {5, false},
	token.GreaterEq: {5, false},
	token.Update:    {6, true},
	token.Plus:      {7, false},
	token.Minus:     {7, false},
	token.Star:      {8, false},
	token.Slash:     {8, false},
	token.Concat:    {9, true},
}

func (p *Parser) parseBinary(minLevel int) *Tree {
	left := p.parseUnary()
	for {
		info, ok := binOps[p.cur.Kind]
		if !ok || info.level < minLevel {
			return left
		}
		node := &Tree{Kind: token.BinOp}
		node.appendTree(left)
		p.consume(node)
		nextMin := info.level + 1
		if info.rightAssoc {
			nextMin = info.level
		}
		node.appendTree(p.parseBinary(nextMin))
		left = node
	}
}

func (p *Parser) parseUnary() *Tree {
	if p.curTokenIs(token.Minus, token.Not) {
		n := &Tree{Kind: token.UnaryOp}
		p.consume(n)
		n.appendTree(p.parseUnary())
		return n
	}
	return p.parseApp()
}

func (p *Parser) parseApp() *Tree {
	node := p.parseSelect()
	for isAtomStart(p.cur.Kind) {
		apply := &Tree{Kind: token.Apply}
		apply.appendTree(node)
		apply.appendTree(p.parseSelect())
		node = apply
	}
	return node
}

func (p *Parser) parseSelect() *Tree {
	node := p.parsePrimary()
	if p.curTokenIs(token.Dot) {
		sel := &Tree{Kind: token.Select}
		sel.appendTree(node)
		p.consume(sel)
		sel.appendTree(p.parseAttrPath())
		if p.curTokenIs(token.KwOr) {
			p.consume(sel)
			sel.appendTree(p.parseSelect())
		}
		node = sel
	}
	if p.curTokenIs(token.Question) {
		has := &Tree{Kind: token.HasAttr}
		has.appendTree(node)
		p.consume(has)
		has.appendTree(p.parseAttrPath())
		node = has
	}
	return node
}

func (p *Parser) parsePrimary() *Tree {
	switch p.cur.Kind {
	case token.Ident:
		return p.parseIdentNode()
	case token.Int, token.Float, token.Path, token.SearchPath, token.Uri:
		lit := &Tree{Kind: token.Literal}
		p.consume(lit)
		return lit
	case token.StringStart:
		return p.parseString()
	case token.IndentStringStart:
		return p.parseIndentedString()
	case token.LeftParen:
		n := &Tree{Kind: token.ParenExpr}
		p.expect(n, token.LeftParen)
		n.appendTree(p.parseExpr())
		p.expect(n, token.RightParen)
		return n
	case token.LeftBracket:
		return p.parseList()
	case token.LeftBrace:
		return p.parseAttrSet(nil)
	case token.KwRec:
		set := &Tree{Kind: token.AttrSet}
		p.consume(set)
		return p.parseAttrSet(set)
	default:
		return p.parsePrimaryError()
	}
}

func (p *Parser) parsePrimaryError() *Tree {
	if p.curTokenIs(token.EOF) {
		p.error("expected expression")
		return &Tree{Kind: token.ErrorNode}
	}
	errTree := &Tree{Kind: token.ErrorNode}
	p.error(fmt.Sprintf("%s cannot start an expression", p.cur))
	p.flushPendingTrivia(errTree)
	errTree.appendToken(p.cur)
	p.advance()
	return errTree
}

func (p *Parser) parseIdentNode() *Tree {
	n := &Tree{Kind: token.IdentNode}
	p.expect(n, token.Ident)
	return n
}

func (p *Parser) parseList() *Tree {
	list := &Tree{Kind: token.List}
	p.expect(list, token.LeftBracket)
	for !p.curTokenIs(token.RightBracket, token.EOF) {
		if isAtomStart(p.cur.Kind) {
			list.appendTree(p.parseSelect())
		} else {
			p.wrapErrorMsg(list, "is not a valid list element")
		}
	}
	p.expect(list, token.RightBracket)
	return list
}

// parseAttrSet parses the body of an attribute set: '{' (binding | inherit)* '}'. If set is
// non-nil it is reused as the node being built, so a leading 'rec' keyword already consumed by the
// caller ends up as the first child.
func (p *Parser) parseAttrSet(set *Tree) *Tree {
	if set == nil {
		set = &Tree{Kind: token.AttrSet}
	}
	p.expect(set, token.LeftBrace)
	for !p.curTokenIs(token.RightBrace, token.EOF) {
		switch {
		case p.curTokenIs(token.KwInherit):
			set.appendTree(p.parseInherit())
		case isAttrStart(p.cur.Kind):
			set.appendTree(p.parseBinding())
		default:
			p.wrapErrorMsg(set, "cannot start a binding")
		}
	}
	p.expect(set, token.RightBrace)
	return set
}

func (p *Parser) parseBinding() *Tree {
	b := &Tree{Kind: token.Binding}
	b.appendTree(p.parseAttrPath())
	p.expect(b, token.Equals)
	b.appendTree(p.parseExpr())
	p.expect(b, token.Semicolon)
	return b
}

func (p *Parser) parseInherit() *Tree {
	inh := &Tree{Kind: token.Inherit}
	p.expect(inh, token.KwInherit)
	if p.curTokenIs(token.LeftParen) {
		p.expect(inh, token.LeftParen)
		inh.appendTree(p.parseExpr())
		p.expect(inh, token.RightParen)
	}
	for p.curTokenIs(token.Ident) {
		inh.appendTree(p.parseIdentNode())
	}
	p.expect(inh, token.Semicolon)
	return inh
}

func (p *Parser) parseAttrPath() *Tree {
	path := &Tree{Kind: token.AttrPath}
	path.appendTree(p.parseAttr())
	for p.curTokenIs(token.Dot) {
		p.consume(path)
		path.appendTree(p.parseAttr())
	}
	return path
}

func (p *Parser) parseAttr() *Tree {
	attr := &Tree{Kind: token.Attr}
	switch p.cur.Kind {
	case token.Ident:
		attr.appendTree(p.parseIdentNode())
	case token.StringStart:
		attr.appendTree(p.parseString())
	case token.InterpolStart:
		attr.appendTree(p.parseInterpolation())
	default:
		p.wrapErrorMsg(attr, "is not a valid attribute name")
	}
	return attr
}

func (p *Parser) parseString() *Tree {
	str := &Tree{Kind: token.Str}
	p.expect(str, token.StringStart)
	for !p.curTokenIs(token.StringEnd, token.EOF) {
		switch p.cur.Kind {
		case token.StringContent:
			p.consume(str)
		case token.InterpolStart:
			str.appendTree(p.parseInterpolation())
		default:
			p.wrapError(str)
		}
	}
	p.expect(str, token.StringEnd)
	return str
}

func (p *Parser) parseIndentedString() *Tree {
	str := &Tree{Kind: token.IndentedStr}
	p.expect(str, token.IndentStringStart)
	for !p.curTokenIs(token.IndentStringEnd, token.EOF) {
		switch p.cur.Kind {
		case token.StringContent:
			p.consume(str)
		case token.InterpolStart:
			str.appendTree(p.parseInterpolation())
		default:
			p.wrapError(str)
		}
	}
	p.expect(str, token.IndentStringEnd)
	return str
}

func (p *Parser) parseInterpolation() *Tree {
	interp := &Tree{Kind: token.Interpolation}
	p.expect(interp, token.InterpolStart)
	interp.appendTree(p.parseExpr())
	p.expect(interp, token.InterpolEnd)
	return interp
}
