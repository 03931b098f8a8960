// Package engine contains the SQL tokenizer, parser and execution engine.
//
// What: Tokenize turns SQL text into typed tokens, Parse builds one AST
// statement from them, and Engine applies statements to a storage.Database.
// How: A single-pass byte scanner feeds a recursive-descent parser whose
// rules are pure functions over an immutable token cursor. Execution
// type-checks every expression against the table schema before touching a
// row, then evaluates predicates with three-valued logic.
// Why: Keeping each stage free of shared mutable state makes the parser
// reentrant and lets every stage be tested on its own.
package engine

import (
	"strconv"
	"strings"

	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
)

// TokenType classifies a token.
type TokenType int

const (
	TokEOF TokenType = iota
	TokKeyword
	TokIdent
	TokInt
	TokFloat
	TokString
	TokOperator
	TokPunct
)

var tokenTypeNames = [...]string{
	TokEOF:      "end of input",
	TokKeyword:  "keyword",
	TokIdent:    "identifier",
	TokInt:      "integer",
	TokFloat:    "float",
	TokString:   "string",
	TokOperator: "operator",
	TokPunct:    "punctuation",
}

func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "token"
}

// Token is one lexical unit. Keywords are upper-cased in Val; identifiers
// keep their spelling. Int and Float carry the parsed literal.
type Token struct {
	Type  TokenType
	Val   string
	Int   int64
	Float float64
	Pos   int
}

func (t Token) describe() string {
	switch t.Type {
	case TokEOF:
		return "end of input"
	case TokString:
		return "string '" + t.Val + "'"
	case TokKeyword:
		return t.Val
	default:
		return strconv.Quote(t.Val)
	}
}

var keywords = map[string]bool{
	"CREATE": true, "TABLE": true, "INSERT": true, "INTO": true, "VALUES": true,
	"SELECT": true, "FROM": true, "WHERE": true, "UPDATE": true, "SET": true,
	"DELETE": true, "ORDER": true, "BY": true, "ASC": true, "DESC": true,
	"LIMIT": true, "AND": true, "OR": true, "NOT": true, "IS": true,
	"NULL": true, "TRUE": true, "FALSE": true,
}

// Tokenize scans the whole input. Whitespace and comments (-- and /* */)
// are skipped; the result always ends with a TokEOF token.
func Tokenize(sql string) ([]Token, error) {
	lx := lexer{s: sql}
	var out []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Type == TokEOF {
			return out, nil
		}
	}
}

type lexer struct {
	s   string
	pos int
}

func (lx *lexer) peekAt(n int) byte {
	if lx.pos+n >= len(lx.s) {
		return 0
	}
	return lx.s[lx.pos+n]
}

func (lx *lexer) skipSpaceAndComments() error {
	for lx.pos < len(lx.s) {
		c := lx.s[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			lx.pos++
		case c == '-' && lx.peekAt(1) == '-':
			for lx.pos < len(lx.s) && lx.s[lx.pos] != '\n' {
				lx.pos++
			}
		case c == '/' && lx.peekAt(1) == '*':
			start := lx.pos
			end := strings.Index(lx.s[lx.pos+2:], "*/")
			if end < 0 {
				return sqlerr.Lexf(start, "unterminated block comment")
			}
			lx.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) next() (Token, error) {
	if err := lx.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}
	start := lx.pos
	if start >= len(lx.s) {
		return Token{Type: TokEOF, Pos: start}, nil
	}
	c := lx.s[start]
	switch {
	case c == '\'':
		return lx.scanString(start)
	case c == '"':
		return lx.scanQuotedIdent(start)
	case isDigit(c) || (c == '.' && isDigit(lx.peekAt(1))):
		return lx.scanNumber(start)
	case isIdentStart(c):
		return lx.scanWord(start), nil
	}
	return lx.scanSymbol(start)
}

// scanString reads a single-quoted literal; '' inside encodes one quote.
func (lx *lexer) scanString(start int) (Token, error) {
	lx.pos++
	var b strings.Builder
	for lx.pos < len(lx.s) {
		c := lx.s[lx.pos]
		lx.pos++
		if c == '\'' {
			if lx.pos < len(lx.s) && lx.s[lx.pos] == '\'' {
				b.WriteByte('\'')
				lx.pos++
				continue
			}
			return Token{Type: TokString, Val: b.String(), Pos: start}, nil
		}
		b.WriteByte(c)
	}
	return Token{}, sqlerr.Lexf(start, "unterminated string literal")
}

// scanQuotedIdent reads a double-quoted identifier; "" inside encodes one
// double quote. Quoted identifiers are never keywords.
func (lx *lexer) scanQuotedIdent(start int) (Token, error) {
	lx.pos++
	var b strings.Builder
	for lx.pos < len(lx.s) {
		c := lx.s[lx.pos]
		lx.pos++
		if c == '"' {
			if lx.pos < len(lx.s) && lx.s[lx.pos] == '"' {
				b.WriteByte('"')
				lx.pos++
				continue
			}
			if b.Len() == 0 {
				return Token{}, sqlerr.Lexf(start, "empty quoted identifier")
			}
			return Token{Type: TokIdent, Val: b.String(), Pos: start}, nil
		}
		b.WriteByte(c)
	}
	return Token{}, sqlerr.Lexf(start, "unterminated quoted identifier")
}

// scanNumber reads digits with an optional fraction and exponent. A literal
// without '.' or exponent is an integer and must fit in int64.
func (lx *lexer) scanNumber(start int) (Token, error) {
	isFloat := false
	for lx.pos < len(lx.s) && isDigit(lx.s[lx.pos]) {
		lx.pos++
	}
	if lx.pos < len(lx.s) && lx.s[lx.pos] == '.' {
		isFloat = true
		lx.pos++
		for lx.pos < len(lx.s) && isDigit(lx.s[lx.pos]) {
			lx.pos++
		}
	}
	if c := lx.peekAt(0); c == 'e' || c == 'E' {
		isFloat = true
		lx.pos++
		if c := lx.peekAt(0); c == '+' || c == '-' {
			lx.pos++
		}
		if !isDigit(lx.peekAt(0)) {
			return Token{}, sqlerr.Lexf(start, "invalid numeric literal %q: missing exponent digits", lx.s[start:lx.pos])
		}
		for lx.pos < len(lx.s) && isDigit(lx.s[lx.pos]) {
			lx.pos++
		}
	}
	// 1.2.3, 12abc and similar run-ons are one malformed literal.
	if c := lx.peekAt(0); c == '.' || isIdentStart(c) {
		for lx.pos < len(lx.s) && (isIdentPart(lx.s[lx.pos]) || lx.s[lx.pos] == '.') {
			lx.pos++
		}
		return Token{}, sqlerr.Lexf(start, "invalid numeric literal %q", lx.s[start:lx.pos])
	}
	text := lx.s[start:lx.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, sqlerr.Lexf(start, "float literal %q out of range", text)
		}
		return Token{Type: TokFloat, Val: text, Float: f, Pos: start}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, sqlerr.Lexf(start, "integer literal %s overflows 64 bits", text)
	}
	return Token{Type: TokInt, Val: text, Int: n, Pos: start}, nil
}

func (lx *lexer) scanWord(start int) Token {
	for lx.pos < len(lx.s) && isIdentPart(lx.s[lx.pos]) {
		lx.pos++
	}
	word := lx.s[start:lx.pos]
	if up := strings.ToUpper(word); keywords[up] {
		return Token{Type: TokKeyword, Val: up, Pos: start}
	}
	return Token{Type: TokIdent, Val: word, Pos: start}
}

func (lx *lexer) scanSymbol(start int) (Token, error) {
	c := lx.s[start]
	switch c {
	case '(', ')', ',', ';', '*':
		lx.pos++
		if c == '*' {
			// '*' is both the projection star and multiplication; the
			// parser decides by position.
			return Token{Type: TokOperator, Val: "*", Pos: start}, nil
		}
		return Token{Type: TokPunct, Val: string(c), Pos: start}, nil
	case '+', '-', '/':
		lx.pos++
		return Token{Type: TokOperator, Val: string(c), Pos: start}, nil
	case '=':
		lx.pos++
		return Token{Type: TokOperator, Val: "=", Pos: start}, nil
	case '!':
		if lx.peekAt(1) == '=' {
			lx.pos += 2
			return Token{Type: TokOperator, Val: "!=", Pos: start}, nil
		}
	case '<':
		switch lx.peekAt(1) {
		case '=':
			lx.pos += 2
			return Token{Type: TokOperator, Val: "<=", Pos: start}, nil
		case '>':
			lx.pos += 2
			return Token{Type: TokOperator, Val: "!=", Pos: start}, nil
		}
		lx.pos++
		return Token{Type: TokOperator, Val: "<", Pos: start}, nil
	case '>':
		if lx.peekAt(1) == '=' {
			lx.pos += 2
			return Token{Type: TokOperator, Val: ">=", Pos: start}, nil
		}
		lx.pos++
		return Token{Type: TokOperator, Val: ">", Pos: start}, nil
	}
	return Token{}, sqlerr.Lexf(start, "unexpected character %q", rune(c))
}

func isDigit(c byte) bool      { return '0' <= c && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c >= 0x80 }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
