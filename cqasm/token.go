package cqasm

import "fmt"

// TokenKind identifies the category of a lexed token.
type TokenKind int

const (
	EOF TokenKind = iota

	IDENT   // identifiers that are neither keywords nor gates
	NUMBER  // integer or decimal literal, optionally signed
	GATE    // identifier naming a gate of the instruction set
	KEYWORD // version, qubits, loop, call, map, wait

	COMMA    // ,
	NEWLINE  // \n or \r\n
	LBRACKET // [
	RBRACKET // ]
	LPAREN   // (
	RPAREN   // )
	LBRACE   // {
	RBRACE   // }
	PIPE     // |
	COLON    // :
	DOT      // .
)

var kindNames = map[TokenKind]string{
	EOF:      "end of file",
	IDENT:    "identifier",
	NUMBER:   "number",
	GATE:     "gate",
	KEYWORD:  "keyword",
	COMMA:    "','",
	NEWLINE:  "newline",
	LBRACKET: "'['",
	RBRACKET: "']'",
	LPAREN:   "'('",
	RPAREN:   "')'",
	LBRACE:   "'{'",
	RBRACE:   "'}'",
	PIPE:     "'|'",
	COLON:    "':'",
	DOT:      "'.'",
}

func (k TokenKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

var keywords = map[string]bool{
	"version": true,
	"qubits":  true,
	"loop":    true,
	"call":    true,
	"map":     true,
	"wait":    true,
}

var punctuation = map[string]TokenKind{
	",": COMMA,
	"[": LBRACKET,
	"]": RBRACKET,
	"(": LPAREN,
	")": RPAREN,
	"{": LBRACE,
	"}": RBRACE,
	"|": PIPE,
	":": COLON,
	".": DOT,
}

// Position is a location in a source file. Line and Column are 1-based.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	file := p.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d", file, p.Line, p.Column)
}

// Before reports whether p comes earlier in the source than o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Token is a single lexeme. Tokens are values and never change after the
// lexer produced them.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Pos    Position
}

func (t Token) String() string {
	switch t.Kind {
	case EOF, NEWLINE:
		return t.Kind.String()
	default:
		return fmt.Sprintf("%q", t.Lexeme)
	}
}

// Is reports whether the token is the given keyword, case-insensitively.
func (t Token) Is(keyword string) bool {
	return t.Kind == KEYWORD && lower(t.Lexeme) == keyword
}
