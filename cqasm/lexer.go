package cqasm

import (
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"

	"github.com/sarchlab/cqasmfe/program"
)

var cqasmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\r\n]*`},
	{Name: "Newline", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t\f\v]+`},
	{Name: "Number", Pattern: `[-+]?(\d+\.\d*|\.\d+|\d+)([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `(?i:reset-averaging)|[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[,\[\](){}|:.]`},
})

var symbolNames = func() map[lexer.TokenType]string {
	names := make(map[lexer.TokenType]string)
	for name, tt := range cqasmLexer.Symbols() {
		names[tt] = name
	}
	return names
}()

// Lexer turns source text into tokens on demand. It can be restarted with
// Reset. Once it reports an error, every following call to Next returns
// the same error.
type Lexer struct {
	file string
	src  string
	isa  *program.ISA

	lex  lexer.Lexer
	last Token
	err  error
	done bool
}

// NewLexer creates a lexer over src. The file name is only used in
// positions.
func NewLexer(file, src string) *Lexer {
	l := &Lexer{file: file, src: src, isa: program.DefaultISA}
	l.Reset()
	return l
}

// Reset restarts the lexer at the beginning of the source.
func (l *Lexer) Reset() {
	l.err = nil
	l.done = false
	l.last = Token{}

	lex, err := cqasmLexer.LexString(l.file, l.src)
	if err != nil {
		l.err = l.lexError(err)
		return
	}
	l.lex = lex
}

// Next returns the next significant token. After the end of input it keeps
// returning EOF.
func (l *Lexer) Next() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}
	if l.done {
		return l.last, nil
	}

	for {
		raw, err := l.lex.Next()
		if err != nil {
			l.err = l.lexError(err)
			return Token{}, l.err
		}

		pos := Position{File: l.file, Line: raw.Pos.Line, Column: raw.Pos.Column}
		if raw.Type == lexer.EOF {
			l.done = true
			l.last = Token{Kind: EOF, Pos: pos}
			return l.last, nil
		}

		switch symbolNames[raw.Type] {
		case "Comment", "Whitespace":
			continue
		case "Newline":
			return Token{Kind: NEWLINE, Lexeme: raw.Value, Pos: pos}, nil
		case "Number":
			return Token{Kind: NUMBER, Lexeme: raw.Value, Pos: pos}, nil
		case "Ident":
			return Token{Kind: l.classify(raw.Value), Lexeme: raw.Value, Pos: pos}, nil
		case "Punct":
			return Token{Kind: punctuation[raw.Value], Lexeme: raw.Value, Pos: pos}, nil
		default:
			l.err = &LexError{Pos: pos, Char: firstRune(raw.Value)}
			return Token{}, l.err
		}
	}
}

// All drains the lexer and returns every token including the final EOF.
func (l *Lexer) All() ([]Token, error) {
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) classify(ident string) TokenKind {
	name := lower(ident)
	if keywords[name] {
		return KEYWORD
	}
	if _, ok := l.isa.Lookup(name); ok {
		return GATE
	}
	return IDENT
}

func (l *Lexer) lexError(err error) error {
	var perr *lexer.Error
	if !errors.As(err, &perr) {
		return &LexError{Pos: Position{File: l.file}, Char: utf8.RuneError}
	}

	pos := Position{File: l.file, Line: perr.Pos.Line, Column: perr.Pos.Column}
	char := utf8.RuneError
	if off := perr.Pos.Offset; off >= 0 && off < len(l.src) {
		char = firstRune(l.src[off:])
	}
	return &LexError{Pos: pos, Char: char}
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lower(s string) string {
	return strings.ToLower(s)
}
