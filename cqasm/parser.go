package cqasm

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/cqasmfe/program"
)

// Parser builds a Program from the tokens of a Lexer.
//
// Grammar:
//
//	program    = NL* header NL+ qubits (NL+ item)* NL* EOF
//	header     = "version" NUMBER
//	qubits     = "qubits" INTEGER
//	item       = subcircuit | statement
//	subcircuit = "." IDENT [ "(" UINT ")" ]
//	statement  = bundle | loop | call | map | wait | op
//	bundle     = "{" op ( "|" op )* "}"
//	loop       = "loop" UINT "{" statement* "}"
//	call       = "call" IDENT
//	map        = "map" operand "," IDENT
//	wait       = "wait" UINT
//	op         = NAME [ operand ( "," operand )* ]
//	operand    = IDENT "[" index ( "," index )* "]" | IDENT | NUMBER
//	index      = UINT [ ":" UINT ]
type Parser struct {
	lex *Lexer
	isa *program.ISA

	cur  Token
	next Token
}

// NewParser creates a parser reading from lex.
func NewParser(lex *Lexer) *Parser {
	return &Parser{lex: lex, isa: program.DefaultISA}
}

// Parse parses a whole program from source text.
func Parse(file, src string) (*Program, error) {
	return NewParser(NewLexer(file, src)).Parse()
}

func (p *Parser) errorf(expected string) error {
	return &ParseError{Pos: p.cur.Pos, Expected: expected, Found: p.cur.String()}
}

// advance moves one token forward.
func (p *Parser) advance() error {
	p.cur = p.next
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.next = tok
	return nil
}

func (p *Parser) expect(kind TokenKind) (Token, error) {
	tok := p.cur
	if tok.Kind != kind {
		return tok, p.errorf(kind.String())
	}
	return tok, p.advance()
}

func (p *Parser) expectKeyword(keyword string) (Token, error) {
	tok := p.cur
	if !tok.Is(keyword) {
		return tok, p.errorf("'" + keyword + "'")
	}
	return tok, p.advance()
}

func (p *Parser) skipNewlines() error {
	for p.cur.Kind == NEWLINE {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// endOfStatement checks that the statement just parsed is followed by a
// line break or the end of the file.
func (p *Parser) endOfStatement() error {
	if p.cur.Kind != NEWLINE && p.cur.Kind != EOF {
		return p.errorf("newline")
	}
	return nil
}

// Parse parses the program. The lexer is consumed; on error no partial
// program is returned.
func (p *Parser) Parse() (*Program, error) {
	p.lex.Reset()
	for i := 0; i < 2; i++ {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	header, err := p.parseHeader()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != NEWLINE {
		return nil, p.errorf("newline")
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	qubits, err := p.parseQubits()
	if err != nil {
		return nil, err
	}

	prog := &Program{Header: header, Qubits: qubits}
	current := &SubcircuitBlock{Pos: qubits.Pos, Iterations: 1}

	for {
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if p.cur.Kind == EOF {
			break
		}

		if p.cur.Kind == DOT {
			sub, err := p.parseSubcircuitHeader()
			if err != nil {
				return nil, err
			}
			prog.appendSubcircuit(current)
			current = sub
			continue
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		current.Body = append(current.Body, stmt)
	}

	prog.appendSubcircuit(current)

	return prog, nil
}

// appendSubcircuit keeps named subcircuits even when empty, and drops the
// implicit leading one when nothing was written before the first header.
func (prog *Program) appendSubcircuit(sub *SubcircuitBlock) {
	if sub.Name == "" && len(sub.Body) == 0 {
		return
	}
	prog.Subcircuits = append(prog.Subcircuits, sub)
}

func (p *Parser) parseHeader() (*ProgramHeader, error) {
	kw, err := p.expectKeyword("version")
	if err != nil {
		return nil, err
	}
	ver, err := p.expect(NUMBER)
	if err != nil {
		return nil, err
	}
	return &ProgramHeader{Pos: kw.Pos, Version: ver.Lexeme}, nil
}

func (p *Parser) parseQubits() (*QubitDecl, error) {
	kw, err := p.expectKeyword("qubits")
	if err != nil {
		return nil, err
	}
	n, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	return &QubitDecl{Pos: kw.Pos, Count: n}, nil
}

// parseInt accepts a signed integer literal. Range checks are left to the
// resolver so that they are reported as semantic errors.
func (p *Parser) parseInt() (int, error) {
	tok := p.cur
	if tok.Kind != NUMBER {
		return 0, p.errorf("integer")
	}
	n, err := atoi(strings.TrimPrefix(tok.Lexeme, "+"))
	if err != nil {
		return 0, p.errorf("integer")
	}
	return n, p.advance()
}

func (p *Parser) parseUint() (int, error) {
	tok := p.cur
	if tok.Kind != NUMBER || !isDigits(tok.Lexeme) {
		return 0, p.errorf("non-negative integer")
	}
	n, err := atoi(tok.Lexeme)
	if err != nil {
		return 0, p.errorf("non-negative integer")
	}
	return n, p.advance()
}

// atoi converts an integer literal. Literals beyond the range of int are
// clamped, so the resolver reports them as out of range.
func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(s, "-") {
			return math.MinInt, nil
		}
		return math.MaxInt, nil
	}
	return n, err
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isName(kind TokenKind) bool {
	return kind == IDENT || kind == GATE || kind == KEYWORD
}

func (p *Parser) parseSubcircuitHeader() (*SubcircuitBlock, error) {
	dot := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	if !isName(p.cur.Kind) {
		return nil, p.errorf("subcircuit name")
	}
	sub := &SubcircuitBlock{Pos: dot.Pos, Name: p.cur.Lexeme, Iterations: 1}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.Kind != LPAREN {
		return sub, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.parseUint()
	if err != nil {
		return nil, err
	}
	sub.Iterations = n
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	return sub, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	switch {
	case p.cur.Kind == LBRACE:
		return p.parseBundle()
	case p.cur.Is("loop"):
		return p.parseLoop()
	case p.cur.Is("call"):
		return p.parseCall()
	case p.cur.Is("map"):
		return p.parseMap()
	case p.cur.Is("wait"):
		return p.parseWait()
	case p.cur.Kind == GATE || p.cur.Kind == IDENT:
		return p.parseOp()
	default:
		return nil, p.errorf("statement")
	}
}

func (p *Parser) parseOp() (Operation, error) {
	if p.cur.Kind != GATE && p.cur.Kind != IDENT {
		return nil, p.errorf("operation")
	}
	name := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}

	var operands []Operand
	switch p.cur.Kind {
	case NEWLINE, EOF, PIPE, RBRACE:
	default:
		seenNumber := false
		for {
			op, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			if seenNumber && op.Kind != NumberOperand {
				return nil, &ParseError{Pos: op.Pos, Expected: "number", Found: "qubit operand"}
			}
			seenNumber = seenNumber || op.Kind == NumberOperand
			operands = append(operands, op)

			if p.cur.Kind != COMMA {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}

	if d, ok := p.isa.Lookup(name.Lexeme); ok && d.Kind == program.Measure {
		return &MeasureStatement{Pos: name.Pos, Name: name.Lexeme, Operands: operands}, nil
	}
	return &GateStatement{Pos: name.Pos, Name: name.Lexeme, Operands: operands}, nil
}

func (p *Parser) parseOperand() (Operand, error) {
	tok := p.cur

	switch {
	case tok.Kind == NUMBER:
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return Operand{}, p.errorf("number")
		}
		return Operand{Pos: tok.Pos, Kind: NumberOperand, Value: v, Text: tok.Lexeme},
			p.advance()

	case tok.Kind == IDENT && p.next.Kind == LBRACKET:
		if err := p.advance(); err != nil {
			return Operand{}, err
		}
		if err := p.advance(); err != nil {
			return Operand{}, err
		}
		indices, err := p.parseIndexList()
		if err != nil {
			return Operand{}, err
		}
		return Operand{
			Pos:      tok.Pos,
			Kind:     QubitOperand,
			Register: tok.Lexeme,
			Indices:  indices,
		}, nil

	case tok.Kind == IDENT:
		return Operand{Pos: tok.Pos, Kind: AliasOperand, Name: tok.Lexeme},
			p.advance()

	default:
		return Operand{}, p.errorf("operand")
	}
}

func (p *Parser) parseIndexList() ([]IndexRange, error) {
	var indices []IndexRange
	for {
		lo, err := p.parseUint()
		if err != nil {
			return nil, err
		}
		r := IndexRange{Lo: lo, Hi: lo}
		if p.cur.Kind == COLON {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if r.Hi, err = p.parseUint(); err != nil {
				return nil, err
			}
		}
		indices = append(indices, r)

		switch p.cur.Kind {
		case COMMA:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case RBRACKET:
			return indices, p.advance()
		default:
			return nil, p.errorf("',' or ']'")
		}
	}
}

func (p *Parser) parseBundle() (*BundleStatement, error) {
	open := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}

	bundle := &BundleStatement{Pos: open.Pos}
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		op, err := p.parseOp()
		if err != nil {
			return nil, err
		}
		bundle.Ops = append(bundle.Ops, op)

		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		switch p.cur.Kind {
		case PIPE:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case RBRACE:
			return bundle, p.advance()
		default:
			return nil, p.errorf("'|' or '}'")
		}
	}
}

func (p *Parser) parseLoop() (*LoopBlock, error) {
	kw := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	count, err := p.parseUint()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}

	loop := &LoopBlock{Pos: kw.Pos, Count: count}
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		switch p.cur.Kind {
		case RBRACE:
			return loop, p.advance()
		case EOF:
			return nil, p.errorf("'}'")
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		loop.Body = append(loop.Body, stmt)

		if p.cur.Kind != NEWLINE && p.cur.Kind != RBRACE {
			return nil, p.errorf("newline or '}'")
		}
	}
}

func (p *Parser) parseCall() (*CallStatement, error) {
	kw := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	if !isName(p.cur.Kind) {
		return nil, p.errorf("subcircuit name")
	}
	call := &CallStatement{Pos: kw.Pos, Name: p.cur.Lexeme}
	return call, p.advance()
}

func (p *Parser) parseMap() (*MapStatement, error) {
	kw := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	qubit, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if qubit.Kind == NumberOperand {
		return nil, &ParseError{Pos: qubit.Pos, Expected: "qubit operand", Found: "number"}
	}
	if _, err := p.expect(COMMA); err != nil {
		return nil, err
	}
	alias, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	return &MapStatement{Pos: kw.Pos, Qubit: qubit, Alias: alias.Lexeme}, nil
}

func (p *Parser) parseWait() (*WaitStatement, error) {
	kw := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.parseUint()
	if err != nil {
		return nil, err
	}
	return &WaitStatement{Pos: kw.Pos, Cycles: n}, nil
}
