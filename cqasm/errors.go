package cqasm

import (
	"fmt"

	"github.com/pkg/errors"
)

// LexError reports a character that matches no token rule. It ends lexing
// of the file.
type LexError struct {
	Pos  Position
	Char rune
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: unrecognized character %q", e.Pos, e.Char)
}

// ParseError reports a token that violates the grammar.
type ParseError struct {
	Pos      Position
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// SemanticErrorKind classifies semantic errors.
type SemanticErrorKind int

const (
	UnknownGate SemanticErrorKind = iota
	ArityMismatch
	QubitOutOfRange
	RecursionError
	InvalidRegisterSize
	UnsupportedVersion
	UnknownSubcircuit
	DuplicateSubcircuit
	InvalidOperand
	DuplicateOperand
	InvalidParameter
	ExpansionLimit
)

var semanticKindNames = map[SemanticErrorKind]string{
	UnknownGate:         "UnknownGate",
	ArityMismatch:       "ArityMismatch",
	QubitOutOfRange:     "QubitOutOfRange",
	RecursionError:      "RecursionError",
	InvalidRegisterSize: "InvalidRegisterSize",
	UnsupportedVersion:  "UnsupportedVersion",
	UnknownSubcircuit:   "UnknownSubcircuit",
	DuplicateSubcircuit: "DuplicateSubcircuit",
	InvalidOperand:      "InvalidOperand",
	DuplicateOperand:    "DuplicateOperand",
	InvalidParameter:    "InvalidParameter",
	ExpansionLimit:      "ExpansionLimit",
}

func (k SemanticErrorKind) String() string {
	if n, ok := semanticKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("SemanticErrorKind(%d)", int(k))
}

// SemanticError reports a program that parses but cannot be resolved.
type SemanticError struct {
	Kind  SemanticErrorKind
	Pos   Position
	Ident string
	Value int
	Msg   string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

func semanticErrorf(
	kind SemanticErrorKind,
	pos Position,
	ident string,
	value int,
	format string,
	args ...any,
) *SemanticError {
	return &SemanticError{
		Kind:  kind,
		Pos:   pos,
		Ident: ident,
		Value: value,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// IsSemantic reports whether err is, or wraps, a SemanticError of the given
// kind.
func IsSemantic(err error, kind SemanticErrorKind) bool {
	var serr *SemanticError
	return errors.As(err, &serr) && serr.Kind == kind
}

// CompileStage names the compiler stage an error was raised in.
type CompileStage int

const (
	StageLex CompileStage = iota
	StageParse
	StageResolve
)

var stageNames = map[CompileStage]string{
	StageLex:     "lex",
	StageParse:   "parse",
	StageResolve: "resolve",
}

func (s CompileStage) String() string {
	return stageNames[s]
}

// CompileError wraps any error returned by Compile.
type CompileError struct {
	Stage CompileStage
	File  string
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error [%s]: %v", e.Stage, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// PositionOf extracts the source position carried by a compile error.
func PositionOf(err error) (Position, bool) {
	var (
		lerr *LexError
		perr *ParseError
		serr *SemanticError
	)
	switch {
	case errors.As(err, &lerr):
		return lerr.Pos, true
	case errors.As(err, &perr):
		return perr.Pos, true
	case errors.As(err, &serr):
		return serr.Pos, true
	}
	return Position{}, false
}

func newCompileError(file string, err error) *CompileError {
	stage := StageResolve
	var (
		lerr *LexError
		perr *ParseError
	)
	switch {
	case errors.As(err, &lerr):
		stage = StageLex
	case errors.As(err, &perr):
		stage = StageParse
	}
	return &CompileError{Stage: stage, File: file, Err: err}
}
