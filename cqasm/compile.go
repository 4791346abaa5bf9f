// Package cqasm compiles cQASM 1.x source text into an instruction stream.
//
// Compilation runs in three stages. The lexer turns text into tokens, the
// parser builds a syntax tree, and the resolver checks the tree against the
// gate set and expands loops, subcircuits and parallel operands into a flat
// program.Stream.
package cqasm

import (
	"os"

	"github.com/pkg/errors"

	"github.com/sarchlab/cqasmfe/program"
)

// Compile compiles a program. Any error is a *CompileError that wraps the
// underlying *LexError, *ParseError or *SemanticError.
func Compile(file, src string, opts ...Option) (*program.Stream, error) {
	prog, err := Parse(file, src)
	if err != nil {
		return nil, newCompileError(file, err)
	}

	stream, err := Resolve(prog, opts...)
	if err != nil {
		return nil, newCompileError(file, err)
	}

	return stream, nil
}

// CompileFile reads and compiles the file at path.
func CompileFile(path string, opts ...Option) (*program.Stream, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return Compile(path, string(src), opts...)
}
