package protocol

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/cqasm"
)

// ErrorKind classifies an ErrorMsg.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindLex
	KindParse
	KindSemantic
	KindRuntime
	KindInvalidState
)

var errorKindNames = map[ErrorKind]string{
	KindInternal:     "Internal",
	KindLex:          "Lex",
	KindParse:        "Parse",
	KindSemantic:     "Semantic",
	KindRuntime:      "Runtime",
	KindInvalidState: "InvalidState",
}

func (k ErrorKind) String() string {
	if n, ok := errorKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// KindOf maps an error returned by the compiler or the runtime to the kind
// reported over the wire.
func KindOf(err error) ErrorKind {
	var (
		serr *api.InvalidStateError
		rerr *api.RuntimeError
		lerr *cqasm.LexError
		perr *cqasm.ParseError
		merr *cqasm.SemanticError
	)

	switch {
	case errors.As(err, &serr):
		return KindInvalidState
	case errors.As(err, &lerr):
		return KindLex
	case errors.As(err, &perr):
		return KindParse
	case errors.As(err, &merr):
		return KindSemantic
	case errors.As(err, &rerr):
		return KindRuntime
	default:
		return KindInternal
	}
}

// NewErrorMsg builds the ErrorMsg that reports err as the answer to the
// request with the given ID.
func NewErrorMsg(respondTo string, err error) *ErrorMsg {
	b := ErrorMsgBuilder{}.
		WithRespondTo(respondTo).
		WithKind(KindOf(err)).
		WithMessage(err.Error())

	if pos, ok := cqasm.PositionOf(err); ok {
		b = b.WithPosition(pos.File, pos.Line, pos.Column)
	}

	return b.Build()
}
