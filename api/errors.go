package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAborted is the cause of a RuntimeError raised by Abort.
var ErrAborted = errors.New("session aborted")

// RuntimeError reports a failure while a session was running. Index is the
// position of the instruction in the stream, or -1 when the failure is not
// tied to an instruction.
type RuntimeError struct {
	Op    string
	Index int
	Err   error
}

func (e *RuntimeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("runtime error in %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("runtime error in %s at instruction %d: %v", e.Op, e.Index, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// InvalidStateError reports an operation that is not legal in the current
// session state.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Op, e.State)
}

// IsAborted reports whether err was caused by Abort.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
