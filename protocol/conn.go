package protocol

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is returned by a Conn after either end closed it.
var ErrClosed = errors.New("connection closed")

// Conn is one end of a message connection. Send and Recv may be called from
// different goroutines, but only one goroutine may call Recv at a time.
type Conn interface {
	Send(ctx context.Context, msg Msg) error
	Recv(ctx context.Context) (Msg, error)
	Close() error
}

// pipeBufSize bounds the messages in flight in each direction.
const pipeBufSize = 256

type pipe struct {
	done chan struct{}
	once sync.Once
}

func (p *pipe) close() {
	p.once.Do(func() { close(p.done) })
}

type pipeEnd struct {
	pipe *pipe
	in   <-chan Msg
	out  chan<- Msg
}

// NewPipe creates an in-memory connection and returns both of its ends.
func NewPipe() (Conn, Conn) {
	p := &pipe{done: make(chan struct{})}
	a := make(chan Msg, pipeBufSize)
	b := make(chan Msg, pipeBufSize)

	return &pipeEnd{pipe: p, in: a, out: b}, &pipeEnd{pipe: p, in: b, out: a}
}

func (e *pipeEnd) Send(ctx context.Context, msg Msg) error {
	select {
	case <-e.pipe.done:
		return ErrClosed
	default:
	}

	select {
	case e.out <- msg:
		return nil
	case <-e.pipe.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv returns buffered messages before reporting a closed pipe.
func (e *pipeEnd) Recv(ctx context.Context) (Msg, error) {
	select {
	case msg := <-e.in:
		return msg, nil
	default:
	}

	select {
	case msg := <-e.in:
		return msg, nil
	case <-e.pipe.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *pipeEnd) Close() error {
	e.pipe.close()
	return nil
}
