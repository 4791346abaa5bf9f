package api

import (
	"context"

	"github.com/sarchlab/cqasmfe/program"
	"github.com/sarchlab/cqasmfe/quantum"
)

// RunSession loads a compiled stream into a new session and runs it to
// completion.
func RunSession(
	ctx context.Context,
	stream *program.Stream,
	host quantum.Host,
	opts ...func(SessionBuilder) SessionBuilder,
) (*RunResult, error) {
	b := SessionBuilder{}.WithHost(host)
	for _, opt := range opts {
		b = opt(b)
	}

	s := b.Build("")
	if err := s.Load(stream); err != nil {
		return nil, err
	}

	return s.Run(ctx)
}
