package api

import (
	"log/slog"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/cqasm"
	"github.com/sarchlab/cqasmfe/quantum"
)

// SessionBuilder creates new sessions.
type SessionBuilder struct {
	host        quantum.Host
	logger      *slog.Logger
	compileOpts []cqasm.Option
	hooks       []sim.Hook
}

// WithHost sets the host the session drives.
func (b SessionBuilder) WithHost(host quantum.Host) SessionBuilder {
	b.host = host
	return b
}

// WithLogger sets the logger. slog.Default is used if not set.
func (b SessionBuilder) WithLogger(logger *slog.Logger) SessionBuilder {
	b.logger = logger
	return b
}

// WithCompileOptions sets the options Initialize compiles with.
func (b SessionBuilder) WithCompileOptions(opts ...cqasm.Option) SessionBuilder {
	b.compileOpts = append([]cqasm.Option(nil), opts...)
	return b
}

// WithHook attaches a hook to the session.
func (b SessionBuilder) WithHook(hook sim.Hook) SessionBuilder {
	b.hooks = append(append([]sim.Hook(nil), b.hooks...), hook)
	return b
}

// Build creates a session. An empty id is replaced by a generated one.
func (b SessionBuilder) Build(id string) *Session {
	if b.host == nil {
		panic("session needs a host")
	}

	if id == "" {
		id = xid.New().String()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		HookableBase: sim.NewHookableBase(),
		id:           id,
		host:         b.host,
		logger:       logger,
		compileOpts:  b.compileOpts,
		state:        Uninitialized,
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	return s
}
