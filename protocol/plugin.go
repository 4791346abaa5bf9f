package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/cqasm"
	"github.com/sarchlab/cqasmfe/quantum"
)

// Plugin is the frontend end of a connection. It owns one session and
// answers the requests of the host.
type Plugin struct {
	name    string
	conn    Conn
	logger  *slog.Logger
	session *api.Session
}

// PluginBuilder creates plugins.
type PluginBuilder struct {
	conn        Conn
	logger      *slog.Logger
	compileOpts []cqasm.Option
	sessionOpts []func(api.SessionBuilder) api.SessionBuilder
}

// WithConn sets the connection to the host.
func (b PluginBuilder) WithConn(conn Conn) PluginBuilder {
	b.conn = conn
	return b
}

// WithLogger sets the logger.
func (b PluginBuilder) WithLogger(logger *slog.Logger) PluginBuilder {
	b.logger = logger
	return b
}

// WithCompileOptions sets the options programs are compiled with.
func (b PluginBuilder) WithCompileOptions(opts ...cqasm.Option) PluginBuilder {
	b.compileOpts = append([]cqasm.Option(nil), opts...)
	return b
}

// WithSessionOption customizes the session the plugin creates.
func (b PluginBuilder) WithSessionOption(
	opt func(api.SessionBuilder) api.SessionBuilder,
) PluginBuilder {
	b.sessionOpts = append(append([]func(api.SessionBuilder) api.SessionBuilder(nil), b.sessionOpts...), opt)
	return b
}

// Build creates a plugin.
func (b PluginBuilder) Build(name string) *Plugin {
	if b.conn == nil {
		panic("plugin needs a connection")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Plugin{
		name:   name,
		conn:   b.conn,
		logger: logger,
	}

	sb := api.SessionBuilder{}.
		WithHost(&connHost{plugin: p}).
		WithLogger(logger).
		WithCompileOptions(b.compileOpts...)
	for _, opt := range b.sessionOpts {
		sb = opt(sb)
	}
	p.session = sb.Build("")

	return p
}

// Session returns the session driven by the plugin.
func (p *Plugin) Session() *api.Session {
	return p.session
}

// Serve answers requests until the connection is closed or ctx is done. A
// closed connection ends Serve without an error.
func (p *Plugin) Serve(ctx context.Context) error {
	p.logger.Info("plugin serving", "plugin", p.name, "session", p.session.ID())

	for {
		msg, err := p.conn.Recv(ctx)
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := p.handle(ctx, msg); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (p *Plugin) handle(ctx context.Context, msg Msg) error {
	switch m := msg.(type) {
	case *InitMsg:
		err := p.session.Initialize(ctx, api.InitConfig{
			Filename: m.Filename,
			Source:   m.Source,
			Path:     m.Path,
			Params:   m.Params,
		})
		return p.reply(ctx, m.ID, err)

	case *RunMsg:
		result, err := p.session.Run(ctx)
		if err != nil {
			return p.reply(ctx, m.ID, err)
		}
		return p.conn.Send(ctx, NewResultMsg(m.ID, result))

	case *AbortMsg:
		return p.reply(ctx, m.ID, p.session.Abort(m.Reason))

	case sim.Rsp:
		p.logger.Warn("dropping late answer", "plugin", p.name, "type", typeName(msg))
		return nil

	default:
		p.logger.Warn("unexpected message", "plugin", p.name, "type", typeName(msg))
		return p.conn.Send(ctx, ErrorMsgBuilder{}.
			WithRespondTo(msg.Meta().ID).
			WithKind(KindInvalidState).
			WithMessage("unexpected "+typeName(msg)+" in state "+p.session.State().String()).
			Build())
	}
}

// reply answers a request with an AckMsg, or an ErrorMsg if err is set.
func (p *Plugin) reply(ctx context.Context, id string, err error) error {
	if err != nil {
		return p.conn.Send(ctx, NewErrorMsg(id, err))
	}
	return p.conn.Send(ctx, NewAckMsg(id))
}

// connHost forwards the host calls of the session over the connection.
type connHost struct {
	plugin *Plugin
}

func (h *connHost) ApplyGate(ctx context.Context, name string, qubits []int, params []float64) error {
	msg := GateMsgBuilder{}.
		WithName(name).
		WithQubits(qubits...).
		WithParams(params...).
		Build()
	return h.plugin.conn.Send(ctx, msg)
}

func (h *connHost) ApplyHostGate(ctx context.Context, gate quantum.Gate) error {
	msg := GateMsgBuilder{}.
		WithName(gate.Name).
		WithHostGate(gate.HostGate, gate.Controls).
		WithQubits(gate.Qubits...).
		WithParams(gate.Params...).
		Build()
	return h.plugin.conn.Send(ctx, msg)
}

func (h *connHost) Measure(ctx context.Context, qubit int, basis quantum.Basis) (quantum.Measurement, error) {
	req := NewMeasureMsg(qubit, basis)
	reply, err := h.request(ctx, req)
	if err != nil {
		return quantum.Measurement{}, err
	}

	m, ok := reply.(*MeasurementMsg)
	if !ok {
		return quantum.Measurement{}, errors.Errorf("expected a measurement, got %s", typeName(reply))
	}
	return m.Measurement, nil
}

func (h *connHost) Allocate(ctx context.Context, numQubits int) error {
	_, err := h.request(ctx, NewAllocateMsg(numQubits))
	return err
}

func (h *connHost) Free(ctx context.Context) error {
	_, err := h.request(ctx, NewFreeMsg())
	return err
}

func (h *connHost) Advance(ctx context.Context, cycles uint64) error {
	return h.plugin.conn.Send(ctx, NewAdvanceMsg(cycles))
}

func (h *connHost) Sync(ctx context.Context) error {
	_, err := h.request(ctx, NewSyncMsg())
	return err
}

// request sends req and waits for the answer. An AbortMsg that arrives in
// the meantime aborts the session. Late answers to earlier requests are
// dropped.
func (h *connHost) request(ctx context.Context, req Msg) (Msg, error) {
	p := h.plugin
	if err := p.conn.Send(ctx, req); err != nil {
		return nil, err
	}

	for {
		msg, err := p.conn.Recv(ctx)
		if err != nil {
			return nil, err
		}

		switch m := msg.(type) {
		case *AbortMsg:
			if err := p.conn.Send(ctx, NewAckMsg(m.ID)); err != nil {
				return nil, err
			}
			if err := p.session.Abort(m.Reason); err != nil {
				return nil, err
			}
			return nil, api.ErrAborted

		case *ErrorMsg:
			return nil, m

		case sim.Rsp:
			if m.GetRspTo() == req.Meta().ID {
				return msg, nil
			}
			p.logger.Warn("dropping late answer",
				"plugin", p.name, "type", typeName(msg), "respond_to", m.GetRspTo())

		default:
			return nil, errors.Errorf("unexpected %s while waiting for the answer to %s",
				typeName(msg), typeName(req))
		}
	}
}

func typeName(msg Msg) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", msg), "*protocol.")
}
