package protocol

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/quantum"
)

// Endpoint is the host end of a connection. It sends requests to a plugin
// and executes the operations the plugin dispatches on a backing host.
type Endpoint struct {
	name   string
	conn   Conn
	host   quantum.Host
	logger *slog.Logger
}

// EndpointBuilder creates endpoints.
type EndpointBuilder struct {
	conn   Conn
	host   quantum.Host
	logger *slog.Logger
}

// WithConn sets the connection to the plugin.
func (b EndpointBuilder) WithConn(conn Conn) EndpointBuilder {
	b.conn = conn
	return b
}

// WithHost sets the host that executes gates and measurements.
func (b EndpointBuilder) WithHost(host quantum.Host) EndpointBuilder {
	b.host = host
	return b
}

// WithLogger sets the logger.
func (b EndpointBuilder) WithLogger(logger *slog.Logger) EndpointBuilder {
	b.logger = logger
	return b
}

// Build creates an endpoint.
func (b EndpointBuilder) Build(name string) *Endpoint {
	if b.conn == nil || b.host == nil {
		panic("endpoint needs a connection and a host")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Endpoint{name: name, conn: b.conn, host: b.host, logger: logger}
}

// Init asks the plugin to compile a program. A compile error comes back as
// an *ErrorMsg.
func (e *Endpoint) Init(ctx context.Context, msg *InitMsg) error {
	if err := e.conn.Send(ctx, msg); err != nil {
		return err
	}
	_, err := e.serve(ctx, msg.ID)
	return err
}

// Run asks the plugin to run and executes everything it dispatches until
// the result arrives.
func (e *Endpoint) Run(ctx context.Context) (*api.RunResult, error) {
	req := NewRunMsg()
	if err := e.conn.Send(ctx, req); err != nil {
		return nil, err
	}

	reply, err := e.serve(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	res, ok := reply.(*ResultMsg)
	if !ok {
		return nil, errors.Errorf("expected a result, got %s", typeName(reply))
	}
	return res.Result, nil
}

// Abort sends an AbortMsg. It may be called while Run is in progress; the
// acknowledgement is then consumed by Run.
func (e *Endpoint) Abort(ctx context.Context, reason string) error {
	return e.conn.Send(ctx, NewAbortMsg(reason))
}

// Close closes the connection, which ends the plugin's Serve loop.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

// serve handles dispatched operations until the answer to the request with
// the given ID arrives.
func (e *Endpoint) serve(ctx context.Context, id string) (Msg, error) {
	for {
		msg, err := e.conn.Recv(ctx)
		if err != nil {
			return nil, err
		}

		switch m := msg.(type) {
		case *ErrorMsg:
			if m.RespondTo == id {
				return nil, m
			}
			e.logger.Warn("plugin error", "endpoint", e.name, "error", m)
		case sim.Rsp:
			if m.GetRspTo() == id {
				return m, nil
			}
		default:
			if err := e.execute(ctx, msg); err != nil {
				return nil, err
			}
		}
	}
}

// execute runs one dispatched operation. Host failures are reported to the
// plugin; only transport failures are returned.
func (e *Endpoint) execute(ctx context.Context, msg Msg) error {
	var (
		reply Msg
		err   error
	)

	switch m := msg.(type) {
	case *GateMsg:
		if gs, ok := e.host.(quantum.GateSetHost); ok {
			err = gs.ApplyHostGate(ctx, m.Gate())
		} else {
			err = e.host.ApplyGate(ctx, m.Name, m.Qubits, m.Params)
		}

	case *MeasureMsg:
		var meas quantum.Measurement
		meas, err = e.host.Measure(ctx, m.Qubit, m.Basis)
		reply = MeasurementMsgBuilder{}.
			WithRespondTo(m.ID).
			WithMeasurement(meas).
			Build()

	case *AllocateMsg:
		if alloc, ok := e.host.(quantum.Allocator); ok {
			err = alloc.Allocate(ctx, m.NumQubits)
		}
		reply = NewAckMsg(m.ID)

	case *FreeMsg:
		if alloc, ok := e.host.(quantum.Allocator); ok {
			err = alloc.Free(ctx)
		}
		reply = NewAckMsg(m.ID)

	case *AdvanceMsg:
		if clock, ok := e.host.(quantum.Clock); ok {
			err = clock.Advance(ctx, m.Cycles)
		}

	case *SyncMsg:
		if syncer, ok := e.host.(quantum.Syncer); ok {
			err = syncer.Sync(ctx)
		}
		reply = NewAckMsg(m.ID)

	default:
		err = errors.Errorf("unexpected %s", typeName(msg))
	}

	if err != nil {
		e.logger.Warn("host operation failed",
			"endpoint", e.name, "op", typeName(msg), "error", err)
		return e.conn.Send(ctx, ErrorMsgBuilder{}.
			WithRespondTo(msg.Meta().ID).
			WithKind(KindRuntime).
			WithMessage(err.Error()).
			Build())
	}

	if reply == nil {
		return nil
	}
	return e.conn.Send(ctx, reply)
}
