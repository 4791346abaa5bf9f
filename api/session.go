// Package api defines the plugin runtime that drives a simulator host with a
// compiled cQASM program.
package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/cqasm"
	"github.com/sarchlab/cqasmfe/program"
	"github.com/sarchlab/cqasmfe/quantum"
)

// HookPosStateChange marks a session state transition. The hook item is a
// StateChange.
var HookPosStateChange = &sim.HookPos{Name: "Session State Change"}

// HookPosGateDispatch marks an instruction about to be sent to the host. The
// hook item is the program.Instruction.
var HookPosGateDispatch = &sim.HookPos{Name: "Session Gate Dispatch"}

// HookPosMeasureDone marks a measurement result arriving from the host. The
// hook item is the quantum.Measurement.
var HookPosMeasureDone = &sim.HookPos{Name: "Session Measure Done"}

// InitConfig carries the arguments of Initialize. Source takes precedence
// over Path.
type InitConfig struct {
	Filename string
	Source   string
	Path     string

	// Params are free-form arguments passed along by the host.
	Params map[string]string
}

// A Session runs one program against one host. All methods may be called
// from any goroutine, but Initialize, Load and Run are expected to be
// called in sequence; Abort may interrupt them at any time.
type Session struct {
	*sim.HookableBase

	id          string
	host        quantum.Host
	logger      *slog.Logger
	compileOpts []cqasm.Option

	mu       sync.Mutex
	state    State
	stream   *program.Stream
	params   map[string]string
	register *Register
	cursor   int
	cycle    uint64
	lastErr  error
	cancel   context.CancelFunc

	displayWarned bool
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Err returns the error that moved the session to Failed, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// Stream returns the loaded program, or nil.
func (s *Session) Stream() *program.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stream
}

// Params returns the parameters passed to Initialize.
func (s *Session) Params() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

// Progress returns the number of dispatched instructions and the current
// cycle.
func (s *Session) Progress() (dispatched int, cycle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor, s.cycle
}

// setStateLocked changes the state. The caller must hold the lock and
// notify the returned change after releasing it.
func (s *Session) setStateLocked(to State) StateChange {
	change := StateChange{From: s.state, To: to}
	s.state = to
	return change
}

func (s *Session) notify(change StateChange) {
	s.logger.Debug("session state change",
		"session", s.id, "from", change.From, "to", change.To)

	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Pos:    HookPosStateChange,
		Item:   change,
	})
}

// begin performs the guarded transition that starts an operation.
func (s *Session) begin(op string, from, to State) error {
	s.mu.Lock()
	if s.state != from || !canTransition(from, to) {
		err := &InvalidStateError{Op: op, State: s.state}
		s.mu.Unlock()
		return err
	}
	change := s.setStateLocked(to)
	s.mu.Unlock()

	s.notify(change)
	return nil
}

// move performs a transition inside an operation that is already under
// way. If the session failed in the meantime, for example through Abort,
// that failure is returned instead.
func (s *Session) move(op string, from, to State) error {
	s.mu.Lock()
	if s.state != from || !canTransition(from, to) {
		err := s.interruptedLocked(op)
		s.mu.Unlock()
		return err
	}
	change := s.setStateLocked(to)
	s.mu.Unlock()

	s.notify(change)
	return nil
}

func (s *Session) interruptedLocked(op string) error {
	if s.state == Failed && s.lastErr != nil {
		return s.lastErr
	}
	return &InvalidStateError{Op: op, State: s.state}
}

// fail moves the session to Failed. If it already failed, the first error
// wins and is returned.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	if s.state == Failed {
		first := s.lastErr
		s.mu.Unlock()
		return first
	}
	change, cancel := s.failLocked(err)
	s.mu.Unlock()

	s.failed(err, change, cancel)
	return err
}

// failLocked moves the session to Failed and takes the cancel func of a
// running dispatch. The caller must hold the lock and pass the results to
// failed after releasing it.
func (s *Session) failLocked(err error) (StateChange, context.CancelFunc) {
	s.lastErr = err
	s.stream = nil
	cancel := s.cancel
	s.cancel = nil
	return s.setStateLocked(Failed), cancel
}

func (s *Session) failed(err error, change StateChange, cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	s.logger.Warn("session failed", "session", s.id, "error", err)
	s.notify(change)
}

// Initialize compiles the program named by cfg. On success the session is
// Ready. A compile error fails the session and is returned unchanged.
func (s *Session) Initialize(ctx context.Context, cfg InitConfig) error {
	if err := s.begin("initialize", Uninitialized, Initializing); err != nil {
		return err
	}

	stream, err := s.compile(cfg)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.params = cfg.Params
	s.mu.Unlock()

	return s.load(stream)
}

func (s *Session) compile(cfg InitConfig) (*program.Stream, error) {
	switch {
	case cfg.Source != "":
		return cqasm.Compile(cfg.Filename, cfg.Source, s.compileOpts...)
	case cfg.Path != "":
		return cqasm.CompileFile(cfg.Path, s.compileOpts...)
	default:
		return nil, errors.New("no program source given")
	}
}

// Load makes the session Ready with an already compiled stream.
func (s *Session) Load(stream *program.Stream) error {
	if stream == nil {
		return errors.New("nil stream")
	}
	if err := s.begin("load", Uninitialized, Initializing); err != nil {
		return err
	}
	return s.load(stream)
}

func (s *Session) load(stream *program.Stream) error {
	s.mu.Lock()
	if s.state != Initializing {
		err := s.interruptedLocked("load")
		s.mu.Unlock()
		return err
	}
	s.stream = stream
	s.register = NewRegister(stream.NumQubits())
	s.cursor = 0
	s.cycle = 0
	change := s.setStateLocked(Ready)
	s.mu.Unlock()

	s.notify(change)

	s.logger.Info("program loaded",
		"session", s.id,
		"qubits", stream.NumQubits(),
		"instructions", stream.Len(),
		"cycles", stream.Cycles())

	return nil
}

// Abort stops the session. A running dispatch loop stops before the next
// instruction, and an outstanding host call sees its context canceled.
func (s *Session) Abort(reason string) error {
	cause := ErrAborted
	if reason != "" {
		cause = errors.Wrap(ErrAborted, reason)
	}
	err := &RuntimeError{Op: "abort", Index: -1, Err: cause}

	s.mu.Lock()
	if s.state.IsTerminal() {
		serr := &InvalidStateError{Op: "abort", State: s.state}
		s.mu.Unlock()
		return serr
	}
	change, cancel := s.failLocked(err)
	s.mu.Unlock()

	s.failed(err, change, cancel)
	return nil
}

// Run dispatches the loaded program to the host. It returns once the host
// has processed everything, or with a *RuntimeError when the host fails,
// ctx is canceled or the session is aborted.
func (s *Session) Run(ctx context.Context) (*RunResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.state != Ready {
		err := &InvalidStateError{Op: "run", State: s.state}
		s.mu.Unlock()
		return nil, err
	}
	s.cancel = cancel
	stream := s.stream
	change := s.setStateLocked(Running)
	s.mu.Unlock()

	s.notify(change)

	allocated, err := s.allocate(runCtx, stream)
	if err == nil {
		err = s.dispatch(runCtx, stream)
	}
	if err == nil {
		err = s.drain(runCtx, stream)
	}
	if err == nil && allocated {
		allocated = false
		if ferr := s.host.(quantum.Allocator).Free(runCtx); ferr != nil {
			err = &RuntimeError{Op: "free", Index: -1, Err: ferr}
		}
	}
	if err != nil {
		if allocated {
			s.release()
		}
		return nil, s.fail(err)
	}

	return s.complete(stream)
}

func (s *Session) allocate(ctx context.Context, stream *program.Stream) (bool, error) {
	alloc, ok := s.host.(quantum.Allocator)
	if !ok {
		return false, nil
	}
	if err := alloc.Allocate(ctx, stream.NumQubits()); err != nil {
		return false, &RuntimeError{Op: "allocate", Index: -1, Err: err}
	}
	return true, nil
}

// release frees the qubits of a failed run. Errors are only logged.
func (s *Session) release() {
	alloc := s.host.(quantum.Allocator)
	if err := alloc.Free(context.Background()); err != nil {
		s.logger.Warn("failed to free qubits", "session", s.id, "error", err)
	}
}

func (s *Session) dispatch(ctx context.Context, stream *program.Stream) error {
	for i := 0; i < stream.Len(); i++ {
		if err := s.checkRunning(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return &RuntimeError{Op: "dispatch", Index: i, Err: err}
		}

		inst := stream.At(i)
		if err := s.advanceTo(ctx, inst.Cycle, i); err != nil {
			return err
		}

		s.InvokeHook(sim.HookCtx{
			Domain: s,
			Pos:    HookPosGateDispatch,
			Item:   inst,
		})

		var err error
		switch {
		case inst.IsMeasure():
			err = s.measure(ctx, inst, i)
		case inst.IsDirective():
			s.directive(inst)
		default:
			err = s.applyGate(ctx, inst, i)
		}
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.cursor = i + 1
		s.mu.Unlock()
	}

	return nil
}

// checkRunning returns the failure of a session that left Running, for
// example through Abort.
func (s *Session) checkRunning() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return s.interruptedLocked("dispatch")
	}
	return nil
}

// applyGate sends a gate to the host. A host with predefined gates gets
// the host gate the instruction maps to.
func (s *Session) applyGate(ctx context.Context, inst program.Instruction, index int) error {
	Trace("gate", "session", s.id, "index", index, "inst", inst.String())

	var err error
	if gs, ok := s.host.(quantum.GateSetHost); ok {
		err = gs.ApplyHostGate(ctx, inst.HostView())
	} else {
		err = s.host.ApplyGate(ctx, inst.Name, inst.Qubits, inst.Params)
	}
	if err != nil {
		return &RuntimeError{Op: inst.Name, Index: index, Err: err}
	}
	return nil
}

// measure measures the qubits of inst one at a time. Every result is
// recorded before the next request goes out.
func (s *Session) measure(ctx context.Context, inst program.Instruction, index int) error {
	if inst.Name == program.MeasureParity {
		s.logger.Error("measure_parity is not implemented, measuring in the Z basis",
			"session", s.id, "index", index)
	}

	for _, q := range inst.Qubits {
		m, err := s.host.Measure(ctx, q, inst.Basis)
		if err != nil {
			return &RuntimeError{Op: inst.Name, Index: index, Err: err}
		}
		if m.Qubit != q {
			return &RuntimeError{
				Op:    inst.Name,
				Index: index,
				Err:   errors.Errorf("host measured q[%d], expected q[%d]", m.Qubit, q),
			}
		}

		s.mu.Lock()
		undefined := s.register.Record(m)
		s.mu.Unlock()

		if undefined {
			s.logger.Warn("undefined measurement, interpreting as 0",
				"session", s.id, "qubit", q)
		}
		Trace("measure", "session", s.id, "qubit", q, "value", m.Value)

		s.InvokeHook(sim.HookCtx{
			Domain: s,
			Pos:    HookPosMeasureDone,
			Item:   m,
		})
	}
	return nil
}

// directive executes an operation on the measurement register.
func (s *Session) directive(inst program.Instruction) {
	switch inst.Name {
	case program.ResetAveraging:
		s.mu.Lock()
		s.register.Reset()
		s.mu.Unlock()
		s.logger.Info("measurement averages reset", "session", s.id)

	case program.Display, program.DisplayBinary:
		s.mu.Lock()
		warn := inst.Name == program.Display && !s.displayWarned
		s.displayWarned = s.displayWarned || warn
		lines := s.register.Display(inst.Qubits)
		s.mu.Unlock()

		if warn {
			s.logger.Warn("the qubit state cannot be displayed, showing measurement results",
				"session", s.id)
		}
		for _, line := range lines {
			s.logger.Info("display", "session", s.id, "register", line)
		}
	}
}

// advanceTo moves the session clock to cycle, advancing a Clock host by
// the difference.
func (s *Session) advanceTo(ctx context.Context, cycle uint64, index int) error {
	s.mu.Lock()
	now := s.cycle
	s.mu.Unlock()

	if cycle <= now {
		return nil
	}

	if clock, ok := s.host.(quantum.Clock); ok {
		if err := clock.Advance(ctx, cycle-now); err != nil {
			return &RuntimeError{Op: "advance", Index: index, Err: err}
		}
	}

	s.mu.Lock()
	s.cycle = cycle
	s.mu.Unlock()

	return nil
}

// drain waits for the host to finish the program.
func (s *Session) drain(ctx context.Context, stream *program.Stream) error {
	if err := s.move("drain", Running, Draining); err != nil {
		return err
	}

	if err := s.advanceTo(ctx, stream.Cycles(), -1); err != nil {
		return err
	}

	if syncer, ok := s.host.(quantum.Syncer); ok {
		if err := syncer.Sync(ctx); err != nil {
			return &RuntimeError{Op: "sync", Index: -1, Err: err}
		}
	}

	return nil
}

func (s *Session) complete(stream *program.Stream) (*RunResult, error) {
	s.mu.Lock()
	if s.state != Draining {
		err := s.interruptedLocked("complete")
		s.mu.Unlock()
		return nil, err
	}
	result := &RunResult{
		SessionID:  s.id,
		Cycles:     s.cycle,
		Dispatched: s.cursor,
		Qubits:     s.register.Results(),
	}
	s.cancel = nil
	change := s.setStateLocked(Completed)
	s.mu.Unlock()

	s.notify(change)

	s.logger.Info("run completed",
		"session", s.id,
		"instructions", result.Dispatched,
		"cycles", result.Cycles)

	return result, nil
}
