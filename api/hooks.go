package api

import (
	"sync"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/program"
	"github.com/sarchlab/cqasmfe/quantum"
)

// TraceHook logs every session event at LevelTrace.
type TraceHook struct{}

// Func implements sim.Hook.
func (TraceHook) Func(ctx sim.HookCtx) {
	s, ok := ctx.Domain.(*Session)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosStateChange:
		change := ctx.Item.(StateChange)
		Trace("state", "session", s.ID(), "from", change.From, "to", change.To)
	case HookPosGateDispatch:
		inst := ctx.Item.(program.Instruction)
		Trace("dispatch", "session", s.ID(), "cycle", inst.Cycle, "inst", inst.String())
	case HookPosMeasureDone:
		m := ctx.Item.(quantum.Measurement)
		Trace("measured", "session", s.ID(), "qubit", m.Qubit, "value", m.Value)
	}
}

// Recorder is a hook that keeps every event it sees. It is meant for tests
// and tools that inspect a run afterwards.
type Recorder struct {
	mu           sync.Mutex
	states       []StateChange
	instructions []program.Instruction
	measurements []quantum.Measurement
}

// Func implements sim.Hook.
func (r *Recorder) Func(ctx sim.HookCtx) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ctx.Pos {
	case HookPosStateChange:
		r.states = append(r.states, ctx.Item.(StateChange))
	case HookPosGateDispatch:
		r.instructions = append(r.instructions, ctx.Item.(program.Instruction))
	case HookPosMeasureDone:
		r.measurements = append(r.measurements, ctx.Item.(quantum.Measurement))
	}
}

// States returns the states entered, in order.
func (r *Recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]State, len(r.states))
	for i, c := range r.states {
		out[i] = c.To
	}
	return out
}

// Instructions returns the dispatched instructions.
func (r *Recorder) Instructions() []program.Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]program.Instruction(nil), r.instructions...)
}

// Measurements returns the measurement results.
func (r *Recorder) Measurements() []quantum.Measurement {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]quantum.Measurement(nil), r.measurements...)
}
