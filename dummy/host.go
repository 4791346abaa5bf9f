package dummy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/quantum"
)

// ErrNotAllocated is returned when the host is used without allocated
// qubits.
var ErrNotAllocated = errors.New("qubits not allocated")

// RecordKind tells what a trace record describes.
type RecordKind int

const (
	GateRecord RecordKind = iota
	MeasureRecord
)

// Record is one operation processed by the host.
type Record struct {
	Kind   RecordKind
	Cycle  uint64
	Time   sim.VTimeInSec
	Name   string
	Qubits []int
	Params []float64
	Value  quantum.MeasurementValue

	// HostGate is the predefined gate applied, with the first Controls
	// qubits acting as controls. It is empty for gates sent by name only.
	HostGate string
	Controls int

	// EventID identifies the engine event that processed the operation.
	EventID string
}

// Host is a host that processes operations as events on an akita engine.
// Gates are only scheduled; Measure and Sync run the engine until every
// scheduled operation has been handled.
type Host struct {
	name     string
	engine   sim.Engine
	freq     sim.Freq
	outcomes Outcomes
	logger   *slog.Logger

	mu        sync.Mutex
	allocated bool
	numQubits int
	cycle     uint64
	records   []Record
	lastMeas  quantum.Measurement
	seq       int
}

type gateEvent struct {
	*sim.EventBase
	cycle uint64
	gate  quantum.Gate
}

type measureEvent struct {
	*sim.EventBase
	cycle uint64
	qubit int
	basis quantum.Basis
}

// Name returns the name of the host.
func (h *Host) Name() string {
	return h.name
}

// Allocate implements quantum.Allocator.
func (h *Host) Allocate(_ context.Context, numQubits int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.allocated {
		return errors.Errorf("%s: %d qubits already allocated", h.name, h.numQubits)
	}
	if numQubits <= 0 {
		return errors.Errorf("%s: cannot allocate %d qubits", h.name, numQubits)
	}

	h.allocated = true
	h.numQubits = numQubits
	h.logger.Info("qubits allocated", "host", h.name, "qubits", numQubits)

	return nil
}

// Free implements quantum.Allocator.
func (h *Host) Free(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.allocated {
		return errors.Wrap(ErrNotAllocated, h.name)
	}

	h.allocated = false
	h.logger.Info("qubits freed", "host", h.name, "qubits", h.numQubits)
	h.numQubits = 0

	return nil
}

// ApplyGate schedules a gate known only by its cQASM name.
func (h *Host) ApplyGate(
	ctx context.Context,
	name string,
	qubits []int,
	params []float64,
) error {
	return h.ApplyHostGate(ctx, quantum.Gate{
		Name:   name,
		Qubits: qubits,
		Params: params,
	})
}

// ApplyHostGate implements quantum.GateSetHost. The gate is scheduled at
// the current cycle.
func (h *Host) ApplyHostGate(ctx context.Context, gate quantum.Gate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkQubitsLocked(gate.Qubits...); err != nil {
		return errors.Wrapf(err, "gate %s", gate.Name)
	}
	if gate.Controls < 0 || gate.Controls > len(gate.Qubits) {
		return errors.Errorf("gate %s: %d controls for %d qubits",
			gate.Name, gate.Controls, len(gate.Qubits))
	}

	gate.Qubits = append([]int(nil), gate.Qubits...)
	gate.Params = append([]float64(nil), gate.Params...)
	h.engine.Schedule(&gateEvent{
		EventBase: sim.NewEventBase(h.nowLocked(), h),
		cycle:     h.cycle,
		gate:      gate,
	})

	return nil
}

// Measure schedules the measurement and runs the engine until it has been
// handled.
func (h *Host) Measure(
	ctx context.Context,
	qubit int,
	basis quantum.Basis,
) (quantum.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return quantum.Measurement{}, err
	}

	h.mu.Lock()
	if err := h.checkQubitsLocked(qubit); err != nil {
		h.mu.Unlock()
		return quantum.Measurement{}, errors.Wrap(err, "measure")
	}
	h.engine.Schedule(&measureEvent{
		EventBase: sim.NewEventBase(h.nowLocked(), h),
		cycle:     h.cycle,
		qubit:     qubit,
		basis:     basis,
	})
	h.mu.Unlock()

	if err := h.engine.Run(); err != nil {
		return quantum.Measurement{}, errors.Wrap(err, "run engine")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.lastMeas, nil
}

// Advance implements quantum.Clock.
func (h *Host) Advance(_ context.Context, cycles uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cycle += cycles

	return nil
}

// Sync implements quantum.Syncer.
func (h *Host) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return errors.Wrap(h.engine.Run(), "run engine")
}

// Handle processes the events the host scheduled.
func (h *Host) Handle(e sim.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e := e.(type) {
	case *gateEvent:
		h.handleGate(e)
	case *measureEvent:
		h.handleMeasure(e)
	default:
		return errors.Errorf("%s: cannot handle event %T", h.name, e)
	}

	return nil
}

func (h *Host) handleGate(e *gateEvent) {
	h.seq++
	h.records = append(h.records, Record{
		Kind:     GateRecord,
		Cycle:    e.cycle,
		Time:     e.Time(),
		Name:     e.gate.Name,
		Qubits:   e.gate.Qubits,
		Params:   e.gate.Params,
		HostGate: e.gate.HostGate,
		Controls: e.gate.Controls,
		EventID:  fmt.Sprintf("%s.op%d", h.name, h.seq),
	})

	Trace("gate", "host", h.name, "cycle", e.cycle,
		"gate", e.gate.Name, "host_gate", e.gate.HostGate, "qubits", e.gate.Qubits)
}

func (h *Host) handleMeasure(e *measureEvent) {
	h.seq++
	value := h.outcomes.Outcome(e.qubit, e.basis)
	data, _ := json.Marshal(struct {
		Cycle uint64 `json:"cycle"`
		Basis string `json:"basis"`
	}{e.cycle, e.basis.Name()})

	h.lastMeas = quantum.NewMeasurement(e.qubit, value).WithData(data)
	h.records = append(h.records, Record{
		Kind:     MeasureRecord,
		Cycle:    e.cycle,
		Time:     e.Time(),
		Name:     "measure_" + e.basis.Name(),
		Qubits:   []int{e.qubit},
		Value:    value,
		HostGate: "MEASURE",
		EventID:  fmt.Sprintf("%s.op%d", h.name, h.seq),
	})

	Trace("measure", "host", h.name, "cycle", e.cycle, "qubit", e.qubit, "value", value)
}

// Cycle returns the current cycle of the host.
func (h *Host) Cycle() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cycle
}

// NumQubits returns the number of allocated qubits.
func (h *Host) NumQubits() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.numQubits
}

// Records returns a copy of the trace.
func (h *Host) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]Record(nil), h.records...)
}

func (h *Host) nowLocked() sim.VTimeInSec {
	return h.freq.NCyclesLater(int(h.cycle), 0)
}

func (h *Host) checkQubitsLocked(qubits ...int) error {
	if !h.allocated {
		return ErrNotAllocated
	}

	for _, q := range qubits {
		if q < 0 || q >= h.numQubits {
			return errors.Errorf("qubit %d out of range [0, %d)", q, h.numQubits)
		}
	}

	return nil
}
