// Package quantum defines the commonly used data structures shared by the
// frontend, the runtime and the hosts it drives.
package quantum

import "context"

// Basis defines the Pauli basis of a measurement or a prep gate.
type Basis int

const (
	Z Basis = iota
	X
	Y
)

// Name returns the name of the basis.
func (b Basis) Name() string {
	switch b {
	case Z:
		return "Z"
	case X:
		return "X"
	case Y:
		return "Y"
	default:
		panic("invalid basis")
	}
}

// String implements fmt.Stringer.
func (b Basis) String() string {
	return b.Name()
}

// Host is the simulator the runtime dispatches operations to.
type Host interface {
	// ApplyGate sends a gate to the host. No value comes back; a non-nil
	// error means the host could not be reached or rejected the message.
	ApplyGate(ctx context.Context, name string, qubits []int, params []float64) error

	// Measure measures one qubit and blocks until the host answers.
	Measure(ctx context.Context, qubit int, basis Basis) (Measurement, error)
}

// Gate is a cQASM gate together with the predefined gate of the host it
// maps to. The first Controls qubits are controls; the remaining ones are
// the targets of HostGate.
type Gate struct {
	Name     string
	HostGate string
	Controls int
	Qubits   []int
	Params   []float64
}

// Targets returns the qubits HostGate acts on.
func (g Gate) Targets() []int {
	return g.Qubits[g.Controls:]
}

// A GateSetHost is a host with a set of predefined gates. The runtime
// applies gates to it through ApplyHostGate instead of ApplyGate.
type GateSetHost interface {
	ApplyHostGate(ctx context.Context, gate Gate) error
}

// An Allocator is a host that needs qubits to be allocated before use.
type Allocator interface {
	Allocate(ctx context.Context, numQubits int) error
	Free(ctx context.Context) error
}

// A Clock is a host that keeps track of simulated time in cycles.
type Clock interface {
	Advance(ctx context.Context, cycles uint64) error
}

// A Syncer is a host that may buffer gates. Sync returns once every gate
// sent so far has been processed.
type Syncer interface {
	Sync(ctx context.Context) error
}
