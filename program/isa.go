// Package program defines the gate set understood by the frontend and the
// resolved instruction stream handed to the runtime.
package program

import (
	"sort"
	"strings"

	"github.com/sarchlab/cqasmfe/quantum"
)

// GateKind classifies what a gate does to the qubits it is applied to.
type GateKind int

const (
	Unitary GateKind = iota
	Prep
	Measure
	// Directive operations act on the runtime's measurement register. They
	// are never sent to the host and take no time.
	Directive
)

// Names of the operations the runtime handles by name.
const (
	ResetAveraging = "reset-averaging"
	Display        = "display"
	DisplayBinary  = "display_binary"
	MeasureParity  = "measure_parity"
)

// ParamKind describes how the numeric parameters of a gate are interpreted.
type ParamKind int

const (
	NoParam ParamKind = iota
	// Angle parameters are rotation angles in radians.
	Angle
	// Integer parameters must be whole numbers, e.g. the k of crk.
	Integer
)

// Descriptor describes one gate of the instruction set.
type Descriptor struct {
	Name string
	Kind GateKind

	// Arity is the number of qubit operands. Every operand may select
	// several qubits, in which case the gate is applied in parallel.
	Arity     int
	Params    int
	ParamKind ParamKind

	// Controls is the number of leading operands that act as controls.
	Controls int

	// HostGate names the predefined gate the host is expected to apply.
	HostGate string

	Basis quantum.Basis

	// AllQubits is set for measure_all, which takes no operands.
	AllQubits bool

	// Variadic operations take any number of qubit operands.
	Variadic bool
}

// TakesTime reports whether the operation occupies a cycle.
func (d Descriptor) TakesTime() bool {
	return d.Kind != Directive
}

// ISA is a static table of gate descriptors, keyed by lowercase name.
type ISA struct {
	name    string
	entries map[string]Descriptor
}

// NewISA creates an empty instruction set.
func NewISA(name string) *ISA {
	return &ISA{
		name:    name,
		entries: make(map[string]Descriptor),
	}
}

// Name returns the name of the instruction set.
func (isa *ISA) Name() string {
	return isa.name
}

func (isa *ISA) register(d Descriptor) {
	key := strings.ToLower(d.Name)
	if _, dup := isa.entries[key]; dup {
		panic("gate registered twice: " + d.Name)
	}
	d.Name = key
	isa.entries[key] = d
}

// Lookup finds a gate by name. Names are case-insensitive.
func (isa *ISA) Lookup(name string) (Descriptor, bool) {
	d, ok := isa.entries[strings.ToLower(name)]
	return d, ok
}

// Names returns all gate names in sorted order.
func (isa *ISA) Names() []string {
	names := make([]string, 0, len(isa.entries))
	for n := range isa.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func singleQubit(name, hostGate string) Descriptor {
	return Descriptor{Name: name, Kind: Unitary, Arity: 1, HostGate: hostGate}
}

func rotation(name, hostGate string) Descriptor {
	return Descriptor{
		Name: name, Kind: Unitary, Arity: 1,
		Params: 1, ParamKind: Angle, HostGate: hostGate,
	}
}

func controlled(name, hostGate string, controls int) Descriptor {
	return Descriptor{
		Name: name, Kind: Unitary, Arity: controls + 1,
		Controls: controls, HostGate: hostGate,
	}
}

func measure(name string, basis quantum.Basis) Descriptor {
	return Descriptor{
		Name: name, Kind: Measure, Arity: 1,
		Basis: basis, HostGate: "MEASURE",
	}
}

// DefaultISA is the cQASM 1.0 gate set. It is built once and never
// modified afterwards.
var DefaultISA = newDefaultISA()

func newDefaultISA() *ISA {
	isa := NewISA("cQASM 1.0")

	isa.register(singleQubit("i", "I"))
	isa.register(singleQubit("x", "X"))
	isa.register(singleQubit("y", "Y"))
	isa.register(singleQubit("z", "Z"))
	isa.register(singleQubit("h", "H"))
	isa.register(singleQubit("s", "S"))
	isa.register(singleQubit("sdag", "S_DAG"))
	isa.register(singleQubit("t", "T"))
	isa.register(singleQubit("tdag", "T_DAG"))
	isa.register(singleQubit("x90", "RX_90"))
	isa.register(singleQubit("mx90", "RX_M90"))
	isa.register(singleQubit("y90", "RY_90"))
	isa.register(singleQubit("my90", "RY_M90"))

	isa.register(rotation("rx", "RX"))
	isa.register(rotation("ry", "RY"))
	isa.register(rotation("rz", "RZ"))

	isa.register(controlled("cnot", "X", 1))
	isa.register(controlled("cz", "Z", 1))
	isa.register(controlled("toffoli", "X", 2))
	isa.register(Descriptor{
		Name: "swap", Kind: Unitary, Arity: 2, HostGate: "SWAP",
	})
	isa.register(Descriptor{
		Name: "cr", Kind: Unitary, Arity: 2, Controls: 1,
		Params: 1, ParamKind: Angle, HostGate: "PHASE",
	})
	isa.register(Descriptor{
		Name: "crk", Kind: Unitary, Arity: 2, Controls: 1,
		Params: 1, ParamKind: Integer, HostGate: "PHASE_K",
	})

	isa.register(Descriptor{Name: "prep_x", Kind: Prep, Arity: 1, Basis: quantum.X, HostGate: "PREP"})
	isa.register(Descriptor{Name: "prep_y", Kind: Prep, Arity: 1, Basis: quantum.Y, HostGate: "PREP"})
	isa.register(Descriptor{Name: "prep_z", Kind: Prep, Arity: 1, Basis: quantum.Z, HostGate: "PREP"})

	isa.register(measure("measure", quantum.Z))
	isa.register(measure("measure_z", quantum.Z))
	isa.register(measure("measure_x", quantum.X))
	isa.register(measure("measure_y", quantum.Y))
	isa.register(Descriptor{
		Name: "measure_all", Kind: Measure, Basis: quantum.Z,
		AllQubits: true, HostGate: "MEASURE",
	})
	// measure_parity is measured qubit by qubit in the Z basis.
	isa.register(Descriptor{
		Name: MeasureParity, Kind: Measure, Basis: quantum.Z,
		Variadic: true, HostGate: "MEASURE",
	})

	isa.register(Descriptor{Name: ResetAveraging, Kind: Directive})
	isa.register(Descriptor{Name: Display, Kind: Directive, Variadic: true})
	isa.register(Descriptor{Name: DisplayBinary, Kind: Directive, Variadic: true})

	return isa
}

// Lookup finds a gate in the default instruction set.
func Lookup(name string) (Descriptor, bool) {
	return DefaultISA.Lookup(name)
}
