package program

import (
	"fmt"
	"strings"

	"github.com/sarchlab/cqasmfe/quantum"
)

// Kind tells gate applications, measurements and directives apart.
type Kind int

const (
	GateInst Kind = iota
	MeasureInst
	DirectiveInst
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case GateInst:
		return "Gate"
	case MeasureInst:
		return "Measure"
	case DirectiveInst:
		return "Directive"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Instruction is one resolved operation.
type Instruction struct {
	Kind   Kind
	Name   string
	Qubits []int
	Params []float64
	Basis  quantum.Basis

	// HostGate is the predefined host gate the instruction maps to, with
	// the first Controls qubits acting as controls.
	HostGate string
	Controls int

	// Cycle is the cycle the instruction starts in.
	Cycle uint64

	// Source line and column, kept for diagnostics only.
	Line, Column int
}

// Gate creates a gate instruction.
func Gate(name string, qubits []int, params ...float64) Instruction {
	return Instruction{Kind: GateInst, Name: name, Qubits: qubits, Params: params}
}

// MeasureZ creates a Z-basis measurement instruction.
func MeasureZ(qubits ...int) Instruction {
	return Instruction{Kind: MeasureInst, Name: "measure", Qubits: qubits, Basis: quantum.Z}
}

// IsMeasure reports whether the instruction is a measurement.
func (i Instruction) IsMeasure() bool {
	return i.Kind == MeasureInst
}

// IsDirective reports whether the instruction is handled by the runtime
// without involving the host.
func (i Instruction) IsDirective() bool {
	return i.Kind == DirectiveInst
}

// HostView returns the gate as the host sees it.
func (i Instruction) HostView() quantum.Gate {
	return quantum.Gate{
		Name:     i.Name,
		HostGate: i.HostGate,
		Controls: i.Controls,
		Qubits:   append([]int(nil), i.Qubits...),
		Params:   append([]float64(nil), i.Params...),
	}
}

func (i Instruction) clone() Instruction {
	c := i
	c.Qubits = append([]int(nil), i.Qubits...)
	if i.Params != nil {
		c.Params = append([]float64(nil), i.Params...)
	}
	return c
}

// String renders the instruction in cQASM-like syntax.
func (i Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(i.Name)
	for n, q := range i.Qubits {
		if n == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "q[%d]", q)
	}
	for _, p := range i.Params {
		fmt.Fprintf(&sb, ", %g", p)
	}
	return sb.String()
}

// Stream is the resolved, ordered instruction sequence of a program. It is
// created once by the compiler and read-only afterwards.
type Stream struct {
	numQubits    int
	cycles       uint64
	instructions []Instruction
}

// NewStream creates a stream. The instructions are copied.
func NewStream(numQubits int, cycles uint64, insts []Instruction) *Stream {
	s := &Stream{
		numQubits:    numQubits,
		cycles:       cycles,
		instructions: make([]Instruction, len(insts)),
	}
	for i, inst := range insts {
		s.instructions[i] = inst.clone()
	}
	return s
}

// NumQubits returns the size of the qubit register.
func (s *Stream) NumQubits() int {
	return s.numQubits
}

// Cycles returns the number of cycles the program takes.
func (s *Stream) Cycles() uint64 {
	return s.cycles
}

// Len returns the number of instructions.
func (s *Stream) Len() int {
	return len(s.instructions)
}

// At returns a copy of the i-th instruction.
func (s *Stream) At(i int) Instruction {
	return s.instructions[i].clone()
}

// Instructions returns a copy of all instructions.
func (s *Stream) Instructions() []Instruction {
	out := make([]Instruction, len(s.instructions))
	for i, inst := range s.instructions {
		out[i] = inst.clone()
	}
	return out
}

// String renders the stream one instruction per line, prefixed by cycle.
func (s *Stream) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "qubits %d\n", s.numQubits)
	for _, inst := range s.instructions {
		fmt.Fprintf(&sb, "%4d: %s\n", inst.Cycle, inst)
	}
	return sb.String()
}
