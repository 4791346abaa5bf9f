package cqasm

// Node is implemented by every AST node.
type Node interface {
	Position() Position
}

// Statement is a node that may appear in a subcircuit or loop body.
type Statement interface {
	Node
	statementNode()
}

// Operation is a statement that may appear inside a bundle.
type Operation interface {
	Statement
	OpName() string
	OpOperands() []Operand
}

// Program is the root of the tree. It owns every other node.
type Program struct {
	Header      *ProgramHeader
	Qubits      *QubitDecl
	Subcircuits []*SubcircuitBlock
}

// Position returns the position of the version header.
func (p *Program) Position() Position {
	return p.Header.Pos
}

// ProgramHeader is the version line.
type ProgramHeader struct {
	Pos     Position
	Version string
}

func (h *ProgramHeader) Position() Position { return h.Pos }

// QubitDecl declares the size of the qubit register.
type QubitDecl struct {
	Pos   Position
	Count int
}

func (d *QubitDecl) Position() Position { return d.Pos }

// SubcircuitBlock is a named section of the program. Statements that come
// before the first header are collected in an unnamed subcircuit.
type SubcircuitBlock struct {
	Pos        Position
	Name       string
	Iterations int
	Body       []Statement
}

func (b *SubcircuitBlock) Position() Position { return b.Pos }

// OperandKind tells the operand variants apart.
type OperandKind int

const (
	QubitOperand OperandKind = iota
	AliasOperand
	NumberOperand
)

// IndexRange is a single index (Lo == Hi) or an inclusive range.
type IndexRange struct {
	Lo, Hi int
}

// Operand is a qubit reference such as q[0:2], an alias, or a number.
type Operand struct {
	Pos  Position
	Kind OperandKind

	// Register and Indices are set for QubitOperand.
	Register string
	Indices  []IndexRange

	// Name is set for AliasOperand.
	Name string

	// Value and Text are set for NumberOperand.
	Value float64
	Text  string
}

// GateStatement applies a gate.
type GateStatement struct {
	Pos      Position
	Name     string
	Operands []Operand
}

func (s *GateStatement) Position() Position    { return s.Pos }
func (s *GateStatement) OpName() string        { return s.Name }
func (s *GateStatement) OpOperands() []Operand { return s.Operands }
func (*GateStatement) statementNode()          {}

// MeasureStatement measures one or more qubits.
type MeasureStatement struct {
	Pos      Position
	Name     string
	Operands []Operand
}

func (s *MeasureStatement) Position() Position    { return s.Pos }
func (s *MeasureStatement) OpName() string        { return s.Name }
func (s *MeasureStatement) OpOperands() []Operand { return s.Operands }
func (*MeasureStatement) statementNode()          {}

// BundleStatement groups operations that run in the same cycle.
type BundleStatement struct {
	Pos Position
	Ops []Operation
}

func (s *BundleStatement) Position() Position { return s.Pos }
func (*BundleStatement) statementNode()       {}

// LoopBlock repeats its body Count times.
type LoopBlock struct {
	Pos   Position
	Count int
	Body  []Statement
}

func (s *LoopBlock) Position() Position { return s.Pos }
func (*LoopBlock) statementNode()       {}

// CallStatement inlines the body of a subcircuit.
type CallStatement struct {
	Pos  Position
	Name string
}

func (s *CallStatement) Position() Position { return s.Pos }
func (*CallStatement) statementNode()       {}

// MapStatement binds an alias to a single qubit.
type MapStatement struct {
	Pos   Position
	Qubit Operand
	Alias string
}

func (s *MapStatement) Position() Position { return s.Pos }
func (*MapStatement) statementNode()       {}

// WaitStatement lets a number of cycles pass.
type WaitStatement struct {
	Pos    Position
	Cycles int
}

func (s *WaitStatement) Position() Position { return s.Pos }
func (*WaitStatement) statementNode()       {}
