package cqasm

import (
	"fmt"
	"math"
	"strings"

	"github.com/sarchlab/cqasmfe/program"
)

const (
	// DefaultMaxQubits is the largest register accepted unless configured.
	DefaultMaxQubits = 1024
	// DefaultMaxInstructions caps the size of an expanded program.
	DefaultMaxInstructions = 1 << 20
)

// Option configures the resolver.
type Option func(*options)

type options struct {
	maxQubits       int
	maxInstructions int
}

func defaultOptions() options {
	return options{
		maxQubits:       DefaultMaxQubits,
		maxInstructions: DefaultMaxInstructions,
	}
}

// WithMaxQubits sets the largest accepted qubit register.
func WithMaxQubits(n int) Option {
	return func(o *options) {
		o.maxQubits = n
	}
}

// WithMaxInstructions sets how many instructions (and executed statements)
// the expanded program may contain.
func WithMaxInstructions(n int) Option {
	return func(o *options) {
		o.maxInstructions = n
	}
}

type resolver struct {
	opts options
	isa  *program.ISA

	numQubits   int
	subcircuits map[string]*SubcircuitBlock
	aliases     *AliasBinding

	insts []program.Instruction
	cycle uint64
	steps int
}

// Resolve checks a parsed program and expands it into an instruction
// stream. Every statement is checked, including those that never run, and
// the first error in source order is returned.
func Resolve(prog *Program, opts ...Option) (*program.Stream, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &resolver{
		opts:        o,
		isa:         program.DefaultISA,
		subcircuits: make(map[string]*SubcircuitBlock),
		aliases:     NewAliasBinding(),
	}

	if err := r.checkHeader(prog); err != nil {
		return nil, err
	}

	var errs []error
	for _, check := range []func(*Program) error{
		r.collectSubcircuits,
		r.bindAliases,
		r.checkOperations,
		r.checkRecursion,
	} {
		errs = append(errs, check(prog))
	}
	if err := firstInSource(errs); err != nil {
		return nil, err
	}

	for _, sub := range prog.Subcircuits {
		for i := 0; i < sub.Iterations; i++ {
			if err := r.emitBody(sub.Body); err != nil {
				return nil, err
			}
			if err := r.step(sub.Pos); err != nil {
				return nil, err
			}
		}
	}

	return program.NewStream(r.numQubits, r.cycle, r.insts), nil
}

func (r *resolver) checkHeader(prog *Program) error {
	h := prog.Header
	major, _, _ := strings.Cut(h.Version, ".")
	if major != "1" {
		return semanticErrorf(UnsupportedVersion, h.Pos, h.Version, 0,
			"unsupported cQASM version %s", h.Version)
	}

	d := prog.Qubits
	if d.Count <= 0 || d.Count > r.opts.maxQubits {
		return semanticErrorf(InvalidRegisterSize, d.Pos, "", d.Count,
			"register size %d is not in [1, %d]", d.Count, r.opts.maxQubits)
	}
	r.numQubits = d.Count

	return nil
}

// firstInSource returns the error with the earliest position.
func firstInSource(errs []error) error {
	var (
		first    error
		firstPos Position
	)
	for _, err := range errs {
		if err == nil {
			continue
		}
		pos, _ := PositionOf(err)
		if first == nil || pos.Before(firstPos) {
			first, firstPos = err, pos
		}
	}
	return first
}

// collectSubcircuits indexes the named subcircuits. The first definition
// of a name wins.
func (r *resolver) collectSubcircuits(prog *Program) error {
	var first error
	for _, sub := range prog.Subcircuits {
		if sub.Name == "" {
			continue
		}
		key := lower(sub.Name)
		if _, dup := r.subcircuits[key]; dup {
			if first == nil {
				first = semanticErrorf(DuplicateSubcircuit, sub.Pos, sub.Name, 0,
					"subcircuit %s is defined twice", sub.Name)
			}
			continue
		}
		r.subcircuits[key] = sub
	}
	return first
}

// walk visits every statement of a body, descending into loops and
// bundles.
func walk(body []Statement, visit func(Statement) error) error {
	for _, stmt := range body {
		if err := visit(stmt); err != nil {
			return err
		}
		switch s := stmt.(type) {
		case *LoopBlock:
			if err := walk(s.Body, visit); err != nil {
				return err
			}
		case *BundleStatement:
			for _, op := range s.Ops {
				if err := visit(op); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func callsIn(body []Statement) []*CallStatement {
	var calls []*CallStatement
	_ = walk(body, func(stmt Statement) error {
		if c, ok := stmt.(*CallStatement); ok {
			calls = append(calls, c)
		}
		return nil
	})
	return calls
}

const (
	unvisited = iota
	visiting
	visited
)

// checkOperations resolves every call and operation once, whether or not
// it ever runs.
func (r *resolver) checkOperations(prog *Program) error {
	for _, sub := range prog.Subcircuits {
		err := walk(sub.Body, func(stmt Statement) error {
			switch s := stmt.(type) {
			case *CallStatement:
				if _, ok := r.subcircuits[lower(s.Name)]; !ok {
					return semanticErrorf(UnknownSubcircuit, s.Pos, s.Name, 0,
						"call to undefined subcircuit %s", s.Name)
				}
			case Operation:
				_, err := r.resolveOp(s)
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// checkRecursion rejects call cycles, including cycles through subcircuits
// that never run. Calls to unknown subcircuits are left to checkOperations.
func (r *resolver) checkRecursion(prog *Program) error {
	state := make(map[string]int)
	for _, sub := range prog.Subcircuits {
		if sub.Name == "" {
			continue
		}
		if err := r.visit(sub, state, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) visit(sub *SubcircuitBlock, state map[string]int, path []string) error {
	key := lower(sub.Name)
	if state[key] == visited {
		return nil
	}
	state[key] = visiting
	path = append(path, sub.Name)

	for _, call := range callsIn(sub.Body) {
		callee, ok := r.subcircuits[lower(call.Name)]
		if !ok {
			continue
		}
		switch state[lower(call.Name)] {
		case visiting:
			return semanticErrorf(RecursionError, call.Pos, call.Name, 0,
				"recursive call: %s -> %s",
				strings.Join(path, " -> "), callee.Name)
		case unvisited:
			if err := r.visit(callee, state, path); err != nil {
				return err
			}
		}
	}

	state[key] = visited
	return nil
}

// bindAliases binds every map statement in textual order, so an alias is
// visible in the whole program. A map that fails is skipped and the others
// are still bound; the first failure is returned.
func (r *resolver) bindAliases(prog *Program) error {
	var first error
	for _, sub := range prog.Subcircuits {
		_ = walk(sub.Body, func(stmt Statement) error {
			m, ok := stmt.(*MapStatement)
			if !ok {
				return nil
			}
			if err := r.bindAlias(m); err != nil && first == nil {
				first = err
			}
			return nil
		})
	}
	return first
}

func (r *resolver) bindAlias(m *MapStatement) error {
	qubits, err := r.expandOperand(m.Qubit)
	if err != nil {
		return err
	}
	if len(qubits) != 1 {
		return semanticErrorf(InvalidOperand, m.Qubit.Pos, m.Alias, len(qubits),
			"alias %s must name exactly one qubit", m.Alias)
	}

	if prev, ok := r.aliases.Bind(m.Alias, qubits[0]); !ok {
		return semanticErrorf(InvalidOperand, m.Pos, m.Alias, qubits[0],
			"alias %s is already bound to q[%d]", m.Alias, prev)
	}
	return nil
}

// stepsPerInstruction bounds the statements executed per allowed
// instruction, so that loops over empty bodies terminate too.
const stepsPerInstruction = 4

func (r *resolver) step(pos Position) error {
	r.steps++
	if len(r.insts) > r.opts.maxInstructions ||
		r.steps > stepsPerInstruction*r.opts.maxInstructions {
		return semanticErrorf(ExpansionLimit, pos, "", r.opts.maxInstructions,
			"program expands beyond %d instructions", r.opts.maxInstructions)
	}
	return nil
}

func (r *resolver) emitBody(body []Statement) error {
	for _, stmt := range body {
		if err := r.emitStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) emitStatement(stmt Statement) error {
	switch s := stmt.(type) {
	case *GateStatement, *MeasureStatement:
		op := s.(Operation)
		if err := r.emitOp(op); err != nil {
			return err
		}
		if r.takesTime(op) {
			r.cycle++
		}

	case *BundleStatement:
		timed := false
		for _, op := range s.Ops {
			if err := r.emitOp(op); err != nil {
				return err
			}
			timed = timed || r.takesTime(op)
		}
		if timed {
			r.cycle++
		}

	case *LoopBlock:
		for i := 0; i < s.Count; i++ {
			if err := r.emitBody(s.Body); err != nil {
				return err
			}
			if err := r.step(s.Pos); err != nil {
				return err
			}
		}

	case *CallStatement:
		callee := r.subcircuits[lower(s.Name)]
		if err := r.emitBody(callee.Body); err != nil {
			return err
		}

	case *WaitStatement:
		r.cycle += uint64(s.Cycles)

	case *MapStatement:
		return nil
	}

	return r.step(stmt.Position())
}

func (r *resolver) emitOp(op Operation) error {
	insts, err := r.resolveOp(op)
	if err != nil {
		return err
	}

	pos := op.Position()
	for _, inst := range insts {
		inst.Cycle = r.cycle
		inst.Line = pos.Line
		inst.Column = pos.Column
		r.insts = append(r.insts, inst)
	}

	return nil
}

func (r *resolver) takesTime(op Operation) bool {
	desc, _ := r.isa.Lookup(op.OpName())
	return desc.TakesTime()
}

func splitOperands(ops []Operand) (qubits, params []Operand) {
	for _, o := range ops {
		if o.Kind == NumberOperand {
			params = append(params, o)
		} else {
			qubits = append(qubits, o)
		}
	}
	return qubits, params
}

func (r *resolver) resolveOp(op Operation) ([]program.Instruction, error) {
	pos := op.Position()
	name := op.OpName()

	desc, ok := r.isa.Lookup(name)
	if !ok {
		return nil, semanticErrorf(UnknownGate, pos, name, 0,
			"unknown gate %s", name)
	}

	qubitOps, paramOps := splitOperands(op.OpOperands())

	switch desc.Kind {
	case program.Measure:
		return r.resolveMeasure(desc, pos, qubitOps, paramOps)
	case program.Directive:
		return r.resolveDirective(desc, pos, qubitOps, paramOps)
	}

	if len(qubitOps) != desc.Arity {
		return nil, semanticErrorf(ArityMismatch, pos, name, len(qubitOps),
			"%s expects %d qubit operands, got %d", desc.Name, desc.Arity, len(qubitOps))
	}
	if len(paramOps) != desc.Params {
		return nil, semanticErrorf(ArityMismatch, pos, name, len(paramOps),
			"%s expects %d parameters, got %d", desc.Name, desc.Params, len(paramOps))
	}

	params, err := r.resolveParams(desc, paramOps)
	if err != nil {
		return nil, err
	}

	lists := make([][]int, len(qubitOps))
	for i, o := range qubitOps {
		if lists[i], err = r.expandOperand(o); err != nil {
			return nil, err
		}
		if len(lists[i]) != len(lists[0]) {
			return nil, semanticErrorf(ArityMismatch, o.Pos, name, len(lists[i]),
				"parallel operands of %s select %d and %d qubits",
				desc.Name, len(lists[0]), len(lists[i]))
		}
	}

	width := 0
	if len(lists) > 0 {
		width = len(lists[0])
	}

	insts := make([]program.Instruction, 0, width)
	for g := 0; g < width; g++ {
		qubits := make([]int, len(lists))
		for i := range lists {
			qubits[i] = lists[i][g]
		}
		if q, dup := firstDuplicate(qubits); dup {
			return nil, semanticErrorf(DuplicateOperand, pos, name, q,
				"%s is used twice by %s", r.describeQubit(q), desc.Name)
		}

		inst := program.Gate(desc.Name, qubits, params...)
		inst.Basis = desc.Basis
		inst.HostGate = desc.HostGate
		inst.Controls = desc.Controls
		insts = append(insts, inst)
	}

	return insts, nil
}

func (r *resolver) resolveMeasure(
	desc program.Descriptor,
	pos Position,
	qubitOps, paramOps []Operand,
) ([]program.Instruction, error) {
	if len(paramOps) != 0 {
		return nil, semanticErrorf(ArityMismatch, pos, desc.Name, len(paramOps),
			"%s takes no parameters", desc.Name)
	}

	var qubits []int
	if desc.AllQubits {
		if len(qubitOps) != 0 {
			return nil, semanticErrorf(ArityMismatch, pos, desc.Name, len(qubitOps),
				"%s takes no operands", desc.Name)
		}
		qubits = make([]int, r.numQubits)
		for i := range qubits {
			qubits[i] = i
		}
	} else {
		switch {
		case desc.Variadic && len(qubitOps) == 0:
			return nil, semanticErrorf(ArityMismatch, pos, desc.Name, 0,
				"%s expects qubit operands", desc.Name)
		case !desc.Variadic && len(qubitOps) != desc.Arity:
			return nil, semanticErrorf(ArityMismatch, pos, desc.Name, len(qubitOps),
				"%s expects %d qubit operands, got %d", desc.Name, desc.Arity, len(qubitOps))
		}
		for _, o := range qubitOps {
			qs, err := r.expandOperand(o)
			if err != nil {
				return nil, err
			}
			qubits = append(qubits, qs...)
		}
		if q, dup := firstDuplicate(qubits); dup {
			return nil, semanticErrorf(DuplicateOperand, pos, desc.Name, q,
				"%s is measured twice", r.describeQubit(q))
		}
	}

	return []program.Instruction{{
		Kind:     program.MeasureInst,
		Name:     desc.Name,
		Qubits:   qubits,
		Basis:    desc.Basis,
		HostGate: desc.HostGate,
	}}, nil
}

// resolveDirective resolves an operation on the measurement register.
// Without operands, display shows every qubit.
func (r *resolver) resolveDirective(
	desc program.Descriptor,
	pos Position,
	qubitOps, paramOps []Operand,
) ([]program.Instruction, error) {
	if len(paramOps) != 0 {
		return nil, semanticErrorf(ArityMismatch, pos, desc.Name, len(paramOps),
			"%s takes no parameters", desc.Name)
	}
	if !desc.Variadic && len(qubitOps) != 0 {
		return nil, semanticErrorf(ArityMismatch, pos, desc.Name, len(qubitOps),
			"%s takes no operands", desc.Name)
	}

	var qubits []int
	for _, o := range qubitOps {
		qs, err := r.expandOperand(o)
		if err != nil {
			return nil, err
		}
		qubits = append(qubits, qs...)
	}

	return []program.Instruction{{
		Kind:   program.DirectiveInst,
		Name:   desc.Name,
		Qubits: qubits,
	}}, nil
}

func (r *resolver) resolveParams(desc program.Descriptor, ops []Operand) ([]float64, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	params := make([]float64, len(ops))
	for i, o := range ops {
		v := o.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, semanticErrorf(InvalidParameter, o.Pos, desc.Name, i,
				"parameter %s is not finite", o.Text)
		}
		if desc.ParamKind == program.Integer && math.Trunc(v) != v {
			return nil, semanticErrorf(InvalidParameter, o.Pos, desc.Name, i,
				"%s expects an integer parameter, got %s", desc.Name, o.Text)
		}
		params[i] = v
	}
	return params, nil
}

// expandOperand returns the qubits an operand selects, in order.
func (r *resolver) expandOperand(o Operand) ([]int, error) {
	switch o.Kind {
	case AliasOperand:
		q, ok := r.aliases.Lookup(o.Name)
		if !ok {
			if r.aliases.Len() == 0 {
				return nil, semanticErrorf(InvalidOperand, o.Pos, o.Name, 0,
					"undefined alias %s", o.Name)
			}
			return nil, semanticErrorf(InvalidOperand, o.Pos, o.Name, 0,
				"undefined alias %s (known aliases: %s)",
				o.Name, strings.Join(r.aliases.Aliases(), ", "))
		}
		return []int{q}, nil

	case QubitOperand:
		if lower(o.Register) != "q" {
			return nil, semanticErrorf(InvalidOperand, o.Pos, o.Register, 0,
				"unknown qubit register %s", o.Register)
		}

		var qubits []int
		for _, rg := range o.Indices {
			if rg.Lo > rg.Hi {
				return nil, semanticErrorf(InvalidOperand, o.Pos, o.Register, rg.Lo,
					"reversed range %d:%d", rg.Lo, rg.Hi)
			}
			if rg.Hi >= r.numQubits {
				return nil, semanticErrorf(QubitOutOfRange, o.Pos, o.Register, rg.Hi,
					"q[%d] is out of range for %d qubits", rg.Hi, r.numQubits)
			}
			for q := rg.Lo; q <= rg.Hi; q++ {
				qubits = append(qubits, q)
			}
		}
		return qubits, nil

	default:
		return nil, semanticErrorf(InvalidOperand, o.Pos, o.Text, 0,
			"expected a qubit, found %s", o.Text)
	}
}

// describeQubit names a qubit together with its aliases, if any.
func (r *resolver) describeQubit(q int) string {
	names := r.aliases.Names(q)
	if len(names) == 0 {
		return fmt.Sprintf("q[%d]", q)
	}
	return fmt.Sprintf("q[%d] (%s)", q, strings.Join(names, ", "))
}

func firstDuplicate(qubits []int) (int, bool) {
	seen := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		if seen[q] {
			return q, true
		}
		seen[q] = true
	}
	return 0, false
}
