package cqasm

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const header = "version 1.0\nqubits 4\n"

func parseError(err error) *ParseError {
	perr, ok := err.(*ParseError)
	Expect(ok).To(BeTrue(), "expected *ParseError, got %v", err)
	return perr
}

var _ = Describe("Parser", func() {
	It("should parse the header", func() {
		prog, err := Parse("", "\n\nversion 1.0\n\nqubits 5\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Header.Version).To(Equal("1.0"))
		Expect(prog.Header.Pos.Line).To(Equal(3))
		Expect(prog.Qubits.Count).To(Equal(5))
		Expect(prog.Subcircuits).To(BeEmpty())
	})

	It("should keep negative register sizes for the resolver", func() {
		prog, err := Parse("", "version 1\nqubits -3")

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Qubits.Count).To(Equal(-3))
	})

	It("should collect leading statements into an unnamed subcircuit", func() {
		prog, err := Parse("", header+"x q[0]\n.main(2)\nh q[1]\ny q[2]\n.empty\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Subcircuits).To(HaveLen(3))

		Expect(prog.Subcircuits[0].Name).To(BeEmpty())
		Expect(prog.Subcircuits[0].Iterations).To(Equal(1))
		Expect(prog.Subcircuits[0].Body).To(HaveLen(1))

		Expect(prog.Subcircuits[1].Name).To(Equal("main"))
		Expect(prog.Subcircuits[1].Iterations).To(Equal(2))
		Expect(prog.Subcircuits[1].Body).To(HaveLen(2))

		Expect(prog.Subcircuits[2].Name).To(Equal("empty"))
		Expect(prog.Subcircuits[2].Body).To(BeEmpty())
	})

	It("should parse operands", func() {
		prog, err := Parse("", header+"cr q[0,2:3], anc, 1.5\n")

		Expect(err).NotTo(HaveOccurred())
		stmt := prog.Subcircuits[0].Body[0].(*GateStatement)
		Expect(stmt.Name).To(Equal("cr"))
		Expect(stmt.Operands).To(HaveLen(3))

		Expect(stmt.Operands[0].Kind).To(Equal(QubitOperand))
		Expect(stmt.Operands[0].Register).To(Equal("q"))
		Expect(stmt.Operands[0].Indices).To(Equal([]IndexRange{{0, 0}, {2, 3}}))

		Expect(stmt.Operands[1].Kind).To(Equal(AliasOperand))
		Expect(stmt.Operands[1].Name).To(Equal("anc"))

		Expect(stmt.Operands[2].Kind).To(Equal(NumberOperand))
		Expect(stmt.Operands[2].Value).To(Equal(1.5))
	})

	It("should produce measure statements", func() {
		prog, err := Parse("", header+"measure_x q[1]\nmeasure_all\n")

		Expect(err).NotTo(HaveOccurred())
		body := prog.Subcircuits[0].Body
		Expect(body[0]).To(BeAssignableToTypeOf(&MeasureStatement{}))
		Expect(body[1]).To(BeAssignableToTypeOf(&MeasureStatement{}))
		Expect(body[1].(*MeasureStatement).Operands).To(BeEmpty())
	})

	It("should parse bundles across lines", func() {
		prog, err := Parse("", header+"{ x q[0]\n | y q[1] |\n z q[2] }\n")

		Expect(err).NotTo(HaveOccurred())
		bundle := prog.Subcircuits[0].Body[0].(*BundleStatement)
		Expect(bundle.Ops).To(HaveLen(3))
		Expect(bundle.Ops[2].OpName()).To(Equal("z"))
	})

	It("should parse loops, calls, maps and waits", func() {
		src := header + "map q[3], anc\nloop 3 {\n  x anc\n  wait 2\n}\ncall sub\nloop 2 { h q[0] }\n"
		prog, err := Parse("", src)

		Expect(err).NotTo(HaveOccurred())
		body := prog.Subcircuits[0].Body
		Expect(body).To(HaveLen(4))

		m := body[0].(*MapStatement)
		Expect(m.Alias).To(Equal("anc"))
		Expect(m.Qubit.Indices).To(Equal([]IndexRange{{3, 3}}))

		loop := body[1].(*LoopBlock)
		Expect(loop.Count).To(Equal(3))
		Expect(loop.Body).To(HaveLen(2))
		Expect(loop.Body[1].(*WaitStatement).Cycles).To(Equal(2))

		Expect(body[2].(*CallStatement).Name).To(Equal("sub"))
		Expect(body[3].(*LoopBlock).Body).To(HaveLen(1))
	})

	It("should parse nested loops", func() {
		prog, err := Parse("", header+"loop 2 {\nloop 3 {\nx q[0]\n}\n}\n")

		Expect(err).NotTo(HaveOccurred())
		outer := prog.Subcircuits[0].Body[0].(*LoopBlock)
		inner := outer.Body[0].(*LoopBlock)
		Expect(inner.Count).To(Equal(3))
	})

	It("should report a missing qubit declaration", func() {
		_, err := Parse("f.cq", "version 1.0\nx q[0]\n")

		perr := parseError(err)
		Expect(perr.Expected).To(Equal("'qubits'"))
		Expect(perr.Found).To(Equal(`"x"`))
		Expect(perr.Pos).To(Equal(Position{File: "f.cq", Line: 2, Column: 1}))
	})

	It("should report a missing header", func() {
		_, err := Parse("", "qubits 2\n")

		Expect(parseError(err).Expected).To(Equal("'version'"))
	})

	It("should reject two statements on one line", func() {
		_, err := Parse("", header+"x q[0] y q[1]\n")

		perr := parseError(err)
		Expect(perr.Expected).To(Equal("newline"))
		Expect(perr.Found).To(Equal(`"y"`))
	})

	It("should reject qubit operands after parameters", func() {
		_, err := Parse("", header+"rx 0.5, q[0]\n")

		Expect(parseError(err).Expected).To(Equal("number"))
	})

	It("should reject negative loop counts", func() {
		_, err := Parse("", header+"loop -1 {\nx q[0]\n}\n")

		Expect(parseError(err).Expected).To(Equal("non-negative integer"))
	})

	It("should clamp integers too large for int", func() {
		prog, err := Parse("", header+"x q[99999999999999999999]\nloop 99999999999999999999 {\n}\n")

		Expect(err).NotTo(HaveOccurred())
		body := prog.Subcircuits[0].Body
		x := body[0].(*GateStatement)
		Expect(x.Operands[0].Indices).To(Equal([]IndexRange{{math.MaxInt, math.MaxInt}}))
		Expect(body[1].(*LoopBlock).Count).To(Equal(math.MaxInt))
	})

	It("should reject an unterminated loop", func() {
		_, err := Parse("", header+"loop 2 {\nx q[0]\n")

		perr := parseError(err)
		Expect(perr.Expected).To(Equal("'}'"))
		Expect(perr.Found).To(Equal("end of file"))
	})

	It("should reject an empty bundle", func() {
		_, err := Parse("", header+"{ }\n")

		Expect(parseError(err).Expected).To(Equal("operation"))
	})

	It("should reject an unclosed index list", func() {
		_, err := Parse("", header+"x q[0\n")

		Expect(parseError(err).Expected).To(Equal("',' or ']'"))
	})

	It("should pass lexer errors through", func() {
		_, err := Parse("", header+"x q[0] @\n")

		Expect(err).To(BeAssignableToTypeOf(&LexError{}))
	})
})
