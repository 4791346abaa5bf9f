package dummy

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/cqasm"
	"github.com/sarchlab/cqasmfe/quantum"
)

var _ = Describe("Host", func() {
	var (
		ctx    context.Context
		engine sim.Engine
		host   *Host
	)

	BeforeEach(func() {
		ctx = context.Background()
		engine = sim.NewSerialEngine()
		host = Builder{}.
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithOutcomes(FixedOutcomes{1: quantum.One}).
			Build("Host")
	})

	It("should reject gates before allocation", func() {
		err := host.ApplyGate(ctx, "h", []int{0}, nil)

		Expect(errors.Is(err, ErrNotAllocated)).To(BeTrue())
	})

	It("should reject a second allocation", func() {
		Expect(host.Allocate(ctx, 2)).To(Succeed())
		Expect(host.Allocate(ctx, 2)).NotTo(Succeed())
	})

	It("should reject free without allocation", func() {
		Expect(errors.Is(host.Free(ctx), ErrNotAllocated)).To(BeTrue())
	})

	It("should reject qubits out of range", func() {
		Expect(host.Allocate(ctx, 2)).To(Succeed())

		Expect(host.ApplyGate(ctx, "cnot", []int{0, 2}, nil)).
			To(MatchError(ContainSubstring("qubit 2 out of range")))

		_, err := host.Measure(ctx, -1, quantum.Z)
		Expect(err).To(HaveOccurred())
	})

	It("should process gates when measuring", func() {
		Expect(host.Allocate(ctx, 2)).To(Succeed())
		Expect(host.ApplyGate(ctx, "h", []int{0}, nil)).To(Succeed())
		Expect(host.Advance(ctx, 1)).To(Succeed())
		Expect(host.ApplyGate(ctx, "cnot", []int{0, 1}, nil)).To(Succeed())
		Expect(host.Records()).To(BeEmpty())

		Expect(host.Advance(ctx, 1)).To(Succeed())
		m, err := host.Measure(ctx, 1, quantum.Z)

		Expect(err).NotTo(HaveOccurred())
		Expect(m.Qubit).To(Equal(1))
		Expect(m.Value).To(Equal(quantum.One))
		Expect(m.Data).To(MatchJSON(`{"cycle":2,"basis":"Z"}`))

		records := host.Records()
		Expect(records).To(HaveLen(3))
		Expect(records[0].Name).To(Equal("h"))
		Expect(records[0].Cycle).To(Equal(uint64(0)))
		Expect(records[1].Name).To(Equal("cnot"))
		Expect(records[1].Cycle).To(Equal(uint64(1)))
		Expect(records[2].Kind).To(Equal(MeasureRecord))
		Expect(records[2].Name).To(Equal("measure_Z"))
		Expect(records[2].Cycle).To(Equal(uint64(2)))
		Expect(records[2].Time).To(BeNumerically(">", records[1].Time))
	})

	It("should run pending gates on sync", func() {
		Expect(host.Allocate(ctx, 1)).To(Succeed())
		Expect(host.ApplyGate(ctx, "rx", []int{0}, []float64{1.5})).To(Succeed())

		Expect(host.Sync(ctx)).To(Succeed())

		records := host.Records()
		Expect(records).To(HaveLen(1))
		Expect(records[0].Params).To(Equal([]float64{1.5}))
		Expect(engine.CurrentTime()).To(BeNumerically("==", 0))
	})

	It("should record host gates", func() {
		Expect(host.Allocate(ctx, 3)).To(Succeed())
		Expect(host.ApplyHostGate(ctx, quantum.Gate{
			Name: "toffoli", HostGate: "X", Controls: 2, Qubits: []int{0, 1, 2},
		})).To(Succeed())
		Expect(host.ApplyHostGate(ctx, quantum.Gate{
			Name: "cnot", HostGate: "X", Controls: 3, Qubits: []int{0, 1},
		})).To(MatchError(ContainSubstring("3 controls for 2 qubits")))

		Expect(host.Sync(ctx)).To(Succeed())

		records := host.Records()
		Expect(records).To(HaveLen(1))
		Expect(records[0].HostGate).To(Equal("X"))
		Expect(records[0].Controls).To(Equal(2))
		Expect(records[0].EventID).To(Equal("Host.op1"))

		buf := new(bytes.Buffer)
		PrintTrace(buf, records)
		Expect(buf.String()).To(ContainSubstring("C2-X"))
	})

	It("should keep its cycle", func() {
		Expect(host.Advance(ctx, 3)).To(Succeed())
		Expect(host.Advance(ctx, 4)).To(Succeed())

		Expect(host.Cycle()).To(Equal(uint64(7)))
	})

	It("should free qubits", func() {
		Expect(host.Allocate(ctx, 3)).To(Succeed())
		Expect(host.NumQubits()).To(Equal(3))

		Expect(host.Free(ctx)).To(Succeed())
		Expect(host.NumQubits()).To(Equal(0))
		Expect(host.Allocate(ctx, 1)).To(Succeed())
	})

	It("should stop on a canceled context", func() {
		Expect(host.Allocate(ctx, 1)).To(Succeed())
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := host.Measure(canceled, 0, quantum.Z)

		Expect(err).To(MatchError(context.Canceled))
	})

	It("should print the trace", func() {
		Expect(host.Allocate(ctx, 1)).To(Succeed())
		Expect(host.ApplyGate(ctx, "x", []int{0}, nil)).To(Succeed())
		_, err := host.Measure(ctx, 0, quantum.Z)
		Expect(err).NotTo(HaveOccurred())

		buf := new(bytes.Buffer)
		PrintTrace(buf, host.Records())

		Expect(buf.String()).To(ContainSubstring("measure_Z"))
		Expect(buf.String()).To(ContainSubstring("Host.op1"))
	})
})

var _ = Describe("Outcomes", func() {
	It("should measure zero by default", func() {
		Expect(ZeroOutcomes{}.Outcome(3, quantum.X)).To(Equal(quantum.Zero))
		Expect(FixedOutcomes{}.Outcome(3, quantum.Z)).To(Equal(quantum.Zero))
	})

	It("should be reproducible for a seed", func() {
		a := NewRandomOutcomes(42, 0.5)
		b := NewRandomOutcomes(42, 0.5)

		for i := 0; i < 32; i++ {
			Expect(a.Outcome(0, quantum.Z)).To(Equal(b.Outcome(0, quantum.Z)))
		}
	})

	It("should respect the extremes", func() {
		never := NewRandomOutcomes(1, 0)
		always := NewRandomOutcomes(1, 1)

		for i := 0; i < 16; i++ {
			Expect(never.Outcome(0, quantum.Z)).To(Equal(quantum.Zero))
			Expect(always.Outcome(0, quantum.Z)).To(Equal(quantum.One))
		}
	})
})

var _ = Describe("NullHost", func() {
	It("should measure zero", func() {
		var h NullHost

		Expect(h.ApplyGate(context.Background(), "h", []int{0}, nil)).To(Succeed())
		m, err := h.Measure(context.Background(), 4, quantum.Z)

		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(quantum.NewMeasurement(4, quantum.Zero)))
	})
})

var _ = Describe("Running programs", func() {
	const src = `version 1.0
qubits 3
.main(2)
prep_z q[0:2]
loop 3 {
  x q[0]
}
{ h q[1] | cnot q[0], q[2] }
wait 2
measure_all
`

	It("should complete on the null host", func() {
		stream, err := cqasm.Compile("null.cq", src)
		Expect(err).NotTo(HaveOccurred())

		result, err := api.RunSession(context.Background(), stream, NullHost{})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Dispatched).To(Equal(stream.Len()))
		Expect(result.Qubits).To(HaveLen(3))
	})

	It("should keep the host clock in step with the program", func() {
		stream, err := cqasm.Compile("timed.cq", src)
		Expect(err).NotTo(HaveOccurred())

		host := Builder{}.WithFreq(1 * sim.GHz).Build("Host")
		result, err := api.RunSession(context.Background(), stream, host)

		Expect(err).NotTo(HaveOccurred())
		Expect(host.Cycle()).To(Equal(stream.Cycles()))
		Expect(result.Cycles).To(Equal(stream.Cycles()))
		// 8 gates and 3 measured qubits per iteration.
		Expect(host.Records()).To(HaveLen(22))
		Expect(host.NumQubits()).To(Equal(0))
	})

	It("should apply the host gates the program maps to", func() {
		stream, err := cqasm.Compile("mapped.cq",
			"version 1.0\nqubits 2\ncnot q[0], q[1]\ncr q[1], q[0], 0.5\ndisplay\nmeasure q[1]\n")
		Expect(err).NotTo(HaveOccurred())

		host := Builder{}.Build("Host")
		_, err = api.RunSession(context.Background(), stream, host)

		Expect(err).NotTo(HaveOccurred())
		records := host.Records()
		Expect(records).To(HaveLen(3))
		Expect(records[0].HostGate).To(Equal("X"))
		Expect(records[0].Controls).To(Equal(1))
		Expect(records[1].HostGate).To(Equal("PHASE"))
		Expect(records[1].Params).To(Equal([]float64{0.5}))
		Expect(records[2].HostGate).To(Equal("MEASURE"))
	})
})
