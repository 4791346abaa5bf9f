package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/cqasm"
	"github.com/sarchlab/cqasmfe/program"
	"github.com/sarchlab/cqasmfe/quantum"
)

// fullHost offers every optional host capability.
type fullHost struct {
	*MockHost
	*MockAllocator
	*MockClock
	*MockSyncer
}

// gateSetHost is a host with predefined gates. Measurements go to the mock.
type gateSetHost struct {
	*MockHost
	gates []quantum.Gate
}

func (h *gateSetHost) ApplyHostGate(_ context.Context, g quantum.Gate) error {
	h.gates = append(h.gates, g)
	return nil
}

type hookFunc func(sim.HookCtx)

func (f hookFunc) Func(ctx sim.HookCtx) {
	f(ctx)
}

func mustCompile(src string) *program.Stream {
	s, err := cqasm.Compile("test.cq", "version 1.0\nqubits 2\n"+src)
	Expect(err).NotTo(HaveOccurred())
	return s
}

const bell = "h q[0]\ncnot q[0], q[1]\nmeasure q[0,1]\n"

var _ = Describe("Session", func() {
	var (
		mockCtrl *gomock.Controller
		host     *MockHost
		recorder *Recorder
		session  *Session
		ctx      context.Context
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		host = NewMockHost(mockCtrl)
		recorder = &Recorder{}
		session = SessionBuilder{}.
			WithHost(host).
			WithHook(recorder).
			WithHook(TraceHook{}).
			Build("s1")
		ctx = context.Background()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectBell := func(v0, v1 quantum.MeasurementValue) {
		gomock.InOrder(
			host.EXPECT().ApplyGate(gomock.Any(), "h", []int{0}, gomock.Nil()),
			host.EXPECT().ApplyGate(gomock.Any(), "cnot", []int{0, 1}, gomock.Nil()),
			host.EXPECT().Measure(gomock.Any(), 0, quantum.Z).
				Return(quantum.NewMeasurement(0, v0), nil),
			host.EXPECT().Measure(gomock.Any(), 1, quantum.Z).
				Return(quantum.NewMeasurement(1, v1), nil),
		)
	}

	It("should start uninitialized", func() {
		Expect(session.ID()).To(Equal("s1"))
		Expect(session.State()).To(Equal(Uninitialized))
		Expect(session.Err()).To(BeNil())
	})

	It("should generate an ID when none is given", func() {
		s := SessionBuilder{}.WithHost(host).Build("")
		Expect(s.ID()).NotTo(BeEmpty())
	})

	It("should compile and run a program", func() {
		expectBell(quantum.One, quantum.One)

		err := session.Initialize(ctx, InitConfig{
			Filename: "bell.cq",
			Source:   "version 1.0\nqubits 2\n" + bell,
			Params:   map[string]string{"shots": "1"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(session.State()).To(Equal(Ready))
		Expect(session.Params()).To(HaveKeyWithValue("shots", "1"))

		result, err := session.Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(session.State()).To(Equal(Completed))
		Expect(result.SessionID).To(Equal("s1"))
		Expect(result.Dispatched).To(Equal(3))
		Expect(result.Cycles).To(Equal(uint64(3)))
		Expect(result.Qubits).To(HaveLen(2))
		Expect(result.Qubits[0].Value).To(Equal(1))
		Expect(*result.Qubits[1].Average).To(Equal(1.0))

		Expect(recorder.States()).To(Equal([]State{
			Initializing, Ready, Running, Draining, Completed,
		}))
		Expect(recorder.Instructions()).To(HaveLen(3))
		Expect(recorder.Measurements()).To(HaveLen(2))
	})

	It("should record a measurement before dispatching the next gate", func() {
		gomock.InOrder(
			host.EXPECT().Measure(gomock.Any(), 0, quantum.Z).
				Return(quantum.NewMeasurement(0, quantum.One), nil),
			host.EXPECT().ApplyGate(gomock.Any(), "h", []int{1}, gomock.Nil()).
				DoAndReturn(func(context.Context, string, []int, []float64) error {
					Expect(recorder.Measurements()).To(HaveLen(1))
					Expect(recorder.Measurements()[0].Qubit).To(Equal(0))
					return nil
				}),
			host.EXPECT().Measure(gomock.Any(), 1, quantum.Z).
				Return(quantum.NewMeasurement(1, quantum.Zero), nil),
		)
		Expect(session.Load(mustCompile("measure q[0]\nh q[1]\nmeasure q[1]\n"))).To(Succeed())

		result, err := session.Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		var names []string
		for _, inst := range recorder.Instructions() {
			names = append(names, inst.String())
		}
		Expect(names).To(Equal([]string{"measure q[0]", "h q[1]", "measure q[1]"}))
		Expect(result.Qubits[0].Value).To(Equal(1))
		Expect(result.Qubits[1].Value).To(Equal(0))
	})

	It("should send host gates to a host with predefined gates", func() {
		gs := &gateSetHost{MockHost: host}
		host.EXPECT().Measure(gomock.Any(), 1, quantum.Z).
			Return(quantum.NewMeasurement(1, quantum.One), nil)

		s := SessionBuilder{}.WithHost(gs).Build("")
		Expect(s.Load(mustCompile("cnot q[0], q[1]\ncr q[1], q[0], 0.25\nmeasure q[1]\n"))).
			To(Succeed())

		_, err := s.Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(gs.gates).To(Equal([]quantum.Gate{
			{Name: "cnot", HostGate: "X", Controls: 1, Qubits: []int{0, 1}},
			{Name: "cr", HostGate: "PHASE", Controls: 1, Qubits: []int{1, 0}, Params: []float64{0.25}},
		}))
	})

	It("should reset and display the measurement register", func() {
		var logs bytes.Buffer
		s := SessionBuilder{}.
			WithHost(host).
			WithHook(recorder).
			WithLogger(slog.New(slog.NewTextHandler(&logs, nil))).
			Build("s2")
		gomock.InOrder(
			host.EXPECT().Measure(gomock.Any(), 0, quantum.Z).
				Return(quantum.NewMeasurement(0, quantum.One), nil),
			host.EXPECT().Measure(gomock.Any(), 0, quantum.Z).
				Return(quantum.NewMeasurement(0, quantum.Zero), nil),
			host.EXPECT().Measure(gomock.Any(), 0, quantum.Z).
				Return(quantum.NewMeasurement(0, quantum.One), nil),
		)
		Expect(s.Load(mustCompile("measure q[0]\nreset-averaging\nmeasure q[0]\n" +
			"measure q[0]\ndisplay_binary q[0]\ndisplay\ndisplay\n"))).To(Succeed())

		result, err := s.Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Dispatched).To(Equal(7))
		Expect(result.Cycles).To(Equal(uint64(3)))
		Expect(result.Qubits[0].Samples).To(Equal(2))
		Expect(*result.Qubits[0].Average).To(Equal(0.5))
		Expect(recorder.Instructions()).To(HaveLen(7))

		out := logs.String()
		Expect(out).To(ContainSubstring("measurement averages reset"))
		Expect(out).To(ContainSubstring("b0: 1; q0: 0.500000 (2 samples, latest = 1)"))
		Expect(out).To(ContainSubstring("b1: 0; q1: no data"))
		Expect(bytes.Count(logs.Bytes(), []byte("cannot be displayed"))).To(Equal(1))
	})

	It("should measure parity qubit by qubit", func() {
		var logs bytes.Buffer
		s := SessionBuilder{}.
			WithHost(host).
			WithLogger(slog.New(slog.NewTextHandler(&logs, nil))).
			Build("")
		gomock.InOrder(
			host.EXPECT().Measure(gomock.Any(), 0, quantum.Z).
				Return(quantum.NewMeasurement(0, quantum.One), nil),
			host.EXPECT().Measure(gomock.Any(), 1, quantum.Z).
				Return(quantum.NewMeasurement(1, quantum.One), nil),
		)
		Expect(s.Load(mustCompile("measure_parity q[0], q[1]\n"))).To(Succeed())

		result, err := s.Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Qubits[1].Value).To(Equal(1))
		Expect(logs.String()).To(ContainSubstring("level=ERROR"))
		Expect(logs.String()).To(ContainSubstring("measure_parity is not implemented"))
	})

	It("should fail on a compile error without touching the host", func() {
		err := session.Initialize(ctx, InitConfig{
			Filename: "bad.cq",
			Source:   "version 1.0\nqubits 2\nx q[9]\n",
		})

		var cerr *cqasm.CompileError
		Expect(errors.As(err, &cerr)).To(BeTrue())
		Expect(cqasm.IsSemantic(err, cqasm.QubitOutOfRange)).To(BeTrue())
		pos, ok := cqasm.PositionOf(err)
		Expect(ok).To(BeTrue())
		Expect(pos.Line).To(Equal(3))

		Expect(session.State()).To(Equal(Failed))
		Expect(session.Err()).To(Equal(err))

		_, err = session.Run(ctx)
		Expect(err).To(BeAssignableToTypeOf(&InvalidStateError{}))
	})

	It("should fail without a source", func() {
		err := session.Initialize(ctx, InitConfig{})

		Expect(err).To(HaveOccurred())
		Expect(session.State()).To(Equal(Failed))
	})

	It("should reject a second initialization", func() {
		Expect(session.Load(mustCompile("x q[0]\n"))).To(Succeed())

		err := session.Initialize(ctx, InitConfig{Source: "version 1.0\nqubits 1\n"})

		Expect(err).To(Equal(&InvalidStateError{Op: "initialize", State: Ready}))
		Expect(session.State()).To(Equal(Ready))
	})

	It("should reject running before initialization", func() {
		_, err := session.Run(ctx)

		Expect(err).To(Equal(&InvalidStateError{Op: "run", State: Uninitialized}))
	})

	It("should reject running a completed session", func() {
		expectBell(quantum.Zero, quantum.One)
		Expect(session.Load(mustCompile(bell))).To(Succeed())
		_, err := session.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		_, err = session.Run(ctx)

		Expect(err).To(Equal(&InvalidStateError{Op: "run", State: Completed}))
		Expect(session.Abort("late")).
			To(Equal(&InvalidStateError{Op: "abort", State: Completed}))
	})

	It("should stop at the first host error", func() {
		hostErr := errors.New("connection lost")
		gomock.InOrder(
			host.EXPECT().ApplyGate(gomock.Any(), "h", []int{0}, gomock.Nil()),
			host.EXPECT().ApplyGate(gomock.Any(), "cnot", []int{0, 1}, gomock.Nil()).
				Return(hostErr),
		)
		Expect(session.Load(mustCompile(bell))).To(Succeed())

		result, err := session.Run(ctx)

		Expect(result).To(BeNil())
		var rerr *RuntimeError
		Expect(errors.As(err, &rerr)).To(BeTrue())
		Expect(rerr.Index).To(Equal(1))
		Expect(rerr.Op).To(Equal("cnot"))
		Expect(errors.Is(err, hostErr)).To(BeTrue())
		Expect(session.State()).To(Equal(Failed))
		Expect(session.Stream()).To(BeNil())
	})

	It("should reject a measurement of the wrong qubit", func() {
		host.EXPECT().Measure(gomock.Any(), 0, quantum.X).
			Return(quantum.NewMeasurement(1, quantum.One), nil)
		Expect(session.Load(mustCompile("measure_x q[0]\n"))).To(Succeed())

		_, err := session.Run(ctx)

		Expect(err).To(BeAssignableToTypeOf(&RuntimeError{}))
	})

	It("should record undefined measurements as zero", func() {
		host.EXPECT().Measure(gomock.Any(), 1, quantum.Z).
			Return(quantum.NewMeasurement(1, quantum.Undefined), nil)
		Expect(session.Load(mustCompile("measure q[1]\n"))).To(Succeed())

		result, err := session.Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Qubits[1].Value).To(Equal(0))
		Expect(result.Qubits[1].Raw).To(BeNil())
		Expect(result.Qubits[1].Samples).To(Equal(1))
		Expect(*result.Qubits[1].Average).To(Equal(0.0))
		Expect(result.Qubits[0].Average).To(BeNil())
	})

	It("should use optional host capabilities", func() {
		full := fullHost{
			MockHost:      host,
			MockAllocator: NewMockAllocator(mockCtrl),
			MockClock:     NewMockClock(mockCtrl),
			MockSyncer:    NewMockSyncer(mockCtrl),
		}
		gomock.InOrder(
			full.MockAllocator.EXPECT().Allocate(gomock.Any(), 2),
			host.EXPECT().ApplyGate(gomock.Any(), "x", []int{0}, gomock.Nil()),
			full.MockClock.EXPECT().Advance(gomock.Any(), uint64(3)),
			host.EXPECT().ApplyGate(gomock.Any(), "rx", []int{1}, []float64{0.5}),
			full.MockClock.EXPECT().Advance(gomock.Any(), uint64(1)),
			full.MockSyncer.EXPECT().Sync(gomock.Any()),
			full.MockAllocator.EXPECT().Free(gomock.Any()),
		)

		s := SessionBuilder{}.WithHost(full).Build("")
		Expect(s.Load(mustCompile("x q[0]\nwait 2\nrx q[1], 0.5\n"))).To(Succeed())

		result, err := s.Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Cycles).To(Equal(uint64(4)))
	})

	It("should free qubits when a run fails", func() {
		full := fullHost{
			MockHost:      host,
			MockAllocator: NewMockAllocator(mockCtrl),
			MockClock:     NewMockClock(mockCtrl),
			MockSyncer:    NewMockSyncer(mockCtrl),
		}
		gomock.InOrder(
			full.MockAllocator.EXPECT().Allocate(gomock.Any(), 2),
			host.EXPECT().ApplyGate(gomock.Any(), "x", []int{0}, gomock.Nil()).
				Return(errors.New("rejected")),
			full.MockAllocator.EXPECT().Free(gomock.Any()),
		)

		s := SessionBuilder{}.WithHost(full).Build("")
		Expect(s.Load(mustCompile("x q[0]\n"))).To(Succeed())

		_, err := s.Run(ctx)

		Expect(err).To(HaveOccurred())
		Expect(s.State()).To(Equal(Failed))
	})

	It("should abort between instructions", func() {
		host.EXPECT().ApplyGate(gomock.Any(), "h", []int{0}, gomock.Nil()).
			DoAndReturn(func(context.Context, string, []int, []float64) error {
				Expect(session.Abort("user request")).To(Succeed())
				return nil
			})
		Expect(session.Load(mustCompile(bell))).To(Succeed())

		_, err := session.Run(ctx)

		Expect(IsAborted(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("user request"))
		Expect(session.State()).To(Equal(Failed))
		Expect(session.Stream()).To(BeNil())

		_, err = session.Run(ctx)
		Expect(err).To(BeAssignableToTypeOf(&InvalidStateError{}))
	})

	It("should cancel a run aborted while it starts", func() {
		full := fullHost{
			MockHost:      host,
			MockAllocator: NewMockAllocator(mockCtrl),
			MockClock:     NewMockClock(mockCtrl),
			MockSyncer:    NewMockSyncer(mockCtrl),
		}
		gomock.InOrder(
			full.MockAllocator.EXPECT().Allocate(gomock.Any(), 2).
				DoAndReturn(func(ctx context.Context, _ int) error {
					Expect(ctx.Err()).To(MatchError(context.Canceled))
					return nil
				}),
			full.MockAllocator.EXPECT().Free(gomock.Any()),
		)

		s := SessionBuilder{}.
			WithHost(full).
			WithHook(hookFunc(func(hc sim.HookCtx) {
				change, ok := hc.Item.(StateChange)
				if ok && change.To == Running {
					Expect(hc.Domain.(*Session).Abort("shutdown")).To(Succeed())
				}
			})).
			Build("")
		Expect(s.Load(mustCompile(bell))).To(Succeed())

		_, err := s.Run(ctx)

		Expect(IsAborted(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("shutdown"))
		Expect(s.State()).To(Equal(Failed))
	})

	It("should abort a blocked measurement", func() {
		started := make(chan struct{})
		host.EXPECT().Measure(gomock.Any(), 0, quantum.Z).
			DoAndReturn(func(ctx context.Context, _ int, _ quantum.Basis) (quantum.Measurement, error) {
				close(started)
				<-ctx.Done()
				return quantum.Measurement{}, ctx.Err()
			})
		Expect(session.Load(mustCompile("measure q[0]\nx q[1]\n"))).To(Succeed())

		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			_, err := session.Run(ctx)
			done <- err
		}()

		<-started
		Expect(session.Abort("")).To(Succeed())

		var err error
		Eventually(done).Should(Receive(&err))
		Expect(IsAborted(err)).To(BeTrue())
		Expect(session.State()).To(Equal(Failed))
	})

	It("should abort a ready session", func() {
		Expect(session.Load(mustCompile(bell))).To(Succeed())

		Expect(session.Abort("")).To(Succeed())

		Expect(session.State()).To(Equal(Failed))
		Expect(IsAborted(session.Err())).To(BeTrue())
	})

	It("should fail when the context is canceled", func() {
		Expect(session.Load(mustCompile(bell))).To(Succeed())
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := session.Run(canceled)

		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(session.State()).To(Equal(Failed))
	})

	It("should run a stream in one call", func() {
		expectBell(quantum.One, quantum.Zero)

		result, err := RunSession(ctx, mustCompile(bell), host)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Qubits[0].Value).To(Equal(1))
		Expect(result.Qubits[1].Value).To(Equal(0))
	})
})

var _ = Describe("Register", func() {
	It("should average samples", func() {
		r := NewRegister(2)

		r.Record(quantum.NewMeasurement(0, quantum.One))
		r.Record(quantum.NewMeasurement(0, quantum.Zero))
		r.Record(quantum.NewMeasurement(0, quantum.One))
		r.Record(quantum.NewMeasurement(0, quantum.One))

		Expect(r.Samples(0)).To(Equal(4))
		Expect(r.P1(0)).To(Equal(0.75))
		Expect(r.Value(0)).To(BeTrue())
		Expect(r.P1(1)).To(Equal(-1.0))

		r.Reset()
		Expect(r.Samples(0)).To(Equal(0))
	})

	It("should marshal results", func() {
		r := NewRegister(2)
		r.Record(quantum.NewMeasurement(0, quantum.One).
			WithData(json.RawMessage(`{"fidelity":0.9}`)))

		result := &RunResult{
			SessionID:  "s1",
			Cycles:     2,
			Dispatched: 1,
			Qubits:     r.Results(),
		}
		data, err := result.JSON()

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{
			"session": "s1",
			"cycles": 2,
			"dispatched": 1,
			"qubits": [
				{"qubit": 0, "value": 1, "raw": 1, "average": 1, "samples": 1,
				 "data": {"fidelity": 0.9}},
				{"qubit": 1, "value": 0, "raw": null, "samples": 0}
			]
		}`))
	})
})

var _ = Describe("State", func() {
	It("should only allow forward transitions", func() {
		Expect(canTransition(Uninitialized, Initializing)).To(BeTrue())
		Expect(canTransition(Draining, Completed)).To(BeTrue())
		Expect(canTransition(Running, Failed)).To(BeTrue())
		Expect(canTransition(Ready, Completed)).To(BeFalse())
		Expect(canTransition(Completed, Failed)).To(BeFalse())
		Expect(canTransition(Failed, Ready)).To(BeFalse())
	})

	It("should name states", func() {
		Expect(Draining.String()).To(Equal("Draining"))
		Expect(Failed.IsTerminal()).To(BeTrue())
		Expect(Running.IsTerminal()).To(BeFalse())
	})
})
