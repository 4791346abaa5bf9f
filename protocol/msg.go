// Package protocol defines the messages exchanged between the cQASM plugin
// and the simulator host, and the two ends that speak them.
package protocol

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/quantum"
)

// Msg is a protocol message. Answers to a request also implement sim.Rsp.
type Msg = sim.Msg

func newMeta() sim.MsgMeta {
	return sim.MsgMeta{ID: newID()}
}

func newID() string {
	return sim.GetIDGenerator().Generate()
}

// InitMsg asks the plugin to compile a program.
type InitMsg struct {
	sim.MsgMeta

	Filename string
	Source   string
	Path     string
	Params   map[string]string
}

// Meta returns the meta data of the msg.
func (m *InitMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *InitMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// InitMsgBuilder is a factory for InitMsg.
type InitMsgBuilder struct {
	filename, source, path string
	params                 map[string]string
}

// WithFilename sets the file name used in diagnostics.
func (b InitMsgBuilder) WithFilename(filename string) InitMsgBuilder {
	b.filename = filename
	return b
}

// WithSource sets the program text.
func (b InitMsgBuilder) WithSource(source string) InitMsgBuilder {
	b.source = source
	return b
}

// WithPath sets the path of a program file the plugin reads itself.
func (b InitMsgBuilder) WithPath(path string) InitMsgBuilder {
	b.path = path
	return b
}

// WithParam adds a free-form parameter.
func (b InitMsgBuilder) WithParam(key, value string) InitMsgBuilder {
	params := make(map[string]string, len(b.params)+1)
	for k, v := range b.params {
		params[k] = v
	}
	params[key] = value
	b.params = params
	return b
}

// Build creates an InitMsg.
func (b InitMsgBuilder) Build() *InitMsg {
	return &InitMsg{
		MsgMeta:  newMeta(),
		Filename: b.filename,
		Source:   b.source,
		Path:     b.path,
		Params:   b.params,
	}
}

// RunMsg asks the plugin to run the compiled program.
type RunMsg struct {
	sim.MsgMeta
}

// Meta returns the meta data of the msg.
func (m *RunMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *RunMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// NewRunMsg creates a RunMsg.
func NewRunMsg() *RunMsg {
	return &RunMsg{MsgMeta: newMeta()}
}

// AbortMsg asks the plugin to stop.
type AbortMsg struct {
	sim.MsgMeta

	Reason string
}

// Meta returns the meta data of the msg.
func (m *AbortMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *AbortMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// NewAbortMsg creates an AbortMsg.
func NewAbortMsg(reason string) *AbortMsg {
	return &AbortMsg{MsgMeta: newMeta(), Reason: reason}
}

// GateMsg applies a gate on the host. The host does not reply unless the
// gate fails. HostGate is empty if the gate has no predefined host gate.
type GateMsg struct {
	sim.MsgMeta

	Name     string
	HostGate string
	Controls int
	Qubits   []int
	Params   []float64
}

// Gate returns the gate the msg applies.
func (m *GateMsg) Gate() quantum.Gate {
	return quantum.Gate{
		Name:     m.Name,
		HostGate: m.HostGate,
		Controls: m.Controls,
		Qubits:   m.Qubits,
		Params:   m.Params,
	}
}

// Meta returns the meta data of the msg.
func (m *GateMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *GateMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// GateMsgBuilder is a factory for GateMsg.
type GateMsgBuilder struct {
	name     string
	hostGate string
	controls int
	qubits   []int
	params   []float64
}

// WithName sets the gate name.
func (b GateMsgBuilder) WithName(name string) GateMsgBuilder {
	b.name = name
	return b
}

// WithHostGate sets the predefined host gate and its number of controls.
func (b GateMsgBuilder) WithHostGate(hostGate string, controls int) GateMsgBuilder {
	b.hostGate = hostGate
	b.controls = controls
	return b
}

// WithQubits sets the target qubits.
func (b GateMsgBuilder) WithQubits(qubits ...int) GateMsgBuilder {
	b.qubits = qubits
	return b
}

// WithParams sets the gate parameters.
func (b GateMsgBuilder) WithParams(params ...float64) GateMsgBuilder {
	b.params = params
	return b
}

// Build creates a GateMsg.
func (b GateMsgBuilder) Build() *GateMsg {
	return &GateMsg{
		MsgMeta:  newMeta(),
		Name:     b.name,
		HostGate: b.hostGate,
		Controls: b.controls,
		Qubits:   append([]int(nil), b.qubits...),
		Params:   append([]float64(nil), b.params...),
	}
}

// MeasureMsg measures one qubit. The host replies with a MeasurementMsg.
type MeasureMsg struct {
	sim.MsgMeta

	Qubit int
	Basis quantum.Basis
}

// Meta returns the meta data of the msg.
func (m *MeasureMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *MeasureMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// NewMeasureMsg creates a MeasureMsg.
func NewMeasureMsg(qubit int, basis quantum.Basis) *MeasureMsg {
	return &MeasureMsg{MsgMeta: newMeta(), Qubit: qubit, Basis: basis}
}

// MeasurementMsg carries a measurement result.
type MeasurementMsg struct {
	sim.MsgMeta

	RespondTo   string
	Measurement quantum.Measurement
}

// Meta returns the meta data of the msg.
func (m *MeasurementMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *MeasurementMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// GetRspTo returns the ID of the request being answered.
func (m *MeasurementMsg) GetRspTo() string {
	return m.RespondTo
}

// MeasurementMsgBuilder is a factory for MeasurementMsg.
type MeasurementMsgBuilder struct {
	respondTo   string
	measurement quantum.Measurement
}

// WithRespondTo sets the ID of the MeasureMsg being answered.
func (b MeasurementMsgBuilder) WithRespondTo(id string) MeasurementMsgBuilder {
	b.respondTo = id
	return b
}

// WithMeasurement sets the result.
func (b MeasurementMsgBuilder) WithMeasurement(m quantum.Measurement) MeasurementMsgBuilder {
	b.measurement = m
	return b
}

// Build creates a MeasurementMsg.
func (b MeasurementMsgBuilder) Build() *MeasurementMsg {
	return &MeasurementMsg{
		MsgMeta:     newMeta(),
		RespondTo:   b.respondTo,
		Measurement: b.measurement,
	}
}

// AllocateMsg allocates the qubit register on the host.
type AllocateMsg struct {
	sim.MsgMeta

	NumQubits int
}

// Meta returns the meta data of the msg.
func (m *AllocateMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *AllocateMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// NewAllocateMsg creates an AllocateMsg.
func NewAllocateMsg(numQubits int) *AllocateMsg {
	return &AllocateMsg{MsgMeta: newMeta(), NumQubits: numQubits}
}

// FreeMsg releases the qubit register on the host.
type FreeMsg struct {
	sim.MsgMeta
}

// Meta returns the meta data of the msg.
func (m *FreeMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *FreeMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// NewFreeMsg creates a FreeMsg.
func NewFreeMsg() *FreeMsg {
	return &FreeMsg{MsgMeta: newMeta()}
}

// AdvanceMsg lets simulated time pass on the host. There is no reply.
type AdvanceMsg struct {
	sim.MsgMeta

	Cycles uint64
}

// Meta returns the meta data of the msg.
func (m *AdvanceMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *AdvanceMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// NewAdvanceMsg creates an AdvanceMsg.
func NewAdvanceMsg(cycles uint64) *AdvanceMsg {
	return &AdvanceMsg{MsgMeta: newMeta(), Cycles: cycles}
}

// SyncMsg waits until the host has processed all earlier messages.
type SyncMsg struct {
	sim.MsgMeta
}

// Meta returns the meta data of the msg.
func (m *SyncMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *SyncMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// NewSyncMsg creates a SyncMsg.
func NewSyncMsg() *SyncMsg {
	return &SyncMsg{MsgMeta: newMeta()}
}

// AckMsg confirms a request that has no other answer.
type AckMsg struct {
	sim.MsgMeta

	RespondTo string
}

// Meta returns the meta data of the msg.
func (m *AckMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *AckMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// GetRspTo returns the ID of the request being answered.
func (m *AckMsg) GetRspTo() string {
	return m.RespondTo
}

// NewAckMsg creates an AckMsg answering the message with the given ID.
func NewAckMsg(respondTo string) *AckMsg {
	return &AckMsg{MsgMeta: newMeta(), RespondTo: respondTo}
}

// ResultMsg answers a RunMsg after a completed run.
type ResultMsg struct {
	sim.MsgMeta

	RespondTo string
	Result    *api.RunResult
}

// Meta returns the meta data of the msg.
func (m *ResultMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *ResultMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// GetRspTo returns the ID of the request being answered.
func (m *ResultMsg) GetRspTo() string {
	return m.RespondTo
}

// NewResultMsg creates a ResultMsg.
func NewResultMsg(respondTo string, result *api.RunResult) *ResultMsg {
	return &ResultMsg{MsgMeta: newMeta(), RespondTo: respondTo, Result: result}
}

// ErrorMsg answers a request that failed. It doubles as the error value
// returned to the side that sent the request.
type ErrorMsg struct {
	sim.MsgMeta

	RespondTo string
	Kind      ErrorKind
	Message   string

	File   string
	Line   int
	Column int
}

// Meta returns the meta data of the msg.
func (m *ErrorMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the msg with a new ID.
func (m *ErrorMsg) Clone() sim.Msg {
	c := *m
	c.ID = newID()
	return &c
}

// GetRspTo returns the ID of the request being answered.
func (m *ErrorMsg) GetRspTo() string {
	return m.RespondTo
}

func (m *ErrorMsg) Error() string {
	return fmt.Sprintf("%s error: %s", m.Kind, m.Message)
}

// ErrorMsgBuilder is a factory for ErrorMsg.
type ErrorMsgBuilder struct {
	respondTo string
	kind      ErrorKind
	message   string
	file      string
	line, col int
}

// WithRespondTo sets the ID of the failed request.
func (b ErrorMsgBuilder) WithRespondTo(id string) ErrorMsgBuilder {
	b.respondTo = id
	return b
}

// WithKind sets the error kind.
func (b ErrorMsgBuilder) WithKind(kind ErrorKind) ErrorMsgBuilder {
	b.kind = kind
	return b
}

// WithMessage sets the human readable message.
func (b ErrorMsgBuilder) WithMessage(message string) ErrorMsgBuilder {
	b.message = message
	return b
}

// WithPosition sets the source location of a compile error.
func (b ErrorMsgBuilder) WithPosition(file string, line, col int) ErrorMsgBuilder {
	b.file = file
	b.line = line
	b.col = col
	return b
}

// Build creates an ErrorMsg.
func (b ErrorMsgBuilder) Build() *ErrorMsg {
	return &ErrorMsg{
		MsgMeta:   newMeta(),
		RespondTo: b.respondTo,
		Kind:      b.kind,
		Message:   b.message,
		File:      b.file,
		Line:      b.line,
		Column:    b.col,
	}
}
