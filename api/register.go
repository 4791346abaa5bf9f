package api

import (
	"encoding/json"
	"fmt"

	"github.com/sarchlab/cqasmfe/quantum"
)

// qubitRecord averages the measurements of one qubit over time.
type qubitRecord struct {
	latest  quantum.Measurement
	value   bool
	samples int
	ones    int
}

// Register keeps the measurement results of every qubit of a session.
type Register struct {
	records []qubitRecord
}

// NewRegister creates a register for n qubits.
func NewRegister(n int) *Register {
	return &Register{records: make([]qubitRecord, n)}
}

// Size returns the number of qubits.
func (r *Register) Size() int {
	return len(r.records)
}

// Record adds a sample. Undefined values count as zero; the return value
// reports whether that happened.
func (r *Register) Record(m quantum.Measurement) (undefined bool) {
	rec := &r.records[m.Qubit]
	rec.latest = m
	rec.value = m.Value.Bit()
	rec.samples++
	if rec.value {
		rec.ones++
	}
	return m.Value == quantum.Undefined
}

// Latest returns the last measurement of a qubit.
func (r *Register) Latest(qubit int) (quantum.Measurement, bool) {
	rec := r.records[qubit]
	return rec.latest, rec.samples > 0
}

// Value returns the last measured bit of a qubit, or false if it was never
// measured.
func (r *Register) Value(qubit int) bool {
	return r.records[qubit].value
}

// Samples returns how often a qubit was measured.
func (r *Register) Samples(qubit int) int {
	return r.records[qubit].samples
}

// P1 returns the fraction of samples that were one, or -1 without samples.
func (r *Register) P1(qubit int) float64 {
	rec := r.records[qubit]
	if rec.samples == 0 {
		return -1
	}
	return float64(rec.ones) / float64(rec.samples)
}

// Reset clears the averaging of every qubit.
func (r *Register) Reset() {
	for i := range r.records {
		r.records[i] = qubitRecord{}
	}
}

// Display renders the bit and the averaged result of the given qubits, or
// of every qubit if none are given.
func (r *Register) Display(qubits []int) []string {
	if len(qubits) == 0 {
		qubits = make([]int, len(r.records))
		for i := range qubits {
			qubits[i] = i
		}
	}

	lines := make([]string, 0, len(qubits))
	for _, q := range qubits {
		rec := r.records[q]
		if rec.samples == 0 {
			lines = append(lines, fmt.Sprintf("b%d: %d; q%d: no data", q, bit(rec.value), q))
			continue
		}
		lines = append(lines, fmt.Sprintf("b%d: %d; q%d: %.6f (%d samples, latest = %d)",
			q, bit(rec.value), q, r.P1(q), rec.samples, bit(rec.latest.Value.Bit())))
	}
	return lines
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// QubitResult is the final state of one qubit.
type QubitResult struct {
	Qubit int `json:"qubit"`
	Value int `json:"value"`

	// Raw is 0 or 1, or null if the last sample was undefined or the qubit
	// was never measured.
	Raw     *int            `json:"raw"`
	Average *float64        `json:"average,omitempty"`
	Samples int             `json:"samples"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Results returns the state of every qubit in index order.
func (r *Register) Results() []QubitResult {
	out := make([]QubitResult, len(r.records))
	for i, rec := range r.records {
		res := QubitResult{Qubit: i, Samples: rec.samples}
		if rec.value {
			res.Value = 1
		}
		if rec.samples > 0 {
			p1 := r.P1(i)
			res.Average = &p1
			res.Data = rec.latest.Data
			if rec.latest.Value != quantum.Undefined {
				raw := res.Value
				res.Raw = &raw
			}
		}
		out[i] = res
	}
	return out
}

// RunResult is returned by a completed run.
type RunResult struct {
	SessionID  string        `json:"session"`
	Cycles     uint64        `json:"cycles"`
	Dispatched int           `json:"dispatched"`
	Qubits     []QubitResult `json:"qubits"`
}

// JSON renders the result.
func (r *RunResult) JSON() ([]byte, error) {
	return json.Marshal(r)
}
