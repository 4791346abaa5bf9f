// Package dummy provides reference hosts for running programs without a
// real simulator.
package dummy

import (
	"context"

	"github.com/sarchlab/cqasmfe/quantum"
)

// NullHost accepts every gate and measures every qubit as zero.
type NullHost struct{}

// ApplyGate does nothing.
func (NullHost) ApplyGate(context.Context, string, []int, []float64) error {
	return nil
}

// Measure always returns Zero.
func (NullHost) Measure(_ context.Context, qubit int, _ quantum.Basis) (quantum.Measurement, error) {
	return quantum.NewMeasurement(qubit, quantum.Zero), nil
}
