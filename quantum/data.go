package quantum

import (
	"encoding/json"
	"fmt"
)

// MeasurementValue is the raw outcome reported by a host.
type MeasurementValue int

const (
	Zero MeasurementValue = iota
	One
	Undefined
)

// String implements fmt.Stringer.
func (v MeasurementValue) String() string {
	switch v {
	case Zero:
		return "0"
	case One:
		return "1"
	case Undefined:
		return "undefined"
	default:
		return fmt.Sprintf("MeasurementValue(%d)", int(v))
	}
}

// Bit returns the classical bit for the value. Undefined reads as false.
func (v MeasurementValue) Bit() bool {
	return v == One
}

// Measurement is the result of measuring a single qubit.
type Measurement struct {
	Qubit int
	Value MeasurementValue

	// Data carries host specific information, if any.
	Data json.RawMessage
}

// NewMeasurement creates a Measurement without extra data.
func NewMeasurement(qubit int, value MeasurementValue) Measurement {
	return Measurement{Qubit: qubit, Value: value}
}

// FromBit creates a Measurement from a classical bit.
func FromBit(qubit int, bit bool) Measurement {
	if bit {
		return NewMeasurement(qubit, One)
	}
	return NewMeasurement(qubit, Zero)
}

// WithData returns a copy with the given host data attached.
func (m Measurement) WithData(data json.RawMessage) Measurement {
	m.Data = data
	return m
}
