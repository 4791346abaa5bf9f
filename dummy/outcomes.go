package dummy

import (
	"math/rand"
	"sync"

	"github.com/sarchlab/cqasmfe/quantum"
)

// Outcomes decides the result of a measurement.
type Outcomes interface {
	Outcome(qubit int, basis quantum.Basis) quantum.MeasurementValue
}

// ZeroOutcomes measures every qubit as zero.
type ZeroOutcomes struct{}

// Outcome implements Outcomes.
func (ZeroOutcomes) Outcome(int, quantum.Basis) quantum.MeasurementValue {
	return quantum.Zero
}

// FixedOutcomes returns a configured value per qubit. Qubits that are not
// listed measure as zero.
type FixedOutcomes map[int]quantum.MeasurementValue

// Outcome implements Outcomes.
func (o FixedOutcomes) Outcome(qubit int, _ quantum.Basis) quantum.MeasurementValue {
	if v, ok := o[qubit]; ok {
		return v
	}
	return quantum.Zero
}

// RandomOutcomes measures one with probability p1. It is reproducible for a
// given seed.
type RandomOutcomes struct {
	mu  sync.Mutex
	rng *rand.Rand
	p1  float64
}

// NewRandomOutcomes creates a seeded random outcome source.
func NewRandomOutcomes(seed int64, p1 float64) *RandomOutcomes {
	return &RandomOutcomes{
		rng: rand.New(rand.NewSource(seed)),
		p1:  p1,
	}
}

// Outcome implements Outcomes.
func (o *RandomOutcomes) Outcome(int, quantum.Basis) quantum.MeasurementValue {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rng.Float64() < o.p1 {
		return quantum.One
	}
	return quantum.Zero
}
