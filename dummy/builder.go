package dummy

import (
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
)

// Builder creates akita backed hosts.
type Builder struct {
	engine   sim.Engine
	freq     sim.Freq
	outcomes Outcomes
	logger   *slog.Logger
}

// WithEngine sets the engine events are scheduled on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the host clock.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithOutcomes sets how measurements are decided.
func (b Builder) WithOutcomes(outcomes Outcomes) Builder {
	b.outcomes = outcomes
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a host with the given name. A serial engine running at
// 1 GHz with all-zero outcomes is used unless configured otherwise.
func (b Builder) Build(name string) *Host {
	h := &Host{
		name:     name,
		engine:   b.engine,
		freq:     b.freq,
		outcomes: b.outcomes,
		logger:   b.logger,
	}

	if h.engine == nil {
		h.engine = sim.NewSerialEngine()
	}

	if h.freq == 0 {
		h.freq = 1 * sim.GHz
	}

	if h.outcomes == nil {
		h.outcomes = ZeroOutcomes{}
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}

	return h
}
