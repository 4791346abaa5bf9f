package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/dummy"
)

// Platform is a dummy host running on its own engine.
type Platform struct {
	Engine sim.Engine
	Host   *dummy.Host
	Logger *slog.Logger
}

// PlatformBuilder can build platforms from a configuration.
type PlatformBuilder struct {
	config    Config
	hasConfig bool
	logOut    io.Writer
	engine    sim.Engine
}

// WithConfig sets the configuration.
func (b PlatformBuilder) WithConfig(c Config) PlatformBuilder {
	b.config = c
	b.hasConfig = true
	return b
}

// WithLogOutput sets where log records are written. Nothing is logged if
// it is not set.
func (b PlatformBuilder) WithLogOutput(w io.Writer) PlatformBuilder {
	b.logOut = w
	return b
}

// WithEngine sets the engine the host runs on. A serial engine is created
// otherwise.
func (b PlatformBuilder) WithEngine(engine sim.Engine) PlatformBuilder {
	b.engine = engine
	return b
}

// Build creates a platform.
func (b PlatformBuilder) Build(name string) (*Platform, error) {
	c := b.config
	if !b.hasConfig {
		c = Default()
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	logger, err := b.logger(c)
	if err != nil {
		return nil, err
	}

	host := dummy.Builder{}.
		WithEngine(engine).
		WithFreq(sim.Freq(c.Host.FreqMHz) * sim.MHz).
		WithOutcomes(outcomes(c.Host)).
		WithLogger(logger).
		Build(name + ".Host")

	return &Platform{Engine: engine, Host: host, Logger: logger}, nil
}

func (b PlatformBuilder) logger(c Config) (*slog.Logger, error) {
	level, err := c.Log.SlogLevel()
	if err != nil {
		return nil, err
	}

	w := b.logOut
	if w == nil {
		w = io.Discard
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func outcomes(h HostConfig) dummy.Outcomes {
	switch strings.ToLower(h.Outcomes) {
	case OutcomesRandom:
		return dummy.NewRandomOutcomes(h.Seed, h.P1)
	case OutcomesFixed:
		return dummy.FixedOutcomes(h.FixedOutcomes())
	default:
		return dummy.ZeroOutcomes{}
	}
}

// SessionBuilder returns a session builder that runs on the platform host
// with the configured compiler limits.
func (p *Platform) SessionBuilder(c Config) api.SessionBuilder {
	return api.SessionBuilder{}.
		WithHost(p.Host).
		WithLogger(p.Logger).
		WithCompileOptions(c.CompileOptions()...)
}
