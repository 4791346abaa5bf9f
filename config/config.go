// Package config loads the YAML configuration of the frontend and builds the
// platform a program runs on.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/cqasm"
	"github.com/sarchlab/cqasmfe/quantum"
)

// Outcome source names accepted in the host section.
const (
	OutcomesZero   = "zero"
	OutcomesRandom = "random"
	OutcomesFixed  = "fixed"
)

// Config is the whole configuration file.
type Config struct {
	Frontend FrontendConfig `yaml:"frontend"`
	Host     HostConfig     `yaml:"host"`
	Log      LogConfig      `yaml:"log"`
}

// FrontendConfig bounds what the compiler accepts.
type FrontendConfig struct {
	MaxQubits       int `yaml:"max_qubits"`
	MaxInstructions int `yaml:"max_instructions"`
}

// HostConfig configures the dummy host.
type HostConfig struct {
	FreqMHz  float64     `yaml:"freq_mhz"`
	Outcomes string      `yaml:"outcomes"`
	Seed     int64       `yaml:"seed"`
	P1       float64     `yaml:"p1"`
	Fixed    map[int]int `yaml:"fixed"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Frontend: FrontendConfig{
			MaxQubits:       cqasm.DefaultMaxQubits,
			MaxInstructions: cqasm.DefaultMaxInstructions,
		},
		Host: HostConfig{
			FreqMHz:  1000,
			Outcomes: OutcomesZero,
			P1:       0.5,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Parse reads a configuration from YAML. Fields that are not set keep their
// default values.
func Parse(data []byte) (Config, error) {
	c := Default()

	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Load reads a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	c, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrap(err, path)
	}

	return c, nil
}

// Validate checks the values of the configuration.
func (c Config) Validate() error {
	if c.Frontend.MaxQubits <= 0 {
		return errors.Errorf("frontend.max_qubits must be positive, got %d",
			c.Frontend.MaxQubits)
	}

	if c.Frontend.MaxInstructions <= 0 {
		return errors.Errorf("frontend.max_instructions must be positive, got %d",
			c.Frontend.MaxInstructions)
	}

	if c.Host.FreqMHz <= 0 {
		return errors.Errorf("host.freq_mhz must be positive, got %g", c.Host.FreqMHz)
	}

	switch strings.ToLower(c.Host.Outcomes) {
	case OutcomesZero, OutcomesFixed:
	case OutcomesRandom:
		if c.Host.P1 < 0 || c.Host.P1 > 1 {
			return errors.Errorf("host.p1 must be in [0, 1], got %g", c.Host.P1)
		}
	default:
		return errors.Errorf("host.outcomes must be one of %s, %s, %s; got %q",
			OutcomesZero, OutcomesRandom, OutcomesFixed, c.Host.Outcomes)
	}

	for q, v := range c.Host.Fixed {
		if q < 0 {
			return errors.Errorf("host.fixed: invalid qubit %d", q)
		}
		if v != 0 && v != 1 {
			return errors.Errorf("host.fixed: q[%d] must measure 0 or 1, got %d", q, v)
		}
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// CompileOptions returns the compiler options for the frontend section.
func (c Config) CompileOptions() []cqasm.Option {
	return []cqasm.Option{
		cqasm.WithMaxQubits(c.Frontend.MaxQubits),
		cqasm.WithMaxInstructions(c.Frontend.MaxInstructions),
	}
}

// FixedOutcomes converts the fixed section into measurement values.
func (h HostConfig) FixedOutcomes() map[int]quantum.MeasurementValue {
	out := make(map[int]quantum.MeasurementValue, len(h.Fixed))
	for q, v := range h.Fixed {
		out[q] = quantum.Zero
		if v == 1 {
			out[q] = quantum.One
		}
	}
	return out
}

// SlogLevel converts the configured level name. "trace" is the level of
// per-operation records.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "trace":
		return api.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.Errorf("log.level: unknown level %q", l.Level)
	}
}
