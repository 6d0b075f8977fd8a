package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/gravity"
	"github.com/san-kum/gravsim/internal/integrators"
)

// Config is the per-step simulation configuration. Step takes a copy at the
// start of every step, so changes submitted through UpdateConfig apply on
// the next step boundary only.
type Config struct {
	TickRate      float64        `yaml:"tick_rate" json:"tick_rate"`
	TimeScale     float64        `yaml:"time_scale" json:"time_scale"`
	Softening     float64        `yaml:"softening" json:"softening"`
	MaxSubsteps   int            `yaml:"max_substeps" json:"max_substeps"`
	CollisionMode collision.Mode `yaml:"collision_mode" json:"collision_mode"`
	G             float64        `yaml:"g" json:"g"`

	Integrator string  `yaml:"integrator" json:"integrator"`
	Tolerance  float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	MinDt      float64 `yaml:"min_dt,omitempty" json:"min_dt,omitempty"`
	MaxDt      float64 `yaml:"max_dt,omitempty" json:"max_dt,omitempty"`

	Evaluator      string  `yaml:"evaluator" json:"evaluator"`
	Theta          float64 `yaml:"theta" json:"theta"`
	MaxDepth       int     `yaml:"max_depth" json:"max_depth"`
	FrozenSources  bool    `yaml:"frozen_sources,omitempty" json:"frozen_sources,omitempty"`
	FieldCacheSize int     `yaml:"field_cache_size,omitempty" json:"field_cache_size,omitempty"`
	Workers        int     `yaml:"workers,omitempty" json:"workers,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		TickRate:      60,
		TimeScale:     1,
		MaxSubsteps:   1,
		CollisionMode: collision.ModeNone,
		G:             dynamo.G,
		Integrator:    "verlet",
		Evaluator:     "direct",
		Theta:         gravity.DefaultTheta,
		MaxDepth:      gravity.DefaultMaxDepth,
		Workers:       1,
	}
}

// Dt is the simulated time advanced by one step.
func (c Config) Dt() float64 {
	return c.TimeScale / c.TickRate
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func (c Config) Validate() error {
	switch {
	case !positiveFinite(c.TickRate):
		return &dynamo.InvalidConfigError{Field: "tick_rate", Reason: fmt.Sprintf("must be positive, got %g", c.TickRate)}
	case !positiveFinite(c.TimeScale):
		return &dynamo.InvalidConfigError{Field: "time_scale", Reason: fmt.Sprintf("must be positive, got %g", c.TimeScale)}
	case math.IsNaN(c.Softening) || math.IsInf(c.Softening, 0) || c.Softening < 0:
		return &dynamo.InvalidConfigError{Field: "softening", Reason: fmt.Sprintf("must be finite and non-negative, got %g", c.Softening)}
	case c.MaxSubsteps < 1:
		return &dynamo.InvalidConfigError{Field: "max_substeps", Reason: fmt.Sprintf("must be at least 1, got %d", c.MaxSubsteps)}
	case !positiveFinite(c.G):
		return &dynamo.InvalidConfigError{Field: "g", Reason: fmt.Sprintf("must be positive, got %g", c.G)}
	case math.IsNaN(c.Theta) || c.Theta < 0:
		return &dynamo.InvalidConfigError{Field: "theta", Reason: fmt.Sprintf("must be non-negative, got %g", c.Theta)}
	case c.MaxDepth < 0:
		return &dynamo.InvalidConfigError{Field: "max_depth", Reason: fmt.Sprintf("must be non-negative, got %d", c.MaxDepth)}
	case c.Tolerance < 0 || c.MinDt < 0 || c.MaxDt < 0:
		return &dynamo.InvalidConfigError{Field: "tolerance", Reason: "adaptive bounds must be non-negative"}
	case c.Workers < 0:
		return &dynamo.InvalidConfigError{Field: "workers", Reason: fmt.Sprintf("must be non-negative, got %d", c.Workers)}
	}

	if _, err := collision.ParseMode(string(c.CollisionMode)); err != nil {
		return err
	}
	if _, err := integrators.New(c.Integrator, c.integratorOptions()); err != nil {
		return err
	}
	if _, err := gravity.New(c.Evaluator, c.gravityOptions()); err != nil {
		return err
	}
	return nil
}

func (c Config) integratorOptions() integrators.Options {
	return integrators.Options{
		Tolerance: c.Tolerance,
		MinDt:     c.MinDt,
		MaxDt:     c.MaxDt,
	}
}

func (c Config) gravityOptions() gravity.Options {
	return gravity.Options{
		G:         c.G,
		Softening: c.Softening,
		Theta:     c.Theta,
		MaxDepth:  c.MaxDepth,
	}
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}
