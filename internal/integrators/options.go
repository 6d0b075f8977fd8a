package integrators

import (
	"sort"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// Options tunes the adaptive integrators. Zero fields take defaults; the
// fixed-step schemes ignore them.
type Options struct {
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
	Safety    float64 `yaml:"safety" json:"safety"`
	MinScale  float64 `yaml:"min_scale" json:"min_scale"`
	MaxScale  float64 `yaml:"max_scale" json:"max_scale"`
	MinDt     float64 `yaml:"min_dt" json:"min_dt"`
	MaxDt     float64 `yaml:"max_dt" json:"max_dt"`
}

func DefaultOptions() Options {
	return Options{
		Tolerance: 1e-9,
		Safety:    0.9,
		MinScale:  0.2,
		MaxScale:  5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.Safety <= 0 {
		o.Safety = d.Safety
	}
	if o.MinScale <= 0 {
		o.MinScale = d.MinScale
	}
	if o.MaxScale <= 0 {
		o.MaxScale = d.MaxScale
	}
	return o
}

var registry = map[string]func(Options) dynamo.Integrator{
	"euler":    func(Options) dynamo.Integrator { return NewEuler() },
	"leapfrog": func(Options) dynamo.Integrator { return NewLeapfrog() },
	"radau":    func(Options) dynamo.Integrator { return NewRadau() },
	"rk4":      func(Options) dynamo.Integrator { return NewRK4() },
	"rk45":     func(o Options) dynamo.Integrator { return NewRK45(o) },
	"verlet":   func(Options) dynamo.Integrator { return NewVerlet() },
}

// New builds the named integrator.
func New(name string, opts Options) (dynamo.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, &dynamo.UnknownIntegratorError{Name: name}
	}
	return fn(opts), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
