package experiment

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/gravity"
	"github.com/san-kum/gravsim/internal/integrators"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
)

// MetricFactory builds a fresh metric for one run of a scenario.
type MetricFactory func(cfg sim.Config, bodies []dynamo.BodySpec) sim.Metric

type Registry struct {
	metrics map[string]MetricFactory
}

func NewRegistry() *Registry {
	r := &Registry{metrics: make(map[string]MetricFactory)}

	r.metrics["energy_drift"] = func(cfg sim.Config, _ []dynamo.BodySpec) sim.Metric {
		return metrics.NewDriftTracker(cfg.G, cfg.Softening)
	}
	r.metrics["momentum_drift"] = func(sim.Config, []dynamo.BodySpec) sim.Metric {
		return metrics.NewMomentumDrift()
	}
	r.metrics["stability"] = func(_ sim.Config, bodies []dynamo.BodySpec) sim.Metric {
		return metrics.NewStability(escapeRadius(bodies))
	}

	return r
}

// escapeRadius is ten times the initial extent of the system about its
// centre of mass.
func escapeRadius(bodies []dynamo.BodySpec) float64 {
	var com dynamo.Vec3
	var mass float64
	for _, b := range bodies {
		com.AddScaledInPlace(b.Position, b.Mass)
		mass += b.Mass
	}
	if mass > 0 {
		com = com.Scale(1 / mass)
	}
	extent := 0.0
	for _, b := range bodies {
		extent = math.Max(extent, b.Position.Dist(com))
	}
	if extent == 0 {
		return 1
	}
	return 10 * extent
}

func (r *Registry) GetMetric(name string, cfg sim.Config, bodies []dynamo.BodySpec) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(cfg, bodies), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultMetrics returns one fresh instance of every registered metric.
func (r *Registry) DefaultMetrics(cfg sim.Config, bodies []dynamo.BodySpec) []sim.Metric {
	out := make([]sim.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name](cfg, bodies))
	}
	return out
}

func (r *Registry) ListIntegrators() []string { return integrators.Names() }

func (r *Registry) ListEvaluators() []string { return gravity.Names() }

func (r *Registry) ListPresets() []string { return config.ListPresets() }
