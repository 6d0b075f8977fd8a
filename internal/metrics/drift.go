package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// DriftTracker records total energy once per step. A symplectic integrator
// keeps the series oscillating around its initial value; a secular trend
// shows up as a gap between the means of the two halves of the run.
type DriftTracker struct {
	name      string
	g         float64
	softening float64
	times     []float64
	energies  []float64
	maxDrift  float64
}

func NewDriftTracker(g, softening float64) *DriftTracker {
	return &DriftTracker{
		name:      "energy_drift",
		g:         g,
		softening: softening,
	}
}

func (d *DriftTracker) Name() string { return d.name }

func (d *DriftTracker) Observe(bodies []*dynamo.Body, t float64) {
	d.Record(t, Compute(bodies, d.g, d.softening).Total)
}

// Record appends one sample.
func (d *DriftTracker) Record(t, energy float64) {
	d.times = append(d.times, t)
	d.energies = append(d.energies, energy)
	if e0 := d.energies[0]; e0 != 0 {
		d.maxDrift = math.Max(d.maxDrift, math.Abs(energy-e0)/math.Abs(e0))
	}
}

// Value is the largest relative deviation from the first sample.
func (d *DriftTracker) Value() float64 { return d.maxDrift }

func (d *DriftTracker) MaxRelativeDrift() float64 { return d.maxDrift }

func (d *DriftTracker) Reset() {
	d.times = d.times[:0]
	d.energies = d.energies[:0]
	d.maxDrift = 0
}

func (d *DriftTracker) Len() int { return len(d.energies) }

// HalfMeans returns the mean energy of the first and second half of the
// samples.
func (d *DriftTracker) HalfMeans() (first, second float64) {
	n := len(d.energies)
	if n < 2 {
		return 0, 0
	}
	return stat.Mean(d.energies[:n/2], nil), stat.Mean(d.energies[n/2:], nil)
}

// SecularDrift is |mean(second half) - mean(first half)| / |E0|.
func (d *DriftTracker) SecularDrift() float64 {
	first, second := d.HalfMeans()
	if len(d.energies) < 2 || d.energies[0] == 0 {
		return 0
	}
	return math.Abs(second-first) / math.Abs(d.energies[0])
}

// Oscillation is the standard deviation of the series relative to |E0|.
func (d *DriftTracker) Oscillation() float64 {
	if len(d.energies) < 2 || d.energies[0] == 0 {
		return 0
	}
	return stat.StdDev(d.energies, nil) / math.Abs(d.energies[0])
}

// Series returns the recorded samples. The slices are shared.
func (d *DriftTracker) Series() (times, energies []float64) {
	return d.times, d.energies
}

// RelativeSeries returns (E - E0)/|E0| per sample, for plotting.
func (d *DriftTracker) RelativeSeries() []float64 {
	out := make([]float64, len(d.energies))
	if len(d.energies) == 0 || d.energies[0] == 0 {
		return out
	}
	e0 := d.energies[0]
	for i, e := range d.energies {
		out[i] = (e - e0) / math.Abs(e0)
	}
	return out
}
