package metrics

import (
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// Energy is the total mechanical energy of the active set. Potential uses
// the same softened kernel as the force evaluators so a softened run
// conserves this quantity.
type Energy struct {
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
	Total     float64 `json:"total"`
}

// Compute sums ½mv² and the pairwise -G·m1·m2/sqrt(r²+ε²) over active bodies
// directly, independent of the evaluator used for stepping.
func Compute(bodies []*dynamo.Body, g, softening float64) Energy {
	var e Energy
	eps2 := softening * softening

	for i, a := range bodies {
		if !a.Active {
			continue
		}
		e.Kinetic += a.KineticEnergy()
		for _, b := range bodies[i+1:] {
			if !b.Active {
				continue
			}
			r2 := a.Position.Sub(b.Position).LenSq()
			if r2+eps2 == 0 {
				continue
			}
			e.Potential -= g * a.Mass * b.Mass / math.Sqrt(r2+eps2)
		}
	}

	e.Total = e.Kinetic + e.Potential
	return e
}

func Momentum(bodies []*dynamo.Body) dynamo.Vec3 {
	var p dynamo.Vec3
	for _, b := range bodies {
		if b.Active {
			p.AddInPlace(b.Momentum())
		}
	}
	return p
}

// AngularMomentum is Σ r × p about the origin.
func AngularMomentum(bodies []*dynamo.Body) dynamo.Vec3 {
	var l dynamo.Vec3
	for _, b := range bodies {
		if b.Active {
			l.AddInPlace(b.Position.Cross(b.Momentum()))
		}
	}
	return l
}

func TotalMass(bodies []*dynamo.Body) float64 {
	var m float64
	for _, b := range bodies {
		if b.Active {
			m += b.Mass
		}
	}
	return m
}

func CenterOfMass(bodies []*dynamo.Body) dynamo.Vec3 {
	var c dynamo.Vec3
	m := 0.0
	for _, b := range bodies {
		if b.Active {
			c.AddScaledInPlace(b.Position, b.Mass)
			m += b.Mass
		}
	}
	if m == 0 {
		return dynamo.Vec3{}
	}
	return c.Scale(1 / m)
}

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(bodies []*dynamo.Body, t float64)
	Value() float64
	Reset()
}

// MomentumDrift tracks the largest change in total linear momentum,
// normalized by the initial Σ|mᵢvᵢ|.
type MomentumDrift struct {
	name     string
	initial  dynamo.Vec3
	scale    float64
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(bodies []*dynamo.Body, t float64) {
	p := Momentum(bodies)
	if m.samples == 0 {
		m.initial = p
		for _, b := range bodies {
			if b.Active {
				m.scale += b.Momentum().Len()
			}
		}
	}
	m.samples++

	if m.scale > 0 {
		m.maxDrift = math.Max(m.maxDrift, p.Dist(m.initial)/m.scale)
	}
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = dynamo.Vec3{}
	m.scale = 0
	m.maxDrift = 0
	m.samples = 0
}
