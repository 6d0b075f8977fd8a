package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/gravsim/internal/dynamo"
)

func pair() []*dynamo.Body {
	return []*dynamo.Body{
		{ID: 1, Mass: 1, Active: true, Velocity: dynamo.Vec3{Y: 1}},
		{ID: 2, Mass: 2, Active: true, Position: dynamo.Vec3{X: 2}},
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		softening float64
		potential float64
	}{
		{"unsoftened", 0, -1},
		{"softened", 1.5, -0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Compute(pair(), 1, tt.softening)
			if math.Abs(e.Kinetic-0.5) > 1e-12 {
				t.Errorf("kinetic = %f, want 0.5", e.Kinetic)
			}
			if math.Abs(e.Potential-tt.potential) > 1e-12 {
				t.Errorf("potential = %f, want %f", e.Potential, tt.potential)
			}
			if math.Abs(e.Total-(0.5+tt.potential)) > 1e-12 {
				t.Errorf("total = %f", e.Total)
			}
		})
	}
}

func TestCompute_SkipsInactive(t *testing.T) {
	bodies := pair()
	bodies[1].Active = false

	e := Compute(bodies, 1, 0)
	if e.Potential != 0 {
		t.Errorf("inactive body contributed potential %f", e.Potential)
	}
	if TotalMass(bodies) != 1 {
		t.Errorf("total mass = %f, want 1", TotalMass(bodies))
	}
}

func TestCompute_Empty(t *testing.T) {
	if e := Compute(nil, 1, 0); e != (Energy{}) {
		t.Errorf("expected zero energy, got %+v", e)
	}
}

func TestMomentumAndAngularMomentum(t *testing.T) {
	bodies := []*dynamo.Body{
		{Mass: 2, Active: true, Position: dynamo.Vec3{X: 1}, Velocity: dynamo.Vec3{Y: 3}},
		{Mass: 1, Active: true, Position: dynamo.Vec3{X: -1}, Velocity: dynamo.Vec3{Y: -6}},
	}

	if p := Momentum(bodies); !p.IsZero() {
		t.Errorf("momentum = %v, want zero", p)
	}
	if l := AngularMomentum(bodies); math.Abs(l.Z-12) > 1e-12 {
		t.Errorf("angular momentum = %v, want z = 12", l)
	}
	if c := CenterOfMass(bodies); math.Abs(c.X-1.0/3.0) > 1e-12 {
		t.Errorf("center of mass = %v", c)
	}
}

func TestMomentumDrift(t *testing.T) {
	m := NewMomentumDrift()
	bodies := pair()

	m.Observe(bodies, 0)
	if m.Value() != 0 {
		t.Errorf("expected zero drift on first sample, got %f", m.Value())
	}

	bodies[0].Velocity.Y = 1.5
	m.Observe(bodies, 1)
	if math.Abs(m.Value()-0.5) > 1e-12 {
		t.Errorf("drift = %f, want 0.5", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestStability(t *testing.T) {
	s := NewStability(10)
	bodies := pair()

	s.Observe(bodies, 0)
	bodies[1].Position.X = 100
	s.Observe(bodies, 1)

	if math.Abs(s.Value()-0.5) > 1e-12 {
		t.Errorf("stability = %f, want 0.5", s.Value())
	}

	s.Reset()
	if s.Value() != 1 {
		t.Errorf("expected full stability after reset, got %f", s.Value())
	}
}
