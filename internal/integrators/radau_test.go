package integrators

import (
	"math"
	"testing"
)

func TestRadau_NodesAreOrdered(t *testing.T) {
	if radauNodes[0] != 0 || radauNodes[len(radauNodes)-1] != 1 {
		t.Fatalf("nodes must span [0, 1]: %v", radauNodes)
	}
	for i := 1; i < len(radauNodes); i++ {
		if radauNodes[i] <= radauNodes[i-1] {
			t.Errorf("node %d not increasing: %v", i, radauNodes)
		}
	}
}

func TestRadau_Accuracy(t *testing.T) {
	integ := NewRadau()
	b := newOscillatorBody()

	dt := 0.1
	steps := 10
	run(integ, b, oscillator, dt, steps)

	if math.Abs(b.Position.X-math.Cos(1)) > 1e-3 {
		t.Errorf("position error too large: got %f, expected %f", b.Position.X, math.Cos(1))
	}
	if math.Abs(b.Velocity.X+math.Sin(1)) > 1e-3 {
		t.Errorf("velocity error too large: got %f, expected %f", b.Velocity.X, -math.Sin(1))
	}
}

func TestRadau_KeplerOrbit(t *testing.T) {
	integ := NewRadau()
	b := newCircularOrbit()
	e0 := keplerEnergy(b)

	steps := 200
	run(integ, b, kepler, 2*math.Pi/float64(steps), steps)

	if drift := relErr(keplerEnergy(b), e0); drift > 1e-3 {
		t.Errorf("radau energy drift: %e", drift)
	}
}
