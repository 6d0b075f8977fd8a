package integrators

import (
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// oscillator is a unit harmonic oscillator along x: a = -x.
func oscillator(_ *dynamo.Body, pos, _ dynamo.Vec3, _ float64) dynamo.Vec3 {
	return pos.Scale(-1)
}

func newOscillatorBody() *dynamo.Body {
	b := &dynamo.Body{ID: 1, Mass: 1, Active: true, Position: dynamo.Vec3{X: 1}}
	b.Acceleration = oscillator(b, b.Position, b.Velocity, 0)
	return b
}

func oscillatorEnergy(b *dynamo.Body) float64 {
	return 0.5 * (b.Position.LenSq() + b.Velocity.LenSq())
}

// kepler is a unit-mu point mass at the origin.
func kepler(_ *dynamo.Body, pos, _ dynamo.Vec3, _ float64) dynamo.Vec3 {
	r := pos.Len()
	return pos.Scale(-1 / (r * r * r))
}

func newCircularOrbit() *dynamo.Body {
	b := &dynamo.Body{ID: 1, Mass: 1, Active: true, Position: dynamo.Vec3{X: 1}, Velocity: dynamo.Vec3{Y: 1}}
	b.Acceleration = kepler(b, b.Position, b.Velocity, 0)
	return b
}

func keplerEnergy(b *dynamo.Body) float64 {
	return 0.5*b.Velocity.LenSq() - 1/b.Position.Len()
}

func run(integ dynamo.Integrator, b *dynamo.Body, accel dynamo.AccelFunc, dt float64, steps int) {
	for i := 0; i < steps; i++ {
		integ.Step(b, dt, float64(i)*dt, accel)
	}
}

func relErr(got, want float64) float64 {
	return math.Abs(got-want) / math.Abs(want)
}
