package integrators

import "github.com/san-kum/gravsim/internal/dynamo"

// RK4 is the classical four-stage Runge-Kutta scheme on the combined
// (position, velocity) state. Stage one reuses the cached acceleration.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) Step(b *dynamo.Body, dt, t float64, accel dynamo.AccelFunc) {
	x0, v0 := b.Position, b.Velocity
	halfDt := 0.5 * dt

	k1x, k1v := v0, b.Acceleration

	x2 := x0.Add(k1x.Scale(halfDt))
	k2x := v0.Add(k1v.Scale(halfDt))
	k2v := accel(b, x2, k2x, t+halfDt)

	x3 := x0.Add(k2x.Scale(halfDt))
	k3x := v0.Add(k2v.Scale(halfDt))
	k3v := accel(b, x3, k3x, t+halfDt)

	x4 := x0.Add(k3x.Scale(dt))
	k4x := v0.Add(k3v.Scale(dt))
	k4v := accel(b, x4, k4x, t+dt)

	dt6 := dt / 6.0
	b.Position = x0.Add(k1x.Add(k2x.Scale(2)).Add(k3x.Scale(2)).Add(k4x).Scale(dt6))
	b.Velocity = v0.Add(k1v.Add(k2v.Scale(2)).Add(k3v.Scale(2)).Add(k4v).Scale(dt6))
	b.Acceleration = accel(b, b.Position, b.Velocity, t+dt)
}
