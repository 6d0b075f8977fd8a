package integrators

import "github.com/san-kum/gravsim/internal/dynamo"

// Every scheme here assumes b.Acceleration holds the acceleration at the
// body's current state when Step is called, and leaves it holding the
// acceleration at the new state.

// Verlet is kick-drift-kick velocity Verlet: one force evaluation per step,
// symplectic, second order.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Name() string { return "verlet" }

func (v *Verlet) Step(b *dynamo.Body, dt, t float64, accel dynamo.AccelFunc) {
	halfDt := 0.5 * dt

	b.Velocity.AddScaledInPlace(b.Acceleration, halfDt)
	b.Position.AddScaledInPlace(b.Velocity, dt)

	a := accel(b, b.Position, b.Velocity, t+dt)
	b.Velocity.AddScaledInPlace(a, halfDt)
	b.Acceleration = a
}

// Leapfrog is the drift-kick-drift ordering. The force is sampled at the
// midpoint, so the cached acceleration is refreshed with one extra
// evaluation at the end of the step.
type Leapfrog struct{}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Name() string { return "leapfrog" }

func (l *Leapfrog) Step(b *dynamo.Body, dt, t float64, accel dynamo.AccelFunc) {
	halfDt := 0.5 * dt

	b.Position.AddScaledInPlace(b.Velocity, halfDt)
	a := accel(b, b.Position, b.Velocity, t+halfDt)
	b.Velocity.AddScaledInPlace(a, dt)
	b.Position.AddScaledInPlace(b.Velocity, halfDt)

	b.Acceleration = accel(b, b.Position, b.Velocity, t+dt)
}

// Euler is semi-implicit (symplectic) Euler: kick with the cached
// acceleration, then drift with the updated velocity. First order.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(b *dynamo.Body, dt, t float64, accel dynamo.AccelFunc) {
	b.Velocity.AddScaledInPlace(b.Acceleration, dt)
	b.Position.AddScaledInPlace(b.Velocity, dt)
	b.Acceleration = accel(b, b.Position, b.Velocity, t+dt)
}
