package integrators

import "github.com/san-kum/gravsim/internal/dynamo"

// Gauss-Radau spacings on [0, 1].
var radauNodes = [9]float64{
	0,
	0.0562625605369221,
	0.1802406917368924,
	0.3526247171131696,
	0.5471536263305554,
	0.7342101772154105,
	0.8853209468390958,
	0.9775206135612875,
	1,
}

// Radau walks the step across the Gauss-Radau node spacings with an
// explicit Euler predictor and a trapezoidal corrector on each interval.
// It borrows the node layout of IAS15 but none of its predictor-corrector
// series, so it is second order.
type Radau struct{}

func NewRadau() *Radau {
	return &Radau{}
}

func (r *Radau) Name() string { return "radau" }

func (r *Radau) Step(b *dynamo.Body, dt, t float64, accel dynamo.AccelFunc) {
	x, v, a := b.Position, b.Velocity, b.Acceleration

	for i := 1; i < len(radauNodes); i++ {
		h := (radauNodes[i] - radauNodes[i-1]) * dt
		ts := t + radauNodes[i]*dt

		xp := x.Add(v.Scale(h))
		vp := v.Add(a.Scale(h))
		ap := accel(b, xp, vp, ts)

		vNew := v.Add(a.Add(ap).Scale(0.5 * h))
		xNew := x.Add(v.Add(vNew).Scale(0.5 * h))
		x, v = xNew, vNew
		a = accel(b, x, v, ts)
	}

	b.Position, b.Velocity, b.Acceleration = x, v, a
}
