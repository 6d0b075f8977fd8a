package integrators

import (
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0

	dpNodes    = [6]float64{0, a2, a3, a4, a5, 1}
	dpRows     = [6][]float64{nil, {b21}, {b31, b32}, {b41, b42, b43}, {b51, b52, b53, b54}, {b61, b62, b63, b64, b65}}
	dpSolution = []float64{c1, 0, c3, c4, c5, c6}
	dpError    = []float64{dc1, 0, dc3, dc4, dc5, dc6, dc7}
)

// RK45 is adaptive Dormand-Prince 5(4) with first-same-as-last reuse. One
// Step call integrates across the whole requested dt, taking as many
// internal steps as the error control asks for. Each call starts from the
// largest allowed step, so results never depend on earlier calls.
type RK45 struct {
	opts  Options
	stats dynamo.StepStats
}

func NewRK45(opts Options) *RK45 {
	return &RK45{opts: opts.withDefaults()}
}

func (r *RK45) Name() string { return "rk45" }

func (r *RK45) Stats() dynamo.StepStats { return r.stats }

func (r *RK45) ResetStats() { r.stats = dynamo.StepStats{} }

// limits resolves the step bounds for a call of length dt.
func (r *RK45) limits(dt float64) (minDt, maxDt float64) {
	minDt, maxDt = r.opts.MinDt, r.opts.MaxDt
	if maxDt <= 0 || maxDt > dt {
		maxDt = dt
	}
	if minDt <= 0 {
		minDt = dt * 1e-6
	}
	if minDt > maxDt {
		minDt = maxDt
	}
	return minDt, maxDt
}

func (r *RK45) Step(b *dynamo.Body, dt, t float64, accel dynamo.AccelFunc) {
	if dt <= 0 {
		return
	}
	minDt, maxDt := r.limits(dt)

	x, v, a := b.Position, b.Velocity, b.Acceleration
	done := 0.0
	h := maxDt
	diverged := false

	for dt-done > dt*1e-12 {
		if h > dt-done {
			h = dt - done
		}

		xNew, vNew, aNew, errNorm := r.attempt(b, x, v, a, t+done, h, accel)

		// A non-finite estimate can never pass the tolerance; treat it as
		// the worst error so the step shrinks to minDt and is forced.
		finite := !math.IsNaN(errNorm) && !math.IsInf(errNorm, 0)
		if !finite {
			errNorm = math.Inf(1)
		}

		tol := r.opts.Tolerance
		if errNorm <= tol || !(h > minDt) || diverged {
			if errNorm <= tol {
				r.stats.Accepted++
			} else {
				r.stats.Forced++
			}
			x, v, a = xNew, vNew, aNew
			done += h
			if !finite {
				diverged = true
			}
		} else {
			r.stats.Rejected++
		}

		// Once the state has left the representable range there is nothing
		// left to refine; finish the interval in one forced step.
		if diverged {
			h = dt - done
			continue
		}

		scale := r.opts.MaxScale
		if errNorm > 0 {
			scale = r.opts.Safety * math.Pow(tol/errNorm, 0.2)
			scale = math.Max(r.opts.MinScale, math.Min(r.opts.MaxScale, scale))
		}
		h = math.Max(minDt, math.Min(maxDt, h*scale))
	}

	b.Position, b.Velocity, b.Acceleration = x, v, a
}

// attempt takes one trial step of size h from (x, v) with acceleration a
// and returns the fifth-order solution, the acceleration there and the
// scaled error estimate.
func (r *RK45) attempt(b *dynamo.Body, x, v, a dynamo.Vec3, t, h float64, accel dynamo.AccelFunc) (dynamo.Vec3, dynamo.Vec3, dynamo.Vec3, float64) {
	var kx, kv [7]dynamo.Vec3
	kx[0], kv[0] = v, a

	for s := 1; s < 6; s++ {
		xs := x.Add(weighted(h, dpRows[s], kx[:s]))
		vs := v.Add(weighted(h, dpRows[s], kv[:s]))
		kx[s] = vs
		kv[s] = accel(b, xs, vs, t+dpNodes[s]*h)
	}

	xNew := x.Add(weighted(h, dpSolution, kx[:6]))
	vNew := v.Add(weighted(h, dpSolution, kv[:6]))
	kx[6] = vNew
	kv[6] = accel(b, xNew, vNew, t+h)

	ex := weighted(h, dpError, kx[:])
	ev := weighted(h, dpError, kv[:])

	errNorm := math.Max(
		componentError(ex, x, kx[0].Scale(h)),
		componentError(ev, v, kv[0].Scale(h)),
	)
	return xNew, vNew, kv[6], errNorm
}

// weighted returns h·Σ wᵢ·kᵢ.
func weighted(h float64, w []float64, k []dynamo.Vec3) dynamo.Vec3 {
	var sum dynamo.Vec3
	for i, c := range w {
		if c != 0 {
			sum.AddScaledInPlace(k[i], c)
		}
	}
	return sum.Scale(h)
}

func componentError(e, y, hk dynamo.Vec3) float64 {
	scaled := func(e, y, hk float64) float64 {
		return math.Abs(e) / (math.Abs(y) + math.Abs(hk) + 1e-30)
	}
	return math.Max(scaled(e.X, y.X, hk.X), math.Max(scaled(e.Y, y.Y, hk.Y), scaled(e.Z, y.Z, hk.Z)))
}
