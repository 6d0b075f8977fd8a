package dynamo

// G is the Newtonian gravitational constant in m³ kg⁻¹ s⁻².
const G = 6.67430e-11

// AccelFunc returns the acceleration felt by b if it were at pos with
// velocity vel at time t. Integrators call it at intermediate stage states;
// it must not mutate b.
type AccelFunc func(b *Body, pos, vel Vec3, t float64) Vec3

// Integrator advances one body by dt in place. Implementations know nothing
// about the force law; everything they learn about the world comes through
// accel. After Step, b.Acceleration holds the last acceleration evaluated at
// the new state (or the closest cached value the scheme has).
type Integrator interface {
	Name() string
	Step(b *Body, dt, t float64, accel AccelFunc)
}

// StatsReporter is implemented by integrators that keep step statistics.
type StatsReporter interface {
	Stats() StepStats
	ResetStats()
}

// StepStats counts adaptive sub-step outcomes.
type StepStats struct {
	Accepted int
	Rejected int
	Forced   int
}
