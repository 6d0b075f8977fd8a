package config

import (
	"math"
	"slices"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	SunMass   = 1.989e30
	SunRadius = 6.957e8
	AU        = 1.495978707e11
	Hour      = 3600.0
)

type planet struct {
	name   string
	mass   float64
	radius float64
	a      float64
	phase  float64
}

var innerPlanets = []planet{
	{"mercury", 3.301e23, 2.4397e6, 0.387 * AU, 0},
	{"venus", 4.867e24, 6.0518e6, 0.723 * AU, 1.9},
	{"earth", 5.972e24, 6.371e6, 1.0 * AU, 3.6},
	{"mars", 6.417e23, 3.3895e6, 1.524 * AU, 5.1},
}

// heliocentric puts each planet on a circular orbit around a Sun at the
// origin whose velocity cancels the planets' total momentum.
func heliocentric(planets []planet) []dynamo.BodySpec {
	specs := []dynamo.BodySpec{{ID: 1, Name: "sun", Mass: SunMass, Radius: SunRadius}}
	var p dynamo.Vec3
	for i, pl := range planets {
		v := math.Sqrt(dynamo.G * (SunMass + pl.mass) / pl.a)
		sin, cos := math.Sincos(pl.phase)
		spec := dynamo.BodySpec{
			ID:       dynamo.BodyID(i + 2),
			Name:     pl.name,
			Mass:     pl.mass,
			Radius:   pl.radius,
			Position: dynamo.Vec3{X: pl.a * cos, Y: pl.a * sin},
			Velocity: dynamo.Vec3{X: -v * sin, Y: v * cos},
		}
		p.AddScaledInPlace(spec.Velocity, spec.Mass)
		specs = append(specs, spec)
	}
	specs[0].Velocity = p.Scale(-1 / SunMass)
	return specs
}

func solarSim(hoursPerTick float64) sim.Config {
	c := sim.DefaultConfig()
	c.TickRate = 1
	c.TimeScale = hoursPerTick * Hour
	return c
}

func scaledSim() sim.Config {
	c := sim.DefaultConfig()
	c.G = 1
	return c
}

var Presets = map[string]func() *Config{
	"sun_earth": func() *Config {
		return &Config{
			Name:            "sun_earth",
			Description:     "Earth on a circular one-year orbit, one hour per tick",
			Simulation:      solarSim(1),
			Bodies:          heliocentric(innerPlanets[2:3]),
			Steps:           8766,
			CheckpointEvery: 720,
			RecordEvery:     24,
		}
	},
	"inner_planets": func() *Config {
		c := solarSim(6)
		c.Integrator = "rk4"
		return &Config{
			Name:            "inner_planets",
			Description:     "Sun with Mercury, Venus, Earth and Mars, six hours per tick",
			Simulation:      c,
			Bodies:          heliocentric(innerPlanets),
			Steps:           4 * 1461,
			CheckpointEvery: 1461,
			RecordEvery:     4,
		}
	},
	"binary": func() *Config {
		c := scaledSim()
		c.CollisionMode = collision.ModeMerge
		return &Config{
			Name:        "binary",
			Description: "equal-mass circular binary in units with G = 1",
			Simulation:  c,
			Bodies: []dynamo.BodySpec{
				{ID: 1, Name: "a", Mass: 1, Radius: 0.05, Position: dynamo.Vec3{X: -0.5}, Velocity: dynamo.Vec3{Y: -math.Sqrt2 / 2}},
				{ID: 2, Name: "b", Mass: 1, Radius: 0.05, Position: dynamo.Vec3{X: 0.5}, Velocity: dynamo.Vec3{Y: math.Sqrt2 / 2}},
			},
			Steps:       1200,
			RecordEvery: 2,
		}
	},
	"figure_eight": func() *Config {
		c := scaledSim()
		c.MaxSubsteps = 4
		v3 := dynamo.Vec3{X: -0.93240737, Y: -0.86473146}
		x1 := dynamo.Vec3{X: -0.97000436, Y: 0.24308753}
		return &Config{
			Name:        "figure_eight",
			Description: "three equal masses chasing each other along a figure eight",
			Simulation:  c,
			Bodies: []dynamo.BodySpec{
				{ID: 1, Name: "a", Mass: 1, Position: x1, Velocity: v3.Scale(-0.5)},
				{ID: 2, Name: "b", Mass: 1, Position: x1.Scale(-1), Velocity: v3.Scale(-0.5)},
				{ID: 3, Name: "c", Mass: 1, Velocity: v3},
			},
			Steps:       380,
			RecordEvery: 1,
		}
	},
	"cluster": func() *Config {
		c := scaledSim()
		c.Evaluator = "barneshut"
		c.Integrator = "leapfrog"
		c.Softening = 0.02
		c.TimeScale = 0.5
		c.Workers = 4
		return &Config{
			Name:        "cluster",
			Description: "Plummer sphere of 512 stars on the Barnes-Hut evaluator",
			Simulation:  c,
			Cluster:     &ClusterConfig{N: 512, TotalMass: 1, Scale: 1},
			Steps:       1200,
			RecordEvery: 10,
			Seed:        42,
		}
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
