package config

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	DefaultSteps           = 600
	DefaultCheckpointEvery = 0
	DefaultRecordEvery     = 1
)

// Config is a scenario file: the simulation settings, the starting bodies
// and how long to run.
type Config struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description,omitempty"`
	Simulation      sim.Config        `yaml:"simulation"`
	Bodies          []dynamo.BodySpec `yaml:"bodies,omitempty"`
	Cluster         *ClusterConfig    `yaml:"cluster,omitempty"`
	Steps           int               `yaml:"steps"`
	CheckpointEvery int               `yaml:"checkpoint_every,omitempty"`
	RecordEvery     int               `yaml:"record_every,omitempty"`
	Seed            int64             `yaml:"seed,omitempty"`
}

// ClusterConfig generates a Plummer sphere of equal-mass bodies in addition
// to any listed bodies.
type ClusterConfig struct {
	N          int     `yaml:"n"`
	TotalMass  float64 `yaml:"total_mass"`
	Scale      float64 `yaml:"scale"`
	BodyRadius float64 `yaml:"body_radius,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:        "custom",
		Simulation:  sim.DefaultConfig(),
		Steps:       DefaultSteps,
		RecordEvery: DefaultRecordEvery,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a scenario over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	switch {
	case c.Steps < 0:
		return &dynamo.InvalidConfigError{Field: "steps", Reason: "must be non-negative"}
	case c.CheckpointEvery < 0:
		return &dynamo.InvalidConfigError{Field: "checkpoint_every", Reason: "must be non-negative"}
	case c.RecordEvery < 0:
		return &dynamo.InvalidConfigError{Field: "record_every", Reason: "must be non-negative"}
	}
	if cl := c.Cluster; cl != nil {
		if cl.N < 1 || !(cl.TotalMass > 0) || !(cl.Scale > 0) || cl.BodyRadius < 0 {
			return &dynamo.InvalidConfigError{Field: "cluster", Reason: "needs n >= 1 and positive total_mass and scale"}
		}
	}

	seen := make(map[dynamo.BodyID]struct{}, len(c.Bodies))
	for _, b := range c.Bodies {
		if err := b.Validate(); err != nil {
			return err
		}
		if b.ID == 0 {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			return &dynamo.DuplicateIDError{ID: b.ID}
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}

// SimConfig returns the simulation settings.
func (c *Config) SimConfig() sim.Config {
	return c.Simulation
}

// BodySpecs returns the listed bodies followed by the generated cluster, if
// any. Generation is deterministic for a given seed.
func (c *Config) BodySpecs() []dynamo.BodySpec {
	specs := make([]dynamo.BodySpec, 0, len(c.Bodies))
	specs = append(specs, c.Bodies...)
	if c.Cluster != nil {
		specs = append(specs, plummer(*c.Cluster, c.Simulation.G, c.Seed)...)
	}
	return specs
}

// plummer samples positions from the Plummer density profile and speeds
// by rejection against its distribution function, then shifts the set to
// its centre-of-mass frame.
func plummer(cl ClusterConfig, g float64, seed int64) []dynamo.BodySpec {
	rng := rand.New(rand.NewSource(seed))
	m := cl.TotalMass / float64(cl.N)
	specs := make([]dynamo.BodySpec, cl.N)

	var com, vcom dynamo.Vec3
	for i := range specs {
		var r float64
		for {
			r = cl.Scale / math.Sqrt(math.Pow(rng.Float64(), -2.0/3.0)-1)
			if r < 10*cl.Scale {
				break
			}
		}

		var q float64
		for {
			x, y := rng.Float64(), rng.Float64()
			if 0.1*y < x*x*math.Pow(1-x*x, 3.5) {
				q = x
				break
			}
		}
		escape := math.Sqrt(2*g*cl.TotalMass) * math.Pow(r*r+cl.Scale*cl.Scale, -0.25)

		specs[i] = dynamo.BodySpec{
			Name:     fmt.Sprintf("star-%d", i+1),
			Mass:     m,
			Radius:   cl.BodyRadius,
			Position: isotropic(rng).Scale(r),
			Velocity: isotropic(rng).Scale(q * escape),
		}
		com.AddScaledInPlace(specs[i].Position, 1/float64(cl.N))
		vcom.AddScaledInPlace(specs[i].Velocity, 1/float64(cl.N))
	}

	for i := range specs {
		specs[i].Position.SubInPlace(com)
		specs[i].Velocity.SubInPlace(vcom)
	}
	return specs
}

func isotropic(rng *rand.Rand) dynamo.Vec3 {
	z := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	s := math.Sqrt(1 - z*z)
	return dynamo.Vec3{X: s * math.Cos(phi), Y: s * math.Sin(phi), Z: z}
}
