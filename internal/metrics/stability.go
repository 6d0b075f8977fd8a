package metrics

import (
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// Stability is the fraction of samples in which every active body stayed
// within threshold of the system's center of mass.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(bodies []*dynamo.Body, t float64) {
	s.samples++
	com := CenterOfMass(bodies)
	for _, b := range bodies {
		if !b.Active {
			continue
		}
		if d := b.Position.Dist(com); d > s.threshold || math.IsNaN(d) {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
