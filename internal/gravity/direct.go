package gravity

import "github.com/san-kum/gravsim/internal/dynamo"

type pointMass struct {
	id  dynamo.BodyID
	pos dynamo.Vec3
	mu  float64
}

// Direct is exact pairwise summation, O(N) per query and O(N²) per pass.
// It is the reference every other evaluator is measured against.
type Direct struct {
	opts   Options
	eps2   float64
	points []pointMass
}

func NewDirect(opts Options) *Direct {
	opts = opts.withDefaults()
	return &Direct{
		opts: opts,
		eps2: opts.Softening * opts.Softening,
	}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Prepare(sources []Source) {
	d.points = d.points[:0]
	for _, s := range sources {
		d.points = append(d.points, pointMass{id: s.ID, pos: s.Position, mu: d.opts.G * s.Mass})
	}
}

func (d *Direct) AccelAt(pos dynamo.Vec3, exclude dynamo.BodyID) dynamo.Vec3 {
	var acc dynamo.Vec3
	for i := range d.points {
		p := &d.points[i]
		if p.id == exclude {
			continue
		}
		pull(&acc, pos, p.pos, p.mu, d.eps2)
	}
	return acc
}
