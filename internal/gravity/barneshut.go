package gravity

import "github.com/san-kum/gravsim/internal/dynamo"

// BarnesHut approximates distant groups of sources by their center of mass.
// A node of side s at distance d is opened when s/d >= Theta; Theta == 0
// degenerates to exact summation.
type BarnesHut struct {
	opts Options
	eps2 float64
	tree *Octree
}

func NewBarnesHut(opts Options) *BarnesHut {
	opts = opts.withDefaults()
	return &BarnesHut{
		opts: opts,
		eps2: opts.Softening * opts.Softening,
		tree: NewOctree(opts.MaxDepth),
	}
}

func (b *BarnesHut) Name() string { return "barneshut" }

func (b *BarnesHut) Prepare(sources []Source) {
	b.tree.Build(sources, b.opts.G)
}

func (b *BarnesHut) AccelAt(pos dynamo.Vec3, exclude dynamo.BodyID) dynamo.Vec3 {
	return b.tree.accel(pos, exclude, b.opts.Theta, b.eps2)
}

func (b *BarnesHut) Tree() *Octree { return b.tree }
