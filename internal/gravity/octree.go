package gravity

import (
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// node is one cube of the octree. Children are arena indices; 0 means
// absent because the root always sits at index 0 and is never a child.
// A leaf holds a chain of source indices starting at body (-1 when empty);
// chains longer than one only occur at the depth limit.
type node struct {
	center    dynamo.Vec3
	halfWidth float64
	com       dynamo.Vec3
	mass      float64
	mu        float64
	count     int32
	depth     int32
	body      int32
	leaf      bool
	children  [8]int32
}

type treeSource struct {
	id   dynamo.BodyID
	pos  dynamo.Vec3
	mass float64
	mu   float64
}

// Octree is an arena-allocated Barnes–Hut tree. Build reuses the arena, so
// one tree can serve every pass of a run without reallocating.
type Octree struct {
	nodes    []node
	src      []treeSource
	next     []int32
	index    map[dynamo.BodyID]int32
	maxDepth int
	overflow int
}

func NewOctree(maxDepth int) *Octree {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Octree{
		maxDepth: maxDepth,
		index:    make(map[dynamo.BodyID]int32),
	}
}

// Build rebuilds the tree over sources using gravitational constant g.
func (t *Octree) Build(sources []Source, g float64) {
	t.nodes = t.nodes[:0]
	t.src = t.src[:0]
	t.next = t.next[:0]
	t.overflow = 0
	clear(t.index)

	if len(sources) == 0 {
		return
	}

	lo := sources[0].Position
	hi := lo
	for _, s := range sources {
		lo = dynamo.Vec3{X: math.Min(lo.X, s.Position.X), Y: math.Min(lo.Y, s.Position.Y), Z: math.Min(lo.Z, s.Position.Z)}
		hi = dynamo.Vec3{X: math.Max(hi.X, s.Position.X), Y: math.Max(hi.Y, s.Position.Y), Z: math.Max(hi.Z, s.Position.Z)}
		t.index[s.ID] = int32(len(t.src))
		t.src = append(t.src, treeSource{id: s.ID, pos: s.Position, mass: s.Mass, mu: g * s.Mass})
		t.next = append(t.next, -1)
	}

	ext := hi.Sub(lo)
	half := math.Max(ext.X, math.Max(ext.Y, ext.Z)) / 2 * 1.001
	if half == 0 {
		half = 1
	}
	t.alloc(lo.Add(hi).Scale(0.5), half, 0)

	for i := range t.src {
		t.insert(0, int32(i))
	}
	t.aggregate(0)
}

// Overflow reports how many sources were chained into an existing leaf at
// the depth limit during the last Build.
func (t *Octree) Overflow() int { return t.overflow }

func (t *Octree) NodeCount() int { return len(t.nodes) }

// TotalMass is the root aggregate mass.
func (t *Octree) TotalMass() float64 {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.nodes[0].mass
}

// CenterOfMass is the root aggregate center of mass.
func (t *Octree) CenterOfMass() dynamo.Vec3 {
	if len(t.nodes) == 0 {
		return dynamo.Vec3{}
	}
	return t.nodes[0].com
}

func (t *Octree) alloc(center dynamo.Vec3, half float64, depth int32) int32 {
	t.nodes = append(t.nodes, node{
		center:    center,
		halfWidth: half,
		depth:     depth,
		body:      -1,
		leaf:      true,
	})
	return int32(len(t.nodes) - 1)
}

func octant(center, pos dynamo.Vec3) int {
	o := 0
	if pos.X >= center.X {
		o |= 1
	}
	if pos.Y >= center.Y {
		o |= 2
	}
	if pos.Z >= center.Z {
		o |= 4
	}
	return o
}

func (t *Octree) childFor(n int32, pos dynamo.Vec3) int32 {
	nd := t.nodes[n]
	o := octant(nd.center, pos)
	if c := nd.children[o]; c != 0 {
		return c
	}
	h := nd.halfWidth / 2
	off := dynamo.Vec3{X: -h, Y: -h, Z: -h}
	if o&1 != 0 {
		off.X = h
	}
	if o&2 != 0 {
		off.Y = h
	}
	if o&4 != 0 {
		off.Z = h
	}
	c := t.alloc(nd.center.Add(off), h, nd.depth+1)
	t.nodes[n].children[o] = c
	return c
}

func (t *Octree) insert(n, i int32) {
	if t.nodes[n].leaf {
		switch {
		case t.nodes[n].body < 0:
			t.nodes[n].body = i
			return
		case int(t.nodes[n].depth) >= t.maxDepth:
			t.next[i] = t.nodes[n].body
			t.nodes[n].body = i
			t.overflow++
			return
		}
		old := t.nodes[n].body
		t.nodes[n].body = -1
		t.nodes[n].leaf = false
		t.insert(t.childFor(n, t.src[old].pos), old)
	}
	t.insert(t.childFor(n, t.src[i].pos), i)
}

func (t *Octree) aggregate(n int32) {
	var (
		mass, mu float64
		weighted dynamo.Vec3
		count    int32
	)

	nd := &t.nodes[n]
	if nd.leaf {
		for i := nd.body; i >= 0; i = t.next[i] {
			s := &t.src[i]
			mass += s.mass
			mu += s.mu
			weighted.AddScaledInPlace(s.pos, s.mass)
			count++
		}
		if count == 1 {
			nd.com = t.src[nd.body].pos
		}
	} else {
		for _, c := range nd.children {
			if c == 0 {
				continue
			}
			t.aggregate(c)
			ch := &t.nodes[c]
			if ch.count == 0 {
				continue
			}
			mass += ch.mass
			mu += ch.mu
			weighted.AddScaledInPlace(ch.com, ch.mass)
			count += ch.count
		}
	}

	nd.mass = mass
	nd.mu = mu
	nd.count = count
	switch {
	case count == 1 && nd.leaf:
	case mass > 0:
		nd.com = weighted.Scale(1 / mass)
	default:
		nd.com = nd.center
	}
}

// accel walks the tree for a test point. When the excluded source is in the
// tree, every node on its insertion path has it removed from the aggregate
// before being used as a point mass, so no query ever feels itself.
func (t *Octree) accel(pos dynamo.Vec3, exclude dynamo.BodyID, theta, eps2 float64) dynamo.Vec3 {
	var acc dynamo.Vec3
	if len(t.nodes) == 0 {
		return acc
	}

	var pathBuf [64]int32
	path := pathBuf[:0]
	ex := int32(-1)
	if i, ok := t.index[exclude]; ok {
		ex = i
		for n := int32(0); ; {
			path = append(path, n)
			if t.nodes[n].leaf {
				break
			}
			n = t.nodes[n].children[octant(t.nodes[n].center, t.src[i].pos)]
		}
	}

	t.walk(0, pos, ex, path, theta, eps2, &acc)
	return acc
}

func (t *Octree) walk(n int32, pos dynamo.Vec3, ex int32, path []int32, theta, eps2 float64, acc *dynamo.Vec3) {
	nd := &t.nodes[n]
	if nd.count == 0 {
		return
	}
	onPath := int(nd.depth) < len(path) && path[nd.depth] == n

	if nd.leaf {
		if nd.count == 1 {
			if onPath {
				return
			}
			s := &t.src[nd.body]
			pull(acc, pos, s.pos, s.mu, eps2)
			return
		}
		t.pointMass(nd, pos, ex, onPath, eps2, acc)
		return
	}

	d := nd.com.Dist(pos)
	if d > 0 && 2*nd.halfWidth/d < theta {
		t.pointMass(nd, pos, ex, onPath, eps2, acc)
		return
	}
	for _, c := range nd.children {
		if c != 0 {
			t.walk(c, pos, ex, path, theta, eps2, acc)
		}
	}
}

func (t *Octree) pointMass(nd *node, pos dynamo.Vec3, ex int32, onPath bool, eps2 float64, acc *dynamo.Vec3) {
	if !onPath {
		pull(acc, pos, nd.com, nd.mu, eps2)
		return
	}
	s := &t.src[ex]
	mass := nd.mass - s.mass
	if mass <= 0 {
		return
	}
	com := nd.com.Scale(nd.mass).Sub(s.pos.Scale(s.mass)).Scale(1 / mass)
	pull(acc, pos, com, nd.mu-s.mu, eps2)
}
