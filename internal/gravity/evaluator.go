package gravity

import (
	"math"
	"sort"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// MinDistance is the separation below which a source contributes nothing.
// Softening keeps the force finite; the guard keeps coincident points from
// producing a direction out of rounding noise when softening is zero.
const MinDistance = 1e-9

const minDistSq = MinDistance * MinDistance

const (
	DefaultTheta    = 0.5
	DefaultMaxDepth = 32
)

// Source is a frozen copy of an active body used as a gravity source for
// one evaluation pass.
type Source struct {
	ID           dynamo.BodyID
	Mass         float64
	Position     dynamo.Vec3
	Velocity     dynamo.Vec3
	Acceleration dynamo.Vec3
}

// SourcesFrom snapshots every active body, fixed ones included.
func SourcesFrom(bodies []*dynamo.Body, dst []Source) []Source {
	dst = dst[:0]
	for _, b := range bodies {
		if !b.Active {
			continue
		}
		dst = append(dst, Source{
			ID:           b.ID,
			Mass:         b.Mass,
			Position:     b.Position,
			Velocity:     b.Velocity,
			Acceleration: b.Acceleration,
		})
	}
	return dst
}

type Options struct {
	G         float64
	Softening float64
	Theta     float64
	MaxDepth  int
}

func DefaultOptions() Options {
	return Options{
		G:        dynamo.G,
		Theta:    DefaultTheta,
		MaxDepth: DefaultMaxDepth,
	}
}

func (o Options) withDefaults() Options {
	if o.G == 0 {
		o.G = dynamo.G
	}
	if o.Theta < 0 {
		o.Theta = 0
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// Evaluator produces softened Newtonian accelerations from a prepared
// source set. AccelAt must be safe for concurrent use between Prepare calls.
type Evaluator interface {
	Name() string
	Prepare(sources []Source)
	AccelAt(pos dynamo.Vec3, exclude dynamo.BodyID) dynamo.Vec3
}

var evaluators = map[string]func(Options) Evaluator{
	"direct":    func(o Options) Evaluator { return NewDirect(o) },
	"barneshut": func(o Options) Evaluator { return NewBarnesHut(o) },
}

// New builds a named evaluator.
func New(name string, opts Options) (Evaluator, error) {
	fn, ok := evaluators[name]
	if !ok {
		return nil, &dynamo.UnknownEvaluatorError{Name: name}
	}
	return fn(opts), nil
}

func Names() []string {
	names := make([]string, 0, len(evaluators))
	for name := range evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Accelerations evaluates every query source against the prepared set,
// excluding itself. Queries are independent, so the pass fans out over
// workers without affecting the result.
func Accelerations(ev Evaluator, queries []Source, workers int) []dynamo.Vec3 {
	out := make([]dynamo.Vec3, len(queries))
	dynamo.ParallelFor(len(queries), workers, 64, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = ev.AccelAt(queries[i].Position, queries[i].ID)
		}
	})
	return out
}

// pull adds the softened attraction of a point source with parameter mu
// (G times mass) located at src on a test point at pos.
func pull(acc *dynamo.Vec3, pos, src dynamo.Vec3, mu, eps2 float64) {
	d := src.Sub(pos)
	r2 := d.LenSq()
	if r2 < minDistSq {
		return
	}
	inv := 1 / math.Sqrt(r2+eps2)
	acc.AddScaledInPlace(d, mu*inv*inv*inv)
}
