package gravity

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/san-kum/gravsim/internal/dynamo"
)

const DefaultFieldCache = 16

// Field is the acceleration source for one simulator sub-step. It holds the
// source snapshot taken at the start of the sub-step; queries at a later
// stage time see sources advanced along their start-of-step trajectory,
// p + v·τ + ½a·τ², so the whole sub-step integrates against a consistent,
// time-aware field. Prepared evaluators are cached per stage offset and
// recycled through a pool once evicted.
//
// A Field is driven by the step loop and is not safe for concurrent use.
type Field struct {
	name        string
	opts        Options
	extrapolate bool

	base      []Source
	predicted []Source
	t0        float64

	cache  *lru.Cache
	pool   sync.Pool
	builds int
}

// NewField creates a field backed by the named evaluator. cacheSize bounds
// the number of prepared stage offsets kept alive.
func NewField(name string, opts Options, cacheSize int) (*Field, error) {
	if _, ok := evaluators[name]; !ok {
		return nil, &dynamo.UnknownEvaluatorError{Name: name}
	}
	if cacheSize <= 0 {
		cacheSize = DefaultFieldCache
	}

	f := &Field{
		name:        name,
		opts:        opts.withDefaults(),
		extrapolate: true,
	}
	f.pool.New = func() any {
		ev, _ := New(f.name, f.opts)
		return ev
	}

	cache, err := lru.NewWithEvict(cacheSize, func(_ interface{}, value interface{}) {
		f.pool.Put(value)
	})
	if err != nil {
		return nil, err
	}
	f.cache = cache
	return f, nil
}

// SetExtrapolate toggles source prediction. Disabled, every stage sees the
// sources frozen at their sub-step start positions.
func (f *Field) SetExtrapolate(on bool) {
	f.extrapolate = on
	f.cache.Purge()
}

func (f *Field) Name() string { return f.name }

// Reset installs a new snapshot taken at time t0 and drops every prepared
// evaluator.
func (f *Field) Reset(sources []Source, t0 float64) {
	f.base = append(f.base[:0], sources...)
	f.t0 = t0
	f.cache.Purge()
}

// Refresh replaces the source accelerations used for prediction, in the
// order the sources were given to Reset. The evaluator prepared at the
// snapshot time stays cached.
func (f *Field) Refresh(acc []dynamo.Vec3) {
	for i := range f.base {
		f.base[i].Acceleration = acc[i]
	}
	for _, k := range f.cache.Keys() {
		if k.(float64) != 0 {
			f.cache.Remove(k)
		}
	}
}

// Evaluator returns the evaluator prepared over the snapshot itself.
func (f *Field) Evaluator() Evaluator {
	return f.evaluatorAt(0)
}

// Sources returns the snapshot installed by Reset. The slice is shared.
func (f *Field) Sources() []Source { return f.base }

// Builds reports how many evaluator preparations the field has run.
func (f *Field) Builds() int { return f.builds }

func (f *Field) Len() int { return len(f.base) }

// At returns the acceleration on a test point at pos and time t, skipping
// the source with the given id.
func (f *Field) At(exclude dynamo.BodyID, pos dynamo.Vec3, t float64) dynamo.Vec3 {
	if len(f.base) == 0 {
		return dynamo.Vec3{}
	}
	return f.evaluatorAt(t-f.t0).AccelAt(pos, exclude)
}

// AccelFunc adapts the field to the integrator callback.
func (f *Field) AccelFunc() dynamo.AccelFunc {
	return func(b *dynamo.Body, pos, _ dynamo.Vec3, t float64) dynamo.Vec3 {
		return f.At(b.ID, pos, t)
	}
}

func (f *Field) evaluatorAt(tau float64) Evaluator {
	if !f.extrapolate {
		tau = 0
	}
	if v, ok := f.cache.Get(tau); ok {
		return v.(Evaluator)
	}

	ev := f.pool.Get().(Evaluator)
	if tau == 0 {
		ev.Prepare(f.base)
	} else {
		ev.Prepare(f.predict(tau))
	}
	f.builds++
	f.cache.Add(tau, ev)
	return ev
}

func (f *Field) predict(tau float64) []Source {
	f.predicted = append(f.predicted[:0], f.base...)
	half := 0.5 * tau * tau
	for i := range f.predicted {
		s := &f.predicted[i]
		s.Position.AddScaledInPlace(s.Velocity, tau)
		s.Position.AddScaledInPlace(s.Acceleration, half)
	}
	return f.predicted
}
