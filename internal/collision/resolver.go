package collision

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/gravsim/internal/dynamo"
)

type Mode string

const (
	ModeNone  Mode = "none"
	ModeMerge Mode = "inelastic_merge"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, ModeMerge:
		return Mode(s), nil
	case "":
		return ModeNone, nil
	}
	return "", &dynamo.InvalidConfigError{Field: "collision_mode", Reason: fmt.Sprintf("unknown mode %q", s)}
}

// MergeEvent records one absorption.
type MergeEvent struct {
	Tick     uint64        `json:"tick"`
	Survivor dynamo.BodyID `json:"survivor"`
	Absorbed dynamo.BodyID `json:"absorbed"`
	Mass     float64       `json:"mass"`
	Radius   float64       `json:"radius"`
	Position dynamo.Vec3   `json:"position"`
}

// Resolver runs one perfectly inelastic merge pass per call. Any two active
// bodies whose spheres touch (dist <= r1 + r2) merge; a body takes part in
// at most one merge per pass, and pairs are matched in (i, j) live order so
// the first touching pair wins.
type Resolver struct {
	mode      Mode
	order     []int
	pairs     [][2]int
	processed []bool
}

func NewResolver(mode Mode) *Resolver {
	return &Resolver{mode: mode}
}

func (r *Resolver) Mode() Mode { return r.mode }

func (r *Resolver) SetMode(mode Mode) { r.mode = mode }

// Resolve merges touching bodies in place. Absorbed bodies are marked
// inactive; call Compact to drop them.
func (r *Resolver) Resolve(bodies []*dynamo.Body, tick uint64) []MergeEvent {
	if r.mode != ModeMerge || len(bodies) < 2 {
		return nil
	}

	r.candidates(bodies)
	if len(r.pairs) == 0 {
		return nil
	}

	r.processed = slices.Grow(r.processed[:0], len(bodies))[:len(bodies)]
	clear(r.processed)

	var events []MergeEvent
	for _, p := range r.pairs {
		i, j := p[0], p[1]
		if r.processed[i] || r.processed[j] {
			continue
		}
		r.processed[i], r.processed[j] = true, true

		survivor, absorbed := bodies[i], bodies[j]
		if survives(absorbed, survivor) {
			survivor, absorbed = absorbed, survivor
		}
		merge(survivor, absorbed)

		events = append(events, MergeEvent{
			Tick:     tick,
			Survivor: survivor.ID,
			Absorbed: absorbed.ID,
			Mass:     survivor.Mass,
			Radius:   survivor.Radius,
			Position: survivor.Position,
		})
	}
	return events
}

// candidates collects every touching pair (i < j) with a sweep along x and
// sorts them into the order a plain double loop would visit them. Merging
// only changes bodies that leave the pass, so the set stays exact.
func (r *Resolver) candidates(bodies []*dynamo.Body) {
	r.order = r.order[:0]
	r.pairs = r.pairs[:0]
	for i, b := range bodies {
		if b.Active {
			r.order = append(r.order, i)
		}
	}

	slices.SortFunc(r.order, func(a, b int) int {
		return cmp.Compare(bodies[a].Position.X-bodies[a].Radius, bodies[b].Position.X-bodies[b].Radius)
	})

	for n, ia := range r.order {
		a := bodies[ia]
		maxX := a.Position.X + a.Radius
		for _, ib := range r.order[n+1:] {
			b := bodies[ib]
			if b.Position.X-b.Radius > maxX {
				break
			}
			if a.Position.Dist(b.Position) <= a.Radius+b.Radius {
				r.pairs = append(r.pairs, [2]int{min(ia, ib), max(ia, ib)})
			}
		}
	}

	slices.SortFunc(r.pairs, func(p, q [2]int) int {
		if c := cmp.Compare(p[0], q[0]); c != 0 {
			return c
		}
		return cmp.Compare(p[1], q[1])
	})
}

// survives reports whether b should absorb a, where a precedes b in live
// order. Fixed bodies always survive; otherwise the heavier body does and
// ties go to the earlier one.
func survives(b, a *dynamo.Body) bool {
	if a.Fixed != b.Fixed {
		return b.Fixed
	}
	return b.Mass > a.Mass
}

func merge(s, a *dynamo.Body) {
	total := s.Mass + a.Mass
	if !s.Fixed && total > 0 {
		s.Position = s.Position.Scale(s.Mass).Add(a.Position.Scale(a.Mass)).Scale(1 / total)
		s.Velocity = s.Momentum().Add(a.Momentum()).Scale(1 / total)
	}
	s.Mass = total
	s.Radius = math.Cbrt(s.Radius*s.Radius*s.Radius + a.Radius*a.Radius*a.Radius)
	s.Acceleration = dynamo.Vec3{}

	a.Active = false
}

// Compact drops inactive bodies in place, preserving order.
func Compact(bodies []*dynamo.Body) []*dynamo.Body {
	out := bodies[:0]
	for _, b := range bodies {
		if b.Active {
			out = append(out, b)
		}
	}
	clear(bodies[len(out):])
	return out
}
