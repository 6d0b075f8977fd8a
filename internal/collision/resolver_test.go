package collision

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/gravsim/internal/dynamo"
)

func body(id dynamo.BodyID, mass, radius float64, pos, vel dynamo.Vec3) *dynamo.Body {
	return &dynamo.Body{ID: id, Mass: mass, Radius: radius, Position: pos, Velocity: vel, Active: true}
}

func totalMomentum(bodies []*dynamo.Body) dynamo.Vec3 {
	var p dynamo.Vec3
	for _, b := range bodies {
		if b.Active {
			p.AddInPlace(b.Momentum())
		}
	}
	return p
}

func totalMass(bodies []*dynamo.Body) float64 {
	var m float64
	for _, b := range bodies {
		if b.Active {
			m += b.Mass
		}
	}
	return m
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("inelastic_merge")
	require.NoError(t, err)
	assert.Equal(t, ModeMerge, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, m)

	_, err = ParseMode("elastic")
	assert.True(t, errors.Is(err, dynamo.ErrInvalidConfig))
}

func TestResolve_ConservesMassAndMomentum(t *testing.T) {
	bodies := []*dynamo.Body{
		body(1, 2, 1, dynamo.Vec3{}, dynamo.Vec3{X: 1}),
		body(2, 6, 1, dynamo.Vec3{X: 1.5}, dynamo.Vec3{X: -1, Y: 2}),
	}
	m0, p0 := totalMass(bodies), totalMomentum(bodies)

	events := NewResolver(ModeMerge).Resolve(bodies, 7)
	require.Len(t, events, 1)

	assert.Equal(t, dynamo.BodyID(2), events[0].Survivor)
	assert.Equal(t, dynamo.BodyID(1), events[0].Absorbed)
	assert.Equal(t, uint64(7), events[0].Tick)

	assert.InDelta(t, m0, totalMass(bodies), 1e-12)
	p1 := totalMomentum(bodies)
	assert.InDelta(t, p0.X, p1.X, 1e-12)
	assert.InDelta(t, p0.Y, p1.Y, 1e-12)

	s := bodies[1]
	assert.InDelta(t, 1.125, s.Position.X, 1e-12)
	assert.InDelta(t, math.Cbrt(2), s.Radius, 1e-12)
	assert.False(t, bodies[0].Active)

	bodies = Compact(bodies)
	require.Len(t, bodies, 1)
	assert.Equal(t, dynamo.BodyID(2), bodies[0].ID)
}

func TestResolve_EqualMassKeepsEarlier(t *testing.T) {
	bodies := []*dynamo.Body{
		body(5, 1, 1, dynamo.Vec3{}, dynamo.Vec3{}),
		body(3, 1, 1, dynamo.Vec3{X: 1}, dynamo.Vec3{}),
	}
	events := NewResolver(ModeMerge).Resolve(bodies, 0)
	require.Len(t, events, 1)
	assert.Equal(t, dynamo.BodyID(5), events[0].Survivor)
	assert.InDelta(t, 0.5, bodies[0].Position.X, 1e-12)
}

func TestResolve_FixedBodySurvivesInPlace(t *testing.T) {
	sun := body(1, 1, 1, dynamo.Vec3{}, dynamo.Vec3{})
	sun.Fixed = true
	rock := body(2, 10, 1, dynamo.Vec3{X: 1}, dynamo.Vec3{X: -3})
	bodies := []*dynamo.Body{rock, sun}

	events := NewResolver(ModeMerge).Resolve(bodies, 0)
	require.Len(t, events, 1)
	assert.Equal(t, dynamo.BodyID(1), events[0].Survivor)

	assert.True(t, sun.Fixed)
	assert.True(t, sun.Active)
	assert.False(t, rock.Active)
	assert.Equal(t, 11.0, sun.Mass)
	assert.True(t, sun.Position.IsZero())
	assert.True(t, sun.Velocity.IsZero())
	assert.InDelta(t, math.Cbrt(2), sun.Radius, 1e-12)
}

func TestResolve_FirstMatchedPairWins(t *testing.T) {
	// 1 touches 2 and 3; 2 touches 3. Only (1, 2) merges this pass.
	bodies := []*dynamo.Body{
		body(1, 1, 1, dynamo.Vec3{}, dynamo.Vec3{}),
		body(2, 1, 1, dynamo.Vec3{X: 1}, dynamo.Vec3{}),
		body(3, 1, 1, dynamo.Vec3{X: 0.5, Y: 1}, dynamo.Vec3{}),
	}
	events := NewResolver(ModeMerge).Resolve(bodies, 0)
	require.Len(t, events, 1)
	assert.Equal(t, dynamo.BodyID(1), events[0].Survivor)
	assert.Equal(t, dynamo.BodyID(2), events[0].Absorbed)
	assert.True(t, bodies[2].Active)

	// The next pass picks up the remaining contact.
	events = NewResolver(ModeMerge).Resolve(Compact(bodies), 1)
	require.Len(t, events, 1)
	assert.Equal(t, dynamo.BodyID(3), events[0].Absorbed)
}

func TestResolve_MatchesPairOrderNotSweepOrder(t *testing.T) {
	// Sorted by x the (2, 3) contact is seen first, but live order puts
	// (1, 3) ahead of it.
	bodies := []*dynamo.Body{
		body(1, 1, 1, dynamo.Vec3{X: 10}, dynamo.Vec3{}),
		body(2, 1, 1, dynamo.Vec3{X: 7}, dynamo.Vec3{}),
		body(3, 1, 1, dynamo.Vec3{X: 8.5}, dynamo.Vec3{}),
	}
	events := NewResolver(ModeMerge).Resolve(bodies, 0)
	require.Len(t, events, 1)
	assert.Equal(t, dynamo.BodyID(1), events[0].Survivor)
	assert.Equal(t, dynamo.BodyID(3), events[0].Absorbed)
	assert.True(t, bodies[1].Active)
}

func TestResolve_ModeNone(t *testing.T) {
	bodies := []*dynamo.Body{
		body(1, 1, 1, dynamo.Vec3{}, dynamo.Vec3{}),
		body(2, 1, 1, dynamo.Vec3{}, dynamo.Vec3{}),
	}
	assert.Empty(t, NewResolver(ModeNone).Resolve(bodies, 0))
	assert.True(t, bodies[0].Active)
	assert.True(t, bodies[1].Active)
}

func TestResolve_Separated(t *testing.T) {
	bodies := []*dynamo.Body{
		body(1, 1, 1, dynamo.Vec3{}, dynamo.Vec3{}),
		body(2, 1, 1, dynamo.Vec3{X: 2.0001}, dynamo.Vec3{}),
		body(3, 1, 0, dynamo.Vec3{Y: 50}, dynamo.Vec3{}),
	}
	assert.Empty(t, NewResolver(ModeMerge).Resolve(bodies, 0))
}

func TestResolve_TouchingExactlyMerges(t *testing.T) {
	bodies := []*dynamo.Body{
		body(1, 1, 1, dynamo.Vec3{}, dynamo.Vec3{}),
		body(2, 1, 1, dynamo.Vec3{X: 2}, dynamo.Vec3{}),
	}
	assert.Len(t, NewResolver(ModeMerge).Resolve(bodies, 0), 1)
}

func TestCompact(t *testing.T) {
	bodies := []*dynamo.Body{
		{ID: 1, Active: true},
		{ID: 2},
		{ID: 3, Active: true},
		{ID: 4},
	}
	out := Compact(bodies)
	require.Len(t, out, 2)
	assert.Equal(t, dynamo.BodyID(1), out[0].ID)
	assert.Equal(t, dynamo.BodyID(3), out[1].ID)
	assert.Nil(t, bodies[2])
	assert.Nil(t, bodies[3])
}
