package gravity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/gravsim/internal/dynamo"
)

func TestNewField_UnknownEvaluator(t *testing.T) {
	_, err := NewField("tree", unitOpts(), 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynamo.ErrUnknownEvaluator))
}

func TestField_MatchesEvaluatorAtStart(t *testing.T) {
	src := randomCloud(40, 2)
	for _, name := range Names() {
		f, err := NewField(name, unitOpts(), 0)
		require.NoError(t, err)
		f.Reset(src, 10)

		ev, _ := New(name, unitOpts())
		ev.Prepare(src)
		for _, s := range src {
			assert.Equal(t, ev.AccelAt(s.Position, s.ID), f.At(s.ID, s.Position, 10))
		}
	}
}

func TestField_CachesPerStageTime(t *testing.T) {
	f, err := NewField("direct", unitOpts(), 4)
	require.NoError(t, err)
	f.Reset(randomCloud(10, 4), 0)

	f.At(1, dynamo.Vec3{}, 0)
	f.At(2, dynamo.Vec3{}, 0)
	assert.Equal(t, 1, f.Builds())

	f.At(1, dynamo.Vec3{}, 0.5)
	f.At(3, dynamo.Vec3{}, 0.5)
	assert.Equal(t, 2, f.Builds())

	f.Reset(randomCloud(10, 4), 0)
	f.At(1, dynamo.Vec3{}, 0)
	assert.Equal(t, 3, f.Builds())
}

func TestField_PredictsSources(t *testing.T) {
	f, err := NewField("direct", unitOpts(), 4)
	require.NoError(t, err)
	f.Reset([]Source{
		{ID: 1, Mass: 4, Velocity: dynamo.Vec3{X: 1}},
		{ID: 2, Mass: 1, Position: dynamo.Vec3{X: 100}},
	}, 5)

	// Source 1 drifts to x=1 by t=6; the probe sits at x=3.
	a := f.At(2, dynamo.Vec3{X: 3}, 6)
	assert.InDelta(t, -1.0, a.X, 1e-12)

	f.SetExtrapolate(false)
	a = f.At(2, dynamo.Vec3{X: 3}, 6)
	assert.InDelta(t, -4.0/9.0, a.X, 1e-12)
}

func TestField_AccelerationTermInPrediction(t *testing.T) {
	f, err := NewField("direct", unitOpts(), 4)
	require.NoError(t, err)
	f.Reset([]Source{
		{ID: 1, Mass: 1, Acceleration: dynamo.Vec3{Y: 2}},
	}, 0)

	// ½·2·1² puts the source at y=1 after one unit of time.
	a := f.At(0, dynamo.Vec3{Y: 3}, 1)
	assert.InDelta(t, -0.25, a.Y, 1e-12)
}

func TestField_Empty(t *testing.T) {
	f, err := NewField("barneshut", unitOpts(), 4)
	require.NoError(t, err)
	f.Reset(nil, 0)

	assert.True(t, f.At(1, dynamo.Vec3{X: 1}, 3).IsZero())
	assert.Zero(t, f.Builds())
	assert.Zero(t, f.Len())
}

func TestField_AccelFunc(t *testing.T) {
	f, err := NewField("direct", unitOpts(), 4)
	require.NoError(t, err)
	f.Reset([]Source{
		{ID: 1, Mass: 1},
		{ID: 2, Mass: 1, Position: dynamo.Vec3{X: 2}},
	}, 0)

	b := &dynamo.Body{ID: 2, Position: dynamo.Vec3{X: 2}}
	a := f.AccelFunc()(b, b.Position, dynamo.Vec3{}, 0)
	assert.InDelta(t, -0.25, a.X, 1e-12)
}
