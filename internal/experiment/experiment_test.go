package experiment

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/storage"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"energy_drift", "momentum_drift", "stability"}, r.ListMetrics())
	assert.Contains(t, r.ListIntegrators(), "rk45")
	assert.Contains(t, r.ListEvaluators(), "barneshut")
	assert.Contains(t, r.ListPresets(), "figure_eight")

	cfg := config.GetPreset("binary")
	m, err := r.GetMetric("stability", cfg.SimConfig(), cfg.BodySpecs())
	require.NoError(t, err)
	assert.Equal(t, "stability", m.Name())

	_, err = r.GetMetric("nope", cfg.SimConfig(), nil)
	assert.Error(t, err)
}

func TestExperiment_WithoutStore(t *testing.T) {
	cfg := config.GetPreset("figure_eight")
	cfg.Steps = 50

	e := New(cfg, nil, zerolog.Nop())
	require.NoError(t, e.Setup())
	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50, result.StepsTaken)
	assert.Empty(t, e.RunID())
	assert.Equal(t, 1.0, result.Metrics["stability"])
	assert.Less(t, result.Metrics["energy_drift"], 1e-3)
}

func TestExperiment_PersistsAndResumes(t *testing.T) {
	st := storage.New(t.TempDir())

	cfg := config.GetPreset("binary")
	cfg.Steps = 40
	cfg.CheckpointEvery = 15
	cfg.RecordEvery = 10

	e := New(cfg, st, zerolog.Nop())
	require.NoError(t, e.Setup())
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, result.StepsTaken)

	runID := e.RunID()
	meta, err := st.Load(runID)
	require.NoError(t, err)
	require.NotNil(t, meta.Result)
	assert.Equal(t, "binary", meta.Scenario)
	assert.Equal(t, 2, meta.Bodies)

	ticks, err := st.Checkpoints(runID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{15, 30, 40}, ticks)

	traj, err := st.LoadTrajectory(runID)
	require.NoError(t, err)
	tr, ok := traj.Track(1)
	require.True(t, ok)
	assert.Equal(t, []uint64{0, 10, 20, 30, 40}, tr.Ticks)

	cp, err := st.LatestCheckpoint(runID)
	require.NoError(t, err)

	resumed := New(&config.Config{Name: "binary", Steps: 10, RecordEvery: 1}, st, zerolog.Nop())
	require.NoError(t, resumed.SetupFrom(cp, runID))
	_, err = resumed.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(50), resumed.Simulator().Snapshot().Tick)
	child, err := st.Load(resumed.RunID())
	require.NoError(t, err)
	assert.Equal(t, runID, child.ResumedFrom)
}
