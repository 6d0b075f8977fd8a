package experiment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/storage"
)

// Experiment runs one scenario and, when given a store, persists its
// metadata, trajectory and periodic checkpoints.
type Experiment struct {
	cfg      *config.Config
	store    *storage.Store
	registry *Registry
	log      zerolog.Logger

	simulator *sim.Simulator
	meta      *storage.RunMetadata
	recorder  *storage.Recorder
	ckptErr   error
}

func New(cfg *config.Config, st *storage.Store, log zerolog.Logger) *Experiment {
	return &Experiment{
		cfg:      cfg,
		store:    st,
		registry: NewRegistry(),
		log:      log,
	}
}

// Setup builds a simulator holding the scenario's starting bodies.
func (e *Experiment) Setup() error {
	specs := e.cfg.BodySpecs()
	if err := e.newSimulator(specs); err != nil {
		return err
	}
	for _, spec := range specs {
		if _, err := e.simulator.AddBody(spec); err != nil {
			return fmt.Errorf("scenario %s: %w", e.cfg.Name, err)
		}
	}
	if err := e.simulator.Initialize(); err != nil {
		return err
	}
	return e.openRun("")
}

// SetupFrom builds a simulator restored from cp. parent names the run the
// checkpoint came from, if any.
func (e *Experiment) SetupFrom(cp *sim.Checkpoint, parent string) error {
	specs := make([]dynamo.BodySpec, len(cp.Bodies))
	for i, r := range cp.Bodies {
		specs[i] = r.Spec()
	}
	e.cfg.Simulation = cp.Config
	if err := e.newSimulator(specs); err != nil {
		return err
	}
	if err := e.simulator.RestoreCheckpoint(cp); err != nil {
		return err
	}
	return e.openRun(parent)
}

func (e *Experiment) newSimulator(specs []dynamo.BodySpec) error {
	opts := []sim.Option{sim.WithLogger(e.log)}
	for _, m := range e.registry.DefaultMetrics(e.cfg.SimConfig(), specs) {
		opts = append(opts, sim.WithMetric(m))
	}
	s, err := sim.New(e.cfg.SimConfig(), opts...)
	if err != nil {
		return err
	}
	e.simulator = s
	return nil
}

func (e *Experiment) openRun(parent string) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Init(); err != nil {
		return err
	}

	e.meta = &storage.RunMetadata{
		Scenario:    e.cfg.Name,
		Seed:        e.cfg.Seed,
		Steps:       e.cfg.Steps,
		Config:      e.cfg.SimConfig(),
		Bodies:      len(e.simulator.Snapshot().Bodies),
		ResumedFrom: parent,
	}
	runID, err := e.store.Create(e.meta)
	if err != nil {
		return err
	}

	e.recorder, err = e.store.NewRecorder(runID, e.cfg.RecordEvery)
	if err != nil {
		return err
	}
	e.recorder.Record(e.simulator.Snapshot())
	e.simulator.AddObserver(e.recorder)

	if every := uint64(e.cfg.CheckpointEvery); every > 0 {
		e.simulator.AddObserver(sim.ObserverFunc(func(snap *sim.Snapshot, _ []collision.MergeEvent) {
			if snap.Tick%every != 0 || e.ckptErr != nil {
				return
			}
			e.ckptErr = e.store.SaveCheckpoint(runID, e.simulator.CreateCheckpoint())
		}))
	}

	e.log.Info().Str("run", runID).Str("scenario", e.cfg.Name).Msg("run created")
	return nil
}

// Run advances the scenario's configured number of steps. With a store, the
// final state is checkpointed and the result written to the run metadata.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	result, runErr := e.simulator.Run(ctx, e.cfg.Steps)
	if result == nil || e.store == nil {
		return result, runErr
	}

	if err := e.recorder.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("record trajectory: %w", err)
	}
	if e.ckptErr != nil && runErr == nil {
		runErr = e.ckptErr
	}
	if err := e.store.SaveCheckpoint(e.meta.ID, e.simulator.CreateCheckpoint()); err != nil && runErr == nil {
		runErr = err
	}

	e.meta.Result = result
	if err := e.store.Save(e.meta); err != nil && runErr == nil {
		runErr = err
	}

	e.log.Info().
		Str("run", e.meta.ID).
		Int("steps", result.StepsTaken).
		Float64("energy_drift", result.Drift).
		Int("merges", result.Merges).
		Msg("run finished")
	return result, runErr
}

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator {
	return e.simulator
}

// RunID is empty when the experiment has no store.
func (e *Experiment) RunID() string {
	if e.meta == nil {
		return ""
	}
	return e.meta.ID
}
