package sim

import (
	"context"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/gravity"
	"github.com/san-kum/gravsim/internal/integrators"
	"github.com/san-kum/gravsim/internal/metrics"
)

type idStatus uint8

const (
	idLive idStatus = iota + 1
	idRetired
)

// Simulator owns the live body set. Commands may be submitted from any
// goroutine; they are validated immediately and applied at the start of the
// next Step. Readers use Snapshot, which never exposes live state.
type Simulator struct {
	mu         sync.Mutex
	cfg        Config
	state      State
	bodies     []*dynamo.Body
	integrator dynamo.Integrator
	field      *gravity.Field
	resolver   *collision.Resolver
	thrust     map[dynamo.BodyID]dynamo.Vec3
	tick       uint64
	sequence   uint64
	simTime    float64
	merges     []collision.MergeEvent
	energy     metrics.Energy
	energyOK   bool
	sources    []gravity.Source
	overflow   int
	metrics    []Metric
	observers  []Observer

	cmdMu  sync.Mutex
	queue  []command
	ids    map[dynamo.BodyID]idStatus
	nextID dynamo.BodyID

	snap atomic.Pointer[Snapshot]
	log  zerolog.Logger
}

type Option func(*Simulator)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.log = l.With().Str("component", "sim").Logger() }
}

func WithMetric(m Metric) Option {
	return func(s *Simulator) { s.metrics = append(s.metrics, m) }
}

func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

func New(cfg Config, opts ...Option) (*Simulator, error) {
	s := &Simulator{
		thrust: make(map[dynamo.BodyID]dynamo.Vec3),
		ids:    make(map[dynamo.BodyID]idStatus),
		nextID: 1,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.configure(cfg); err != nil {
		return nil, err
	}
	s.publish()
	return s, nil
}

func (s *Simulator) AddMetric(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
}

func (s *Simulator) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// configure installs cfg and rebuilds the components derived from it.
func (s *Simulator) configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	integ, err := integrators.New(cfg.Integrator, cfg.integratorOptions())
	if err != nil {
		return err
	}
	field, err := gravity.NewField(cfg.Evaluator, cfg.gravityOptions(), cfg.FieldCacheSize)
	if err != nil {
		return err
	}
	field.SetExtrapolate(!cfg.FrozenSources)
	mode, _ := collision.ParseMode(string(cfg.CollisionMode))
	cfg.CollisionMode = mode

	s.cfg = cfg
	s.integrator = integ
	s.field = field
	if s.resolver == nil {
		s.resolver = collision.NewResolver(mode)
	} else {
		s.resolver.SetMode(mode)
	}
	s.energyOK = false
	return nil
}

// Config returns the configuration in effect for the next step, not
// counting queued updates.
func (s *Simulator) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize applies queued commands and computes the starting
// accelerations. It is a no-op once the simulator has left Uninitialized.
func (s *Simulator) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Stopped:
		return dynamo.ErrStopped
	case Uninitialized:
		s.initializeLocked()
	}
	return nil
}

func (s *Simulator) initializeLocked() {
	s.drainLocked()
	s.recompute(s.cfg, s.simTime)
	s.state = Initialized
	s.energyOK = false
	s.publish()
	s.log.Debug().Int("bodies", len(s.bodies)).Float64("time", s.simTime).Msg("initialized")
}

func (s *Simulator) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return dynamo.ErrStopped
	}
	s.state = Paused
	return nil
}

func (s *Simulator) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Stopped:
		return dynamo.ErrStopped
	case Paused:
		s.state = Running
	}
	return nil
}

// Stop moves to the terminal state. Every later Step fails with ErrStopped.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Stopped
	s.log.Debug().Uint64("tick", s.tick).Msg("stopped")
}

// Reset drops every body, pending command and counter, clears integrator
// statistics and returns to Uninitialized. The configuration is kept.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.publish()
}

func (s *Simulator) resetLocked() {
	clear(s.bodies)
	s.bodies = s.bodies[:0]
	clear(s.thrust)
	s.tick, s.sequence, s.simTime = 0, 0, 0
	s.merges = nil
	s.energyOK = false
	s.overflow = 0
	s.state = Uninitialized
	if r, ok := s.integrator.(dynamo.StatsReporter); ok {
		r.ResetStats()
	}

	s.cmdMu.Lock()
	s.queue = nil
	clear(s.ids)
	s.nextID = 1
	s.cmdMu.Unlock()
}

// Step advances the simulation by one configured tick.
func (s *Simulator) Step() error {
	s.mu.Lock()
	snap, merges, err := s.stepLocked()
	observers := s.observers
	s.mu.Unlock()

	if err != nil {
		return err
	}
	for _, o := range observers {
		o.OnStep(snap, merges)
	}
	return nil
}

func (s *Simulator) stepLocked() (*Snapshot, []collision.MergeEvent, error) {
	switch s.state {
	case Paused:
		return nil, nil, dynamo.ErrNotRunning
	case Stopped:
		return nil, nil, dynamo.ErrStopped
	case Uninitialized:
		s.initializeLocked()
	}
	s.state = Running

	start := time.Now()
	s.drainLocked()

	cfg := s.cfg
	dt := cfg.Dt()
	h := dt / float64(cfg.MaxSubsteps)
	for i := 0; i < cfg.MaxSubsteps; i++ {
		s.substep(cfg, h, s.simTime+float64(i)*h, i == 0)
	}
	clear(s.thrust)

	s.merges = s.resolver.Resolve(s.bodies, s.tick)
	if len(s.merges) > 0 {
		s.bodies = collision.Compact(s.bodies)
		s.cmdMu.Lock()
		for _, m := range s.merges {
			s.ids[m.Absorbed] = idRetired
		}
		s.cmdMu.Unlock()
		s.recompute(cfg, s.simTime+dt)

		for _, m := range s.merges {
			s.log.Info().
				Uint64("tick", m.Tick).
				Uint64("survivor", uint64(m.Survivor)).
				Uint64("absorbed", uint64(m.Absorbed)).
				Float64("mass", m.Mass).
				Msg("bodies merged")
		}
	}

	s.tick++
	s.simTime += dt
	s.sequence++
	s.energyOK = false

	for _, m := range s.metrics {
		m.Observe(s.bodies, s.simTime)
	}

	snap := s.publish()
	s.log.Debug().
		Uint64("tick", s.tick).
		Int("bodies", len(s.bodies)).
		Dur("elapsed", time.Since(start)).
		Msg("step")
	return snap, s.merges, nil
}

// substep integrates every free body across [t, t+h] against a field built
// from the body positions at t, then refreshes cached accelerations.
func (s *Simulator) substep(cfg Config, h, t float64, first bool) {
	accel := s.field.AccelFunc()

	if first && len(s.thrust) > 0 {
		gravityAccel := accel
		accel = func(b *dynamo.Body, pos, vel dynamo.Vec3, t float64) dynamo.Vec3 {
			a := gravityAccel(b, pos, vel, t)
			if th, ok := s.thrust[b.ID]; ok {
				a.AddInPlace(th)
			}
			return a
		}
		for _, b := range s.bodies {
			if th, ok := s.thrust[b.ID]; ok {
				b.Acceleration.AddInPlace(th)
			}
		}
	}

	for _, b := range s.bodies {
		if b.Active && !b.Fixed {
			s.integrator.Step(b, h, t, accel)
		}
	}

	s.recompute(cfg, t+h)
}

// recompute snapshots the live set at time t, evaluates every body against
// it in one pass and leaves the field ready for the next sub-step.
func (s *Simulator) recompute(cfg Config, t float64) {
	s.sources = gravity.SourcesFrom(s.bodies, s.sources)
	s.field.Reset(s.sources, t)
	acc := gravity.Accelerations(s.field.Evaluator(), s.field.Sources(), cfg.workers())

	i := 0
	for _, b := range s.bodies {
		if !b.Active {
			continue
		}
		if b.Fixed {
			acc[i] = dynamo.Vec3{}
		}
		b.Acceleration = acc[i]
		i++
	}
	s.field.Refresh(acc)

	if bh, ok := s.field.Evaluator().(*gravity.BarnesHut); ok {
		if n := bh.Tree().Overflow(); n != s.overflow {
			s.overflow = n
			if n > 0 {
				s.log.Warn().Int("bodies", n).Int("max_depth", cfg.MaxDepth).Msg("octree depth limit reached, bodies bucketed")
			}
		}
	}
}

// drainLocked applies queued commands in submission order.
func (s *Simulator) drainLocked() {
	s.cmdMu.Lock()
	queue := s.queue
	s.queue = nil
	s.cmdMu.Unlock()

	if len(queue) == 0 {
		return
	}

	removed := false
	for _, c := range queue {
		switch c.kind {
		case cmdAdd:
			s.bodies = append(s.bodies, dynamo.NewBody(c.id, c.spec))
			s.log.Debug().Uint64("id", uint64(c.id)).Str("name", c.spec.Name).Msg("body added")
		case cmdRemove:
			if b := s.find(c.id); b != nil {
				b.Active = false
				removed = true
				s.log.Debug().Uint64("id", uint64(c.id)).Msg("body removed")
			}
		case cmdThrust:
			if b := s.find(c.id); b != nil {
				s.thrust[c.id] = s.thrust[c.id].Add(c.accel)
			}
		case cmdConfig:
			if err := s.configure(c.cfg); err != nil {
				s.log.Error().Err(err).Msg("config update rejected")
				continue
			}
			s.log.Info().
				Str("integrator", c.cfg.Integrator).
				Str("evaluator", c.cfg.Evaluator).
				Str("collisions", string(c.cfg.CollisionMode)).
				Float64("dt", c.cfg.Dt()).
				Msg("config updated")
		}
	}

	if removed {
		s.bodies = collision.Compact(s.bodies)
		for id := range s.thrust {
			if s.find(id) == nil {
				delete(s.thrust, id)
			}
		}
	}
	if s.state != Uninitialized {
		s.recompute(s.cfg, s.simTime)
	}
	s.energyOK = false
}

func (s *Simulator) find(id dynamo.BodyID) *dynamo.Body {
	for _, b := range s.bodies {
		if b.ID == id && b.Active {
			return b
		}
	}
	return nil
}

func (s *Simulator) publish() *Snapshot {
	snap := &Snapshot{
		Sequence: s.sequence,
		Tick:     s.tick,
		Time:     s.simTime,
		Bodies:   make([]BodyState, 0, len(s.bodies)),
	}
	for _, b := range s.bodies {
		snap.Bodies = append(snap.Bodies, BodyState{
			ID:       b.ID,
			Name:     b.Name,
			Position: b.Position,
			Velocity: b.Velocity,
			Mass:     b.Mass,
			Radius:   b.Radius,
			Active:   b.Active,
		})
	}
	s.snap.Store(snap)
	return snap
}

// Snapshot returns the last published snapshot. It is safe to call from any
// goroutine, including while a step is in flight.
func (s *Simulator) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Metrics returns the energy of the live set at the last step boundary.
func (s *Simulator) Metrics() metrics.Energy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricsLocked()
}

func (s *Simulator) metricsLocked() metrics.Energy {
	if !s.energyOK {
		s.energy = metrics.Compute(s.bodies, s.cfg.G, s.cfg.Softening)
		s.energyOK = true
	}
	return s.energy
}

// Merges returns the merge events of the last step.
func (s *Simulator) Merges() []collision.MergeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.merges)
}

// IntegratorStats reports adaptive step counters when the configured
// integrator keeps them.
func (s *Simulator) IntegratorStats() (dynamo.StepStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.integrator.(dynamo.StatsReporter); ok {
		return r.Stats(), true
	}
	return dynamo.StepStats{}, false
}

// Bodies returns copies of the live bodies, including cached accelerations.
func (s *Simulator) Bodies() []*dynamo.Body {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*dynamo.Body, len(s.bodies))
	for i, b := range s.bodies {
		out[i] = b.Clone()
	}
	return out
}

// CreateCheckpoint captures a full restorable record at the current step
// boundary. Queued commands are not part of it.
func (s *Simulator) CreateCheckpoint() *Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := &Checkpoint{
		Version:   CheckpointVersion,
		ID:        newCheckpointID(),
		Sequence:  s.sequence,
		Tick:      s.tick,
		SimTime:   s.simTime,
		Config:    s.cfg,
		Bodies:    make([]BodyRecord, 0, len(s.bodies)),
		Metrics:   s.metricsLocked(),
		CreatedAt: time.Now().UTC(),
	}
	for _, b := range s.bodies {
		cp.Bodies = append(cp.Bodies, BodyRecord{
			ID:       b.ID,
			Name:     b.Name,
			Mass:     b.Mass,
			Radius:   b.Radius,
			Position: b.Position,
			Velocity: b.Velocity,
			Fixed:    b.Fixed,
		})
	}

	s.cmdMu.Lock()
	cp.NextID = s.nextID
	for id, st := range s.ids {
		if st == idRetired {
			cp.RetiredIDs = append(cp.RetiredIDs, id)
		}
	}
	s.cmdMu.Unlock()
	slices.Sort(cp.RetiredIDs)

	return cp
}

// RestoreCheckpoint replaces the whole simulation with the checkpoint's.
// The record is validated in full first; on failure nothing changes.
func (s *Simulator) RestoreCheckpoint(cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg
	if err := s.configure(cp.Config); err != nil {
		_ = s.configure(prev)
		return &dynamo.CheckpointError{Reason: "config", Wrapped: err}
	}
	s.resetLocked()

	s.cmdMu.Lock()
	for _, r := range cp.Bodies {
		s.bodies = append(s.bodies, dynamo.NewBody(r.ID, r.Spec()))
		s.ids[r.ID] = idLive
	}
	for _, id := range cp.RetiredIDs {
		s.ids[id] = idRetired
	}
	s.nextID = cp.NextID
	s.cmdMu.Unlock()

	s.tick = cp.Tick
	s.sequence = cp.Sequence
	s.simTime = cp.SimTime
	s.initializeLocked()

	s.log.Info().
		Str("checkpoint", cp.ID).
		Uint64("tick", cp.Tick).
		Int("bodies", len(cp.Bodies)).
		Msg("checkpoint restored")
	return nil
}

// Run steps until ctx is done or steps have completed, collecting the
// registered metrics.
func (s *Simulator) Run(ctx context.Context, steps int) (*Result, error) {
	s.mu.Lock()
	for _, m := range s.metrics {
		m.Reset()
	}
	s.mu.Unlock()

	if err := s.Initialize(); err != nil {
		return nil, err
	}

	result := &Result{
		Initial: s.Metrics(),
		Metrics: make(map[string]float64),
	}

	var runErr error
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}
		if err := s.Step(); err != nil {
			runErr = err
			break
		}
		result.StepsTaken++
		result.Merges += len(s.Merges())
	}

	s.mu.Lock()
	result.Final = s.metricsLocked()
	result.Bodies = len(s.bodies)
	result.SimTime = s.simTime
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	s.mu.Unlock()

	if result.Initial.Total != 0 {
		result.Drift = math.Abs(result.Final.Total-result.Initial.Total) / math.Abs(result.Initial.Total)
	}
	return result, runErr
}
