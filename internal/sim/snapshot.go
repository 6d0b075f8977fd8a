package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
)

// BodyState is the per-body part of a Snapshot.
type BodyState struct {
	ID       dynamo.BodyID `json:"id"`
	Name     string        `json:"name,omitempty"`
	Position dynamo.Vec3   `json:"position"`
	Velocity dynamo.Vec3   `json:"velocity"`
	Mass     float64       `json:"mass"`
	Radius   float64       `json:"radius"`
	Active   bool          `json:"active"`
}

// Snapshot is the lightweight per-step view published for renderers and
// network consumers. It is immutable once published.
type Snapshot struct {
	Sequence uint64      `json:"sequence"`
	Tick     uint64      `json:"tick"`
	Time     float64     `json:"time"`
	Bodies   []BodyState `json:"bodies"`
}

// Find returns the body with the given id.
func (s *Snapshot) Find(id dynamo.BodyID) (BodyState, bool) {
	for _, b := range s.Bodies {
		if b.ID == id {
			return b, true
		}
	}
	return BodyState{}, false
}

const CheckpointVersion = 1

// BodyRecord is the full restorable state of one live body.
type BodyRecord struct {
	ID       dynamo.BodyID `json:"id"`
	Name     string        `json:"name,omitempty"`
	Mass     float64       `json:"mass"`
	Radius   float64       `json:"radius"`
	Position dynamo.Vec3   `json:"position"`
	Velocity dynamo.Vec3   `json:"velocity"`
	Fixed    bool          `json:"fixed,omitempty"`
}

func (r BodyRecord) Spec() dynamo.BodySpec {
	return dynamo.BodySpec{
		ID:       r.ID,
		Name:     r.Name,
		Mass:     r.Mass,
		Radius:   r.Radius,
		Position: r.Position,
		Velocity: r.Velocity,
		Fixed:    r.Fixed,
	}
}

// Checkpoint is a full restorable record taken at a step boundary. It holds
// no references into the live simulation.
type Checkpoint struct {
	Version    int             `json:"version"`
	ID         string          `json:"id"`
	Sequence   uint64          `json:"sequence"`
	Tick       uint64          `json:"tick"`
	SimTime    float64         `json:"sim_time"`
	NextID     dynamo.BodyID   `json:"next_id"`
	RetiredIDs []dynamo.BodyID `json:"retired_ids,omitempty"`
	Config     Config          `json:"config"`
	Bodies     []BodyRecord    `json:"bodies"`
	Metrics    metrics.Energy  `json:"metrics"`
	CreatedAt  time.Time       `json:"created_at"`
}

func newCheckpointID() string {
	return uuid.NewString()
}

// Validate checks the record in full without touching any simulator.
func (cp *Checkpoint) Validate() error {
	if cp == nil {
		return &dynamo.CheckpointError{Reason: "nil checkpoint"}
	}
	if cp.Version != CheckpointVersion {
		return &dynamo.CheckpointError{Reason: fmt.Sprintf("unsupported version %d", cp.Version)}
	}
	if cp.ID != "" {
		if _, err := uuid.Parse(cp.ID); err != nil {
			return &dynamo.CheckpointError{Reason: "malformed id", Wrapped: err}
		}
	}
	if err := cp.Config.Validate(); err != nil {
		return &dynamo.CheckpointError{Reason: "config", Wrapped: err}
	}

	seen := make(map[dynamo.BodyID]struct{}, len(cp.Bodies)+len(cp.RetiredIDs))
	for _, id := range cp.RetiredIDs {
		if id == 0 || id >= cp.NextID {
			return &dynamo.CheckpointError{Reason: fmt.Sprintf("retired id %d outside [1, next_id)", id)}
		}
		seen[id] = struct{}{}
	}
	for _, r := range cp.Bodies {
		if r.ID == 0 {
			return &dynamo.CheckpointError{Reason: "body without id"}
		}
		if _, dup := seen[r.ID]; dup {
			return &dynamo.CheckpointError{Reason: "body list", Wrapped: &dynamo.DuplicateIDError{ID: r.ID}}
		}
		seen[r.ID] = struct{}{}
		if err := r.Spec().Validate(); err != nil {
			return &dynamo.CheckpointError{Reason: "body list", Wrapped: err}
		}
		if r.ID >= cp.NextID {
			return &dynamo.CheckpointError{Reason: fmt.Sprintf("body id %d not below next_id %d", r.ID, cp.NextID)}
		}
	}
	return nil
}
