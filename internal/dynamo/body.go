package dynamo

// BodyID identifies a body for the lifetime of a simulation. IDs are never
// reused after removal, so external references go stale instead of aliasing.
type BodyID uint64

// Body is the mutable state of one point mass. Acceleration is scratch
// state: it is recomputed every sub-step and only cached so two-stage
// integrators can reuse the previous evaluation.
type Body struct {
	ID           BodyID
	Name         string
	Mass         float64
	Radius       float64
	Position     Vec3
	Velocity     Vec3
	Acceleration Vec3
	Fixed        bool
	Active       bool
}

func (b *Body) Momentum() Vec3 {
	return b.Velocity.Scale(b.Mass)
}

func (b *Body) KineticEnergy() float64 {
	return 0.5 * b.Mass * b.Velocity.LenSq()
}

// Clone returns an independent copy.
func (b *Body) Clone() *Body {
	c := *b
	return &c
}

// BodySpec is an add-body request. A zero ID asks the simulator to assign
// the next free one.
type BodySpec struct {
	ID       BodyID  `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Mass     float64 `json:"mass" yaml:"mass"`
	Radius   float64 `json:"radius" yaml:"radius"`
	Position Vec3    `json:"position" yaml:"position"`
	Velocity Vec3    `json:"velocity" yaml:"velocity"`
	Fixed    bool    `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

// Validate rejects specs that could not take part in conserved-quantity
// computations. Fixed bodies may carry zero mass since they never merge as
// the absorbed party and their mass is only a source term.
func (s BodySpec) Validate() error {
	switch {
	case !isFinite(s.Mass) || s.Mass < 0:
		return &InvalidBodyError{ID: s.ID, Reason: "mass must be finite and non-negative"}
	case !s.Fixed && s.Mass == 0:
		return &InvalidBodyError{ID: s.ID, Reason: "free bodies need positive mass"}
	case !isFinite(s.Radius) || s.Radius < 0:
		return &InvalidBodyError{ID: s.ID, Reason: "radius must be finite and non-negative"}
	case !s.Position.IsFinite():
		return &InvalidBodyError{ID: s.ID, Reason: "position is not finite"}
	case !s.Velocity.IsFinite():
		return &InvalidBodyError{ID: s.ID, Reason: "velocity is not finite"}
	}
	return nil
}

// NewBody materializes an active body from a validated spec.
func NewBody(id BodyID, s BodySpec) *Body {
	b := &Body{
		ID:       id,
		Name:     s.Name,
		Mass:     s.Mass,
		Radius:   s.Radius,
		Position: s.Position,
		Velocity: s.Velocity,
		Fixed:    s.Fixed,
		Active:   true,
	}
	if b.Fixed {
		b.Velocity = Vec3{}
	}
	return b
}
