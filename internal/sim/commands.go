package sim

import "github.com/san-kum/gravsim/internal/dynamo"

// AddBody validates spec and queues it for the next step boundary. A zero
// spec.ID takes the next free id. IDs of removed or merged bodies are never
// handed out again and count as duplicates.
func (s *Simulator) AddBody(spec dynamo.BodySpec) (dynamo.BodyID, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	id := spec.ID
	if id == 0 {
		id = s.nextID
	} else if _, used := s.ids[id]; used {
		return 0, &dynamo.DuplicateIDError{ID: id}
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}

	spec.ID = id
	s.ids[id] = idLive
	s.queue = append(s.queue, command{kind: cmdAdd, id: id, spec: spec})
	return id, nil
}

// RemoveBody queues removal of a live or pending body. The id is retired.
func (s *Simulator) RemoveBody(id dynamo.BodyID) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if s.ids[id] != idLive {
		return &dynamo.NotFoundError{ID: id}
	}
	s.ids[id] = idRetired
	s.queue = append(s.queue, command{kind: cmdRemove, id: id})
	return nil
}

// ApplyExternalAcceleration adds a to the body's acceleration for the first
// sub-step of the next step only. Several calls before one step accumulate.
func (s *Simulator) ApplyExternalAcceleration(id dynamo.BodyID, a dynamo.Vec3) error {
	if !a.IsFinite() {
		return &dynamo.InvalidBodyError{ID: id, Reason: "external acceleration is not finite"}
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if s.ids[id] != idLive {
		return &dynamo.NotFoundError{ID: id}
	}
	s.queue = append(s.queue, command{kind: cmdThrust, id: id, accel: a})
	return nil
}

// UpdateConfig validates cfg and queues it. The step in flight, if any,
// finishes under the old configuration.
func (s *Simulator) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	s.queue = append(s.queue, command{kind: cmdConfig, cfg: cfg})
	return nil
}

// Pending reports how many commands wait for the next step.
func (s *Simulator) Pending() int {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return len(s.queue)
}
