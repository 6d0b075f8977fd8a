package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation commands. The typed errors below unwrap to
// these so callers can branch with errors.Is.
var (
	// ErrDuplicateID indicates an add-body request reused a live or retired id.
	ErrDuplicateID = errors.New("dynamo: duplicate body id")

	// ErrInvalidBody indicates non-finite or negative mass, radius or kinematics.
	ErrInvalidBody = errors.New("dynamo: invalid body")

	// ErrNotFound indicates the referenced body is absent or inactive.
	ErrNotFound = errors.New("dynamo: body not found")

	// ErrUnknownIntegrator indicates an integrator name with no registered constructor.
	ErrUnknownIntegrator = errors.New("dynamo: unknown integrator")

	// ErrUnknownEvaluator indicates a force evaluator name with no registered constructor.
	ErrUnknownEvaluator = errors.New("dynamo: unknown force evaluator")

	// ErrInvalidConfig indicates a simulation config outside valid bounds.
	ErrInvalidConfig = errors.New("dynamo: invalid config")

	// ErrInvalidCheckpoint indicates a malformed checkpoint record.
	ErrInvalidCheckpoint = errors.New("dynamo: invalid checkpoint")

	// ErrNotRunning indicates a step was requested while paused.
	ErrNotRunning = errors.New("dynamo: simulation is paused")

	// ErrStopped indicates the simulation reached its terminal state.
	ErrStopped = errors.New("dynamo: simulation stopped")
)

type DuplicateIDError struct {
	ID BodyID
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("body id %d already in use", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

type InvalidBodyError struct {
	ID     BodyID
	Reason string
}

func (e *InvalidBodyError) Error() string {
	if e.ID == 0 {
		return "invalid body: " + e.Reason
	}
	return fmt.Sprintf("invalid body %d: %s", e.ID, e.Reason)
}

func (e *InvalidBodyError) Unwrap() error { return ErrInvalidBody }

type NotFoundError struct {
	ID BodyID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("body %d not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type UnknownIntegratorError struct {
	Name string
}

func (e *UnknownIntegratorError) Error() string {
	return fmt.Sprintf("unknown integrator: %q", e.Name)
}

func (e *UnknownIntegratorError) Unwrap() error { return ErrUnknownIntegrator }

type UnknownEvaluatorError struct {
	Name string
}

func (e *UnknownEvaluatorError) Error() string {
	return fmt.Sprintf("unknown force evaluator: %q", e.Name)
}

func (e *UnknownEvaluatorError) Unwrap() error { return ErrUnknownEvaluator }

// InvalidConfigError names the offending config field.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// CheckpointError wraps the first validation failure found in a checkpoint.
// Restores fail with this before any live state is touched.
type CheckpointError struct {
	Reason  string
	Wrapped error
}

func (e *CheckpointError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("invalid checkpoint: %s: %v", e.Reason, e.Wrapped)
	}
	return "invalid checkpoint: " + e.Reason
}

func (e *CheckpointError) Unwrap() []error {
	if e.Wrapped != nil {
		return []error{ErrInvalidCheckpoint, e.Wrapped}
	}
	return []error{ErrInvalidCheckpoint}
}
