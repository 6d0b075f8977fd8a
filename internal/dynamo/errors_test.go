package dynamo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors_Unwrap(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		msg      string
	}{
		{&DuplicateIDError{ID: 3}, ErrDuplicateID, "body id 3 already in use"},
		{&NotFoundError{ID: 9}, ErrNotFound, "body 9 not found"},
		{&InvalidBodyError{Reason: "bad"}, ErrInvalidBody, "invalid body: bad"},
		{&InvalidBodyError{ID: 2, Reason: "bad"}, ErrInvalidBody, "invalid body 2: bad"},
		{&UnknownIntegratorError{Name: "euler"}, ErrUnknownIntegrator, `unknown integrator: "euler"`},
		{&UnknownEvaluatorError{Name: "fmm"}, ErrUnknownEvaluator, `unknown force evaluator: "fmm"`},
		{&InvalidConfigError{Field: "tick_rate", Reason: "must be positive"}, ErrInvalidConfig, "invalid config tick_rate: must be positive"},
		{&CheckpointError{Reason: "no version"}, ErrInvalidCheckpoint, "invalid checkpoint: no version"},
	}

	for _, tt := range tests {
		wrapped := fmt.Errorf("command: %w", tt.err)
		assert.True(t, errors.Is(wrapped, tt.sentinel), "%T", tt.err)
		assert.Equal(t, tt.msg, tt.err.Error())
	}
}

func TestCheckpointError_WrapsCause(t *testing.T) {
	cause := &DuplicateIDError{ID: 4}
	err := &CheckpointError{Reason: "bodies", Wrapped: cause}

	assert.True(t, errors.Is(err, ErrInvalidCheckpoint))
	assert.True(t, errors.Is(err, ErrDuplicateID))

	var dup *DuplicateIDError
	assert.True(t, errors.As(err, &dup))
	assert.Equal(t, BodyID(4), dup.ID)
}
