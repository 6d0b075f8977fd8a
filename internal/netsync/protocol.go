package netsync

import (
	"errors"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
)

// Client command types.
const (
	CmdAddBody    = "add_body"
	CmdRemoveBody = "remove_body"
	CmdThrust     = "thrust"
)

// Server message types.
const (
	MsgSnapshot = "snapshot"
	MsgAck      = "ack"
)

// Error codes carried by a failed Ack.
const (
	CodeBadRequest     = "bad_request"
	CodeUnknownCommand = "unknown_command"
	CodeDuplicateID    = "duplicate_id"
	CodeInvalidBody    = "invalid_body"
	CodeNotFound       = "not_found"
	CodeInvalidConfig  = "invalid_config"
	CodeStopped        = "stopped"
	CodeInternal       = "internal"
)

// Command is a client request. Seq is echoed back in the Ack.
type Command struct {
	Type         string           `json:"type"`
	Seq          uint64           `json:"seq,omitempty"`
	ID           dynamo.BodyID    `json:"id,omitempty"`
	Body         *dynamo.BodySpec `json:"body,omitempty"`
	Acceleration *dynamo.Vec3     `json:"acceleration,omitempty"`
}

// Ack answers one Command. ID is the assigned id of an added body.
type Ack struct {
	Seq   uint64        `json:"seq"`
	OK    bool          `json:"ok"`
	ID    dynamo.BodyID `json:"id,omitempty"`
	Code  string        `json:"code,omitempty"`
	Error string        `json:"error,omitempty"`
}

// Envelope is every server to client text message.
type Envelope struct {
	Type     string        `json:"type"`
	Snapshot *sim.Snapshot `json:"snapshot,omitempty"`
	Ack      *Ack          `json:"ack,omitempty"`
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, dynamo.ErrDuplicateID):
		return CodeDuplicateID
	case errors.Is(err, dynamo.ErrInvalidBody):
		return CodeInvalidBody
	case errors.Is(err, dynamo.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, dynamo.ErrInvalidConfig):
		return CodeInvalidConfig
	case errors.Is(err, dynamo.ErrStopped):
		return CodeStopped
	}
	return CodeInternal
}

func failed(seq uint64, code string, err error) *Ack {
	return &Ack{Seq: seq, Code: code, Error: err.Error()}
}
