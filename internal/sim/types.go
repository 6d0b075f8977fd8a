package sim

import (
	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
)

// State is the simulator lifecycle position.
type State int

const (
	Uninitialized State = iota
	Initialized
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Observer is notified after every completed step with the published
// snapshot. Observers run on the stepping goroutine.
type Observer interface {
	OnStep(snap *Snapshot, merges []collision.MergeEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snap *Snapshot, merges []collision.MergeEvent)

func (f ObserverFunc) OnStep(snap *Snapshot, merges []collision.MergeEvent) { f(snap, merges) }

// Metric is re-exported so callers of Run need only this package.
type Metric = metrics.Metric

// Result summarizes a Run.
type Result struct {
	StepsTaken int                `json:"steps_taken"`
	Initial    metrics.Energy     `json:"initial"`
	Final      metrics.Energy     `json:"final"`
	Drift      float64            `json:"energy_drift"`
	Merges     int                `json:"merges"`
	Metrics    map[string]float64 `json:"metrics"`
	Bodies     int                `json:"bodies"`
	SimTime    float64            `json:"sim_time"`
}

type commandKind int

const (
	cmdAdd commandKind = iota
	cmdRemove
	cmdThrust
	cmdConfig
)

type command struct {
	kind  commandKind
	id    dynamo.BodyID
	spec  dynamo.BodySpec
	accel dynamo.Vec3
	cfg   Config
}
