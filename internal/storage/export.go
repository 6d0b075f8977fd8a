package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
)

type ExportTrack struct {
	ID        dynamo.BodyID `json:"id"`
	Times     []float64     `json:"times"`
	Positions []dynamo.Vec3 `json:"positions"`
	Masses    []float64     `json:"masses"`
}

type ExportData struct {
	Run         RunMetadata   `json:"run"`
	Checkpoints []uint64      `json:"checkpoints"`
	Tracks      []ExportTrack `json:"tracks"`
	Final       *sim.Result   `json:"final,omitempty"`
}

// ExportJSON writes a run's metadata, checkpoint ticks and full trajectory
// as one indented JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	traj, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	ticks, err := s.Checkpoints(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:         *meta,
		Checkpoints: ticks,
		Tracks:      make([]ExportTrack, len(traj.Tracks)),
		Final:       meta.Result,
	}
	for i, tr := range traj.Tracks {
		data.Tracks[i] = ExportTrack{
			ID:        tr.ID,
			Times:     tr.Times,
			Positions: tr.Positions,
			Masses:    tr.Masses,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
