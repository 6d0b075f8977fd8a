package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
)

const trajectoryColumns = 11

var trajectoryHeader = []string{"tick", "time", "id", "x", "y", "z", "vx", "vy", "vz", "mass", "radius"}

// Recorder appends published snapshots to a run's trajectory.csv. It is a
// sim.Observer and runs on the stepping goroutine.
type Recorder struct {
	f     *os.File
	w     *csv.Writer
	every uint64
	err   error
}

// NewRecorder opens the run's trajectory for appending and writes the
// header if the file is new. every <= 1 records every step.
func (s *Store) NewRecorder(runID string, every int) (*Recorder, error) {
	path := filepath.Join(s.baseDir, runID, trajectoryFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trajectory of %s: %w", runID, err)
	}

	r := &Recorder{f: f, w: csv.NewWriter(f), every: uint64(max(every, 1))}
	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		r.err = r.w.Write(trajectoryHeader)
	}
	return r, nil
}

// Record writes one row per body. It is a no-op after the first error.
func (r *Recorder) Record(snap *sim.Snapshot) {
	if r.err != nil {
		return
	}
	tick := strconv.FormatUint(snap.Tick, 10)
	t := formatFloat(snap.Time)
	for _, b := range snap.Bodies {
		row := []string{
			tick, t, strconv.FormatUint(uint64(b.ID), 10),
			formatFloat(b.Position.X), formatFloat(b.Position.Y), formatFloat(b.Position.Z),
			formatFloat(b.Velocity.X), formatFloat(b.Velocity.Y), formatFloat(b.Velocity.Z),
			formatFloat(b.Mass), formatFloat(b.Radius),
		}
		if err := r.w.Write(row); err != nil {
			r.err = err
			return
		}
	}
}

func (r *Recorder) OnStep(snap *sim.Snapshot, _ []collision.MergeEvent) {
	if snap.Tick%r.every == 0 {
		r.Record(snap)
	}
}

func (r *Recorder) Err() error { return r.err }

func (r *Recorder) Close() error {
	r.w.Flush()
	if r.err == nil {
		r.err = r.w.Error()
	}
	if err := r.f.Close(); err != nil && r.err == nil {
		r.err = err
	}
	return r.err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Track is the recorded path of one body.
type Track struct {
	ID         dynamo.BodyID
	Ticks      []uint64
	Times      []float64
	Positions  []dynamo.Vec3
	Velocities []dynamo.Vec3
	Masses     []float64
}

// Trajectory holds every track of a run in first-seen order.
type Trajectory struct {
	Tracks []*Track
	index  map[dynamo.BodyID]int
}

func (t *Trajectory) Track(id dynamo.BodyID) (*Track, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return t.Tracks[i], true
}

// Bounds returns the componentwise min and max position over all tracks.
func (t *Trajectory) Bounds() (lo, hi dynamo.Vec3) {
	first := true
	for _, tr := range t.Tracks {
		for _, p := range tr.Positions {
			if first {
				lo, hi, first = p, p, false
				continue
			}
			lo = dynamo.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
			hi = dynamo.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
		}
	}
	return lo, hi
}

func (s *Store) LoadTrajectory(runID string) (*Trajectory, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, fmt.Errorf("load trajectory of %s: %w", runID, err)
	}
	defer f.Close()

	traj, err := ReadTrajectory(f)
	if err != nil {
		return nil, fmt.Errorf("load trajectory of %s: %w", runID, err)
	}
	return traj, nil
}

// ReadTrajectory parses the CSV layout written by Recorder.
func ReadTrajectory(r io.Reader) (*Trajectory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = trajectoryColumns

	traj := &Trajectory{index: make(map[dynamo.BodyID]int)}
	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return traj, nil
		}
		return nil, err
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var vals [trajectoryColumns]float64
		for i := 3; i < len(rec); i++ {
			if vals[i], err = strconv.ParseFloat(rec[i], 64); err != nil {
				return nil, fmt.Errorf("column %s: %w", trajectoryHeader[i], err)
			}
		}
		tick, err := strconv.ParseUint(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column tick: %w", err)
		}
		t, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("column time: %w", err)
		}
		id, err := strconv.ParseUint(rec[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column id: %w", err)
		}

		bid := dynamo.BodyID(id)
		i, ok := traj.index[bid]
		if !ok {
			i = len(traj.Tracks)
			traj.index[bid] = i
			traj.Tracks = append(traj.Tracks, &Track{ID: bid})
		}
		tr := traj.Tracks[i]
		tr.Ticks = append(tr.Ticks, tick)
		tr.Times = append(tr.Times, t)
		tr.Positions = append(tr.Positions, dynamo.Vec3{X: vals[3], Y: vals[4], Z: vals[5]})
		tr.Velocities = append(tr.Velocities, dynamo.Vec3{X: vals[6], Y: vals[7], Z: vals[8]})
		tr.Masses = append(tr.Masses, vals[9])
	}
	return traj, nil
}
