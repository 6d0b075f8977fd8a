package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/gravsim/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	checkpointDir  = "checkpoints"
)

// ErrNoCheckpoint is returned when a run has no stored checkpoints.
var ErrNoCheckpoint = errors.New("storage: run has no checkpoints")

// Store keeps one directory per run under baseDir:
//
//	<runID>/metadata.json
//	<runID>/trajectory.csv
//	<runID>/checkpoints/<tick>.json
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string      `json:"id"`
	Scenario    string      `json:"scenario"`
	Timestamp   time.Time   `json:"timestamp"`
	Seed        int64       `json:"seed"`
	Steps       int         `json:"steps"`
	Config      sim.Config  `json:"config"`
	Bodies      int         `json:"bodies"`
	ResumedFrom string      `json:"resumed_from,omitempty"`
	Result      *sim.Result `json:"result,omitempty"`
}

// NewRunID returns "<scenario>_<first 8 hex digits of a random uuid>".
func NewRunID(scenario string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s", scenario, id[:8])
}

// Create allocates a run directory and writes the initial metadata. meta.ID
// is assigned when empty.
func (s *Store) Create(meta *RunMetadata) (string, error) {
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Scenario)
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	if err := os.MkdirAll(filepath.Join(s.baseDir, meta.ID, checkpointDir), 0755); err != nil {
		return "", fmt.Errorf("create run %s: %w", meta.ID, err)
	}
	if err := s.Save(meta); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// Save rewrites a run's metadata.
func (s *Store) Save(meta *RunMetadata) error {
	return writeJSON(filepath.Join(s.baseDir, meta.ID, metadataFile), meta)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	var meta RunMetadata
	if err := readJSON(filepath.Join(s.baseDir, runID, metadataFile), &meta); err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) checkpointPath(runID string, tick uint64) string {
	return filepath.Join(s.baseDir, runID, checkpointDir, strconv.FormatUint(tick, 10)+".json")
}

func (s *Store) SaveCheckpoint(runID string, cp *sim.Checkpoint) error {
	dir := filepath.Join(s.baseDir, runID, checkpointDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := writeJSON(s.checkpointPath(runID, cp.Tick), cp); err != nil {
		return fmt.Errorf("save checkpoint %d of %s: %w", cp.Tick, runID, err)
	}
	return nil
}

// LoadCheckpoint reads and validates the checkpoint taken at tick.
func (s *Store) LoadCheckpoint(runID string, tick uint64) (*sim.Checkpoint, error) {
	var cp sim.Checkpoint
	if err := readJSON(s.checkpointPath(runID, tick), &cp); err != nil {
		return nil, fmt.Errorf("load checkpoint %d of %s: %w", tick, runID, err)
	}
	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("load checkpoint %d of %s: %w", tick, runID, err)
	}
	return &cp, nil
}

// Checkpoints lists the ticks with a stored checkpoint, ascending.
func (s *Store) Checkpoints(runID string) ([]uint64, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, runID, checkpointDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ticks []uint64
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() {
			continue
		}
		tick, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		ticks = append(ticks, tick)
	}
	slices.Sort(ticks)
	return ticks, nil
}

func (s *Store) LatestCheckpoint(runID string) (*sim.Checkpoint, error) {
	ticks, err := s.Checkpoints(runID)
	if err != nil {
		return nil, err
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("%s: %w", runID, ErrNoCheckpoint)
	}
	return s.LoadCheckpoint(runID, ticks[len(ticks)-1])
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
