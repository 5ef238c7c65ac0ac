// Package storage keeps finished runs on disk, one directory per run:
//
//	<base>/<run_id>/metadata.json
//	<base>/<run_id>/<run_id>.csv
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/trajectory"
)

const (
	metadataFile = "metadata.json"
	maxSuffix    = 1000
)

var (
	ErrRunNotFound = errors.New("storage: run not found")
	ErrRunExists   = errors.New("storage: run already exists")
)

type Store struct {
	baseDir string
	logger  logrus.FieldLogger
}

func New(baseDir string) *Store {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Store{baseDir: baseDir, logger: l}
}

func (s *Store) WithLogger(l logrus.FieldLogger) *Store {
	s.logger = l
	return s
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Particles   int                `json:"particles"`
	Threads     int                `json:"threads"`
	Init        string             `json:"init"`
	Seed        int64              `json:"seed"`
	Integrator  string             `json:"integrator"`
	Dt          float64            `json:"dt"`
	MaxTime     float64            `json:"max_time"`
	Steps       int                `json:"steps"`
	SampleEvery int                `json:"sample_every"`
	Remainder   string             `json:"remainder"`
	Order       string             `json:"order"`
	Physics     physics.Params     `json:"physics"`
	Samples     int                `json:"samples"`
	Elapsed     float64            `json:"elapsed_seconds"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes meta and traj into a new run directory and returns the run ID.
// An empty meta.ID is filled in from the particle and thread counts and
// meta.Timestamp (now, if zero); if that directory already exists the ID
// gets a numeric suffix. An explicit meta.ID that already exists fails with
// ErrRunExists. Existing runs are never overwritten.
func (s *Store) Save(meta RunMetadata, traj sim.Trajectory) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return "", err
	}

	runID, err := s.createRunDir(meta)
	if err != nil {
		return "", err
	}
	meta.ID = runID
	meta.Samples = len(traj)

	if err := writeMetadata(filepath.Join(s.baseDir, runID, metadataFile), meta); err != nil {
		return "", err
	}
	if err := trajectory.WriteFile(s.TrajectoryPath(runID), traj); err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"samples": meta.Samples,
	}).Info("run saved")
	return runID, nil
}

func (s *Store) createRunDir(meta RunMetadata) (string, error) {
	if meta.ID != "" {
		if err := validID(meta.ID); err != nil {
			return "", err
		}
		if err := os.Mkdir(filepath.Join(s.baseDir, meta.ID), 0755); err != nil {
			if os.IsExist(err) {
				return "", fmt.Errorf("%w: %s", ErrRunExists, meta.ID)
			}
			return "", err
		}
		return meta.ID, nil
	}

	base := trajectory.RunID(meta.Particles, meta.Threads, meta.Timestamp)
	for i := 0; i < maxSuffix; i++ {
		runID := base
		if i > 0 {
			runID = fmt.Sprintf("%s_%d", base, i)
		}
		err := os.Mkdir(filepath.Join(s.baseDir, runID), 0755)
		if err == nil {
			return runID, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s (and %d suffixed ids)", ErrRunExists, base, maxSuffix-1)
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(meta)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// List returns every readable run, newest first. Directories without valid
// metadata are skipped.
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
			s.logger.WithError(err).WithField("dir", entry.Name()).Debug("skipping run directory")
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if err := validID(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadTrajectory(runID string) (sim.Trajectory, error) {
	if err := validID(runID); err != nil {
		return nil, err
	}
	traj, err := trajectory.ReadFile(s.TrajectoryPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return traj, nil
}

func (s *Store) TrajectoryPath(runID string) string {
	return filepath.Join(s.baseDir, runID, runID+".csv")
}

func validID(runID string) error {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return fmt.Errorf("storage: invalid run id %q", runID)
	}
	return nil
}
