// Package trajectory reads and writes recorded trajectories as CSV.
//
// Every line is one sample:
//
//	t,index,px,py,pz,vx,vy,vz
//
// There is no header. Floats use the shortest representation that round
// trips, so equal trajectories always produce identical bytes.
package trajectory

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/vector"
)

const fieldsPerLine = 8

var ErrMalformed = errors.New("trajectory: malformed line")

// RunID is the name of a run of n particles on threads workers started at
// now: output_<n>_<threads>_<unix seconds>.
func RunID(n, threads int, now time.Time) string {
	return fmt.Sprintf("output_%d_%d_%d", n, threads, now.Unix())
}

func Filename(n, threads int, now time.Time) string {
	return RunID(n, threads, now) + ".csv"
}

func Write(w io.Writer, traj sim.Trajectory) error {
	cw := csv.NewWriter(w)
	record := make([]string, fieldsPerLine)
	for _, s := range traj {
		record[0] = formatFloat(s.Time)
		record[1] = strconv.Itoa(s.Index)
		record[2] = formatFloat(s.Pos.X)
		record[3] = formatFloat(s.Pos.Y)
		record[4] = formatFloat(s.Pos.Z)
		record[5] = formatFloat(s.Vel.X)
		record[6] = formatFloat(s.Vel.Y)
		record[7] = formatFloat(s.Vel.Z)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteFile(path string, traj sim.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, traj); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read parses a trajectory written by Write. Sample order is preserved.
func Read(r io.Reader) (sim.Trajectory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fieldsPerLine
	cr.ReuseRecord = true

	traj := make(sim.Trajectory, 0)
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			return traj, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformed, line, err)
		}
		s, err := parseSample(record)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformed, line, err)
		}
		traj = append(traj, s)
	}
}

func ReadFile(path string) (sim.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func parseSample(record []string) (sim.Sample, error) {
	var s sim.Sample
	idx, err := strconv.Atoi(record[1])
	if err != nil {
		return s, err
	}
	if idx < 0 {
		return s, fmt.Errorf("negative index %d", idx)
	}
	s.Index = idx

	var v [7]float64
	for i, field := range []string{record[0], record[2], record[3], record[4], record[5], record[6], record[7]} {
		if v[i], err = strconv.ParseFloat(field, 64); err != nil {
			return s, err
		}
	}
	s.Time = v[0]
	s.Pos = vector.New(v[1], v[2], v[3])
	s.Vel = vector.New(v[4], v[5], v[6])
	return s, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Frame is the recorded state of the system at one time. Indices[i] is the
// particle whose position is State.Pos[i]; indices ascend.
type Frame struct {
	Time    float64
	Indices []int
	State   sim.State
}

// Frames groups samples by time, in ascending time. traj may be in any order.
func Frames(traj sim.Trajectory) []Frame {
	sorted := slices.Clone(traj)
	slices.SortStableFunc(sorted, func(a, b sim.Sample) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	frames := make([]Frame, 0)
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Time == sorted[start].Time {
			end++
		}
		f := Frame{
			Time:    sorted[start].Time,
			Indices: make([]int, 0, end-start),
			State:   sim.NewState(0),
		}
		for _, s := range sorted[start:end] {
			f.Indices = append(f.Indices, s.Index)
			f.State.Pos = append(f.State.Pos, s.Pos)
			f.State.Vel = append(f.State.Vel, s.Vel)
		}
		frames = append(frames, f)
		start = end
	}
	return frames
}
