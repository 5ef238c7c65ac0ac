package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"

	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/storage"
	"github.com/san-kum/nbody/internal/trajectory"
	"github.com/san-kum/nbody/internal/vector"
)

func testTrajectory() sim.Trajectory {
	traj := make(sim.Trajectory, 0)
	for idx := 0; idx < 3; idx++ {
		for k := 1; k <= 4; k++ {
			f := float64(k)
			traj = append(traj, sim.Sample{
				Time:  f,
				Index: idx,
				Pos:   vector.New(float64(idx)+0.1*f, 0.5*f, -f),
				Vel:   vector.New(0.1, 0.5, -1),
			})
		}
	}
	return traj
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "Parquet", "ARROW", "svg"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("unexpected error for %q: %v", s, err)
		}
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestParquet(t *testing.T) {
	traj := testTrajectory()
	var buf bytes.Buffer
	if err := Parquet(&buf, traj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := parquet.Read[Row](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(rows) != len(traj) {
		t.Fatalf("expected %d rows, got %d", len(traj), len(rows))
	}
	for i, r := range rows {
		if r != newRow(traj[i]) {
			t.Errorf("row %d: expected %+v, got %+v", i, newRow(traj[i]), r)
		}
	}
}

func TestArrow(t *testing.T) {
	traj := testTrajectory()
	var buf bytes.Buffer
	if err := Arrow(&buf, traj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	r, err := ipc.NewFileReader(bytes.NewReader(buf.Bytes()), ipc.WithAllocator(mem))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer r.Close()

	if r.NumRecords() != 1 {
		t.Fatalf("expected 1 record, got %d", r.NumRecords())
	}
	rec, err := r.Record(0)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if rec.NumRows() != int64(len(traj)) || rec.NumCols() != 8 {
		t.Fatalf("unexpected shape %dx%d", rec.NumRows(), rec.NumCols())
	}

	times := rec.Column(0).(*array.Float64)
	idx := rec.Column(1).(*array.Int64)
	pz := rec.Column(4).(*array.Float64)
	for i, s := range traj {
		if times.Value(i) != s.Time || idx.Value(i) != int64(s.Index) || pz.Value(i) != s.Pos.Z {
			t.Errorf("row %d does not match sample %+v", i, s)
		}
	}
}

func TestToArrowReleases(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := ToArrow(testTrajectory(), mem)
	if rec.NumRows() != 12 {
		t.Errorf("expected 12 rows, got %d", rec.NumRows())
	}
	rec.Release()
}

func TestJSON(t *testing.T) {
	traj := testTrajectory()
	meta := storage.RunMetadata{ID: "output_3_1_0", Particles: 3, Physics: physics.DefaultParams()}

	var buf bytes.Buffer
	if err := JSON(&buf, NewSummary(meta, trajectory.Frames(traj))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Run.ID != meta.ID {
		t.Errorf("expected run %q, got %q", meta.ID, got.Run.ID)
	}
	if got.Frames != 4 || len(got.Total) != 4 {
		t.Errorf("expected 4 frames, got %d/%d", got.Frames, len(got.Total))
	}
	if len(got.Final) != 3 || got.Final[2].Index != 2 || got.Final[2].Pos != traj[11].Pos {
		t.Errorf("unexpected final frame %+v", got.Final)
	}
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(&buf, testTrajectory(), 400, 300); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<?xml") || !strings.Contains(out, `width="400"`) {
		t.Errorf("unexpected header: %.80s", out)
	}
	if n := strings.Count(out, "<path"); n != 3 {
		t.Errorf("expected 3 paths, got %d", n)
	}
}

func TestSVGSingleSample(t *testing.T) {
	var buf bytes.Buffer
	traj := sim.Trajectory{{Time: 1, Index: 0}}
	if err := SVG(&buf, traj, 100, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "<circle") {
		t.Error("expected a dot for a single sample")
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	points := []struct{ X, Y float64 }{{0, 0}, {1, 1}, {2, 0}}
	out := TrajectoryToSVG(points, 100, 100, "#fff")
	if strings.Count(out, " L") != 2 {
		t.Errorf("expected 2 line segments in %s", out)
	}
	if TrajectoryToSVG(points[:1], 100, 100, "#fff") != "" {
		t.Error("expected empty output for a single point")
	}
}

func TestEmpty(t *testing.T) {
	var buf bytes.Buffer
	for name, fn := range map[string]func() error{
		"parquet": func() error { return Parquet(&buf, nil) },
		"arrow":   func() error { return Arrow(&buf, nil) },
		"svg":     func() error { return SVG(&buf, nil, 10, 10) },
	} {
		if err := fn(); !errors.Is(err, ErrEmpty) {
			t.Errorf("%s: expected ErrEmpty, got %v", name, err)
		}
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	traj := testTrajectory()
	summary := NewSummary(storage.RunMetadata{ID: "r"}, trajectory.Frames(traj))

	for _, f := range []Format{FormatJSON, FormatParquet, FormatArrow, FormatSVG} {
		path := filepath.Join(dir, "out."+f.Extension())
		if err := WriteFile(path, f, summary, traj); err != nil {
			t.Errorf("%s: unexpected error: %v", f, err)
		}
	}
}
