package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/nbody/internal/storage"
)

func TestTracker(t *testing.T) {
	tr := &Tracker{}
	if tr.Fraction() != 0 {
		t.Errorf("expected 0 before any step, got %g", tr.Fraction())
	}

	tr.OnStep(25, 100, 2.5)
	step, steps, simTime := tr.Snapshot()
	if step != 25 || steps != 100 || simTime != 2.5 {
		t.Errorf("unexpected snapshot %d/%d t=%g", step, steps, simTime)
	}
	if tr.Fraction() != 0.25 {
		t.Errorf("expected 0.25, got %g", tr.Fraction())
	}
}

func TestProgressModel(t *testing.T) {
	tr := &Tracker{}
	canceled := false
	m := newProgressModel("run", tr, func() { canceled = true })

	tr.OnStep(5, 10, 0.5)
	next, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Error("expected another tick while running")
	}
	m = next.(progressModel)
	if !strings.Contains(m.View(), "50.0%") {
		t.Errorf("expected 50%% in view:\n%s", m.View())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !canceled {
		t.Error("expected q to cancel the run")
	}
	m = next.(progressModel)

	next, cmd = m.Update(doneMsg{err: errors.New("boom")})
	m = next.(progressModel)
	if !m.done || cmd == nil {
		t.Error("expected the model to finish and quit")
	}
	if !strings.Contains(m.View(), "boom") {
		t.Errorf("expected the error in view:\n%s", m.View())
	}
}

func TestProgressBar(t *testing.T) {
	for _, f := range []float64{-1, 0, 0.5, 1, 2} {
		bar := ProgressBar(f, 20)
		if n := strings.Count(bar, "█") + strings.Count(bar, "░"); n != 20 {
			t.Errorf("fraction %g: expected 20 cells, got %d", f, n)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil, 5); got != "─────" {
		t.Errorf("unexpected empty sparkline %q", got)
	}
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	out := Sparkline(values, 5)
	if !strings.Contains(out, "▁") || !strings.Contains(out, "▇") {
		t.Errorf("unexpected sparkline %q", out)
	}
}

func TestSummary(t *testing.T) {
	meta := storage.RunMetadata{
		ID:         "output_8_4_1",
		Particles:  8,
		Threads:    4,
		Integrator: "threaded-euler",
		Metrics:    map[string]float64{"energy_drift": 1e-6, "containment": 1},
	}
	out := Summary(meta, []float64{1, 2, 3})
	for _, want := range []string{"output_8_4_1", "threaded-euler", "energy_drift", "containment"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestRunTable(t *testing.T) {
	if !strings.Contains(RunTable(nil), "no runs") {
		t.Error("expected placeholder for no runs")
	}
	out := RunTable([]storage.RunMetadata{{ID: "a"}, {ID: "b"}})
	if strings.Count(out, "\n") != 3 {
		t.Errorf("expected header and 2 rows:\n%s", out)
	}
}

func TestRunWithProgress(t *testing.T) {
	var out bytes.Buffer
	err := RunWithProgress(context.Background(), "test", Options{NoInput: true, Output: &out},
		func(ctx context.Context, tr *Tracker) error {
			for i := 1; i <= 3; i++ {
				tr.OnStep(i, 3, float64(i))
			}
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := errors.New("failed")
	err = RunWithProgress(context.Background(), "test", Options{NoInput: true, Output: &out},
		func(ctx context.Context, tr *Tracker) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("expected run error, got %v", err)
	}
}
