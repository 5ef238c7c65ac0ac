package experiment

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/nbody/internal/config"
)

func tinyConfig() *config.Config {
	cfg := config.GetPreset("tiny")
	cfg.Dt, cfg.MaxTime = 1, 5
	return cfg
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if got := r.ListInits(); strings.Join(got, ",") != "figure8,lattice,pair,uniform" {
		t.Errorf("unexpected inits %v", got)
	}
	if got := r.ListIntegrators(); strings.Join(got, ",") != "euler,leapfrog,threaded-euler" {
		t.Errorf("unexpected integrators %v", got)
	}
	if _, err := r.GetInit("plummer"); err == nil {
		t.Error("expected an error for an unknown initial condition")
	}
	if _, err := r.GetIntegrator("rk4", nil); err == nil {
		t.Error("expected an error for an unknown integrator")
	}
}

func TestExperimentRun(t *testing.T) {
	for _, integ := range []string{"threaded-euler", "euler", "leapfrog"} {
		t.Run(integ, func(t *testing.T) {
			cfg := tinyConfig()
			cfg.Integrator = integ

			res, err := New(cfg, nil).Run(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Steps != 5 {
				t.Errorf("expected 5 steps, got %d", res.Steps)
			}
			if len(res.Trajectory) != 40 {
				t.Errorf("expected 40 samples, got %d", len(res.Trajectory))
			}
			for _, name := range []string{"energy", "energy_drift", "momentum_drift", "containment"} {
				if _, ok := res.Metrics[name]; !ok {
					t.Errorf("missing metric %s", name)
				}
			}
		})
	}
}

func TestThreadedMatchesEuler(t *testing.T) {
	threaded := tinyConfig()
	serial := tinyConfig()
	serial.Integrator = "euler"

	a, err := New(threaded, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(serial, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Trajectory {
		if a.Trajectory[i] != b.Trajectory[i] {
			t.Fatalf("sample %d differs: %+v vs %+v", i, a.Trajectory[i], b.Trajectory[i])
		}
	}
}

func TestExperimentErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown init", func(c *config.Config) { c.Init = "plummer" }},
		{"unknown integrator", func(c *config.Config) { c.Integrator = "rk4" }},
		{"too many threads", func(c *config.Config) { c.Threads = 9 }},
		{"invalid order", func(c *config.Config) { c.Order = "random" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tinyConfig()
			tt.mutate(cfg)
			if _, err := New(cfg, nil).Run(context.Background()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestMetadata(t *testing.T) {
	cfg := tinyConfig()
	e := New(cfg, nil)
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	meta := e.Metadata(res, time.Unix(100, 0))
	if meta.Particles != 8 || meta.Threads != 4 || meta.Steps != 5 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Remainder != "last" || meta.Order != "index" {
		t.Errorf("unexpected policy/order %q/%q", meta.Remainder, meta.Order)
	}
}

func TestSweep(t *testing.T) {
	timings, err := Sweep(context.Background(), []int{4, 16}, []int{1, 2, 8}, SweepOptions{Steps: 2, Seed: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 8 threads over 4 particles is skipped
	if len(timings) != 5 {
		t.Fatalf("expected 5 timings, got %d", len(timings))
	}

	var buf bytes.Buffer
	if err := WriteTimings(&buf, timings); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "#device N threads blocks seconds" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if len(lines) != 6 || !strings.HasPrefix(lines[1], "cpu 4 1 - ") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}
