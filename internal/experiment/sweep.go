package experiment

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/nbody/internal/initcond"
	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
)

// Timing is one row of a performance sweep.
type Timing struct {
	Device  string
	N       int
	Threads int
	Seconds float64
}

type SweepOptions struct {
	Steps  int
	Seed   int64
	Logger logrus.FieldLogger
}

// Sweep times the threaded engine for every combination of sizes and
// thread counts. Combinations with more threads than particles are skipped.
func Sweep(ctx context.Context, sizes, threads []int, opts SweepOptions) ([]Timing, error) {
	if opts.Steps <= 0 {
		opts.Steps = 10
	}
	simOpts := make([]sim.Option, 0, 1)
	if opts.Logger != nil {
		simOpts = append(simOpts, sim.WithLogger(opts.Logger))
	}
	s := sim.New(simOpts...)

	timings := make([]Timing, 0, len(sizes)*len(threads))
	for _, n := range sizes {
		x0 := initcond.Uniform(n, physics.DefaultBoxLength, opts.Seed)
		for _, t := range threads {
			if t > n {
				continue
			}
			cfg := sim.DefaultConfig(n)
			cfg.Threads = t
			cfg.MaxTime = float64(opts.Steps) * cfg.Dt

			res, err := s.Run(ctx, x0, cfg)
			if err != nil {
				return timings, fmt.Errorf("sweep n=%d threads=%d: %w", n, t, err)
			}
			timings = append(timings, Timing{Device: "cpu", N: n, Threads: t, Seconds: res.Elapsed.Seconds()})
		}
	}
	return timings, nil
}

// WriteTimings prints timings as a whitespace-separated table with a
// '#'-prefixed header. CPU rows have no block count.
func WriteTimings(w io.Writer, timings []Timing) error {
	if _, err := fmt.Fprintln(w, "#device N threads blocks seconds"); err != nil {
		return err
	}
	for _, t := range timings {
		if _, err := fmt.Fprintf(w, "%s %d %d - %.6f\n", t.Device, t.N, t.Threads, t.Seconds); err != nil {
			return err
		}
	}
	return nil
}
