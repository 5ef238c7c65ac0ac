package integrators

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/nbody/internal/partition"
	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/vector"
)

// Integrator advances the whole system by one step of size dt, in place.
// acc is scratch space with one entry per particle.
type Integrator interface {
	Name() string
	Step(s sim.State, acc []vector.Vector3, dt float64, p physics.Params)
}

// Run integrates a copy of x0 on the calling goroutine with the same
// stepping, sampling and ordering rules as the threaded engine. The
// configured thread count and remainder policy are ignored: every particle
// is advanced.
func Run(ctx context.Context, integ Integrator, x0 sim.State, cfg sim.Config, observers ...sim.Observer) (*sim.Result, error) {
	cfg, err := sim.ValidateConfig(x0, cfg)
	if err != nil {
		return nil, err
	}
	whole, err := partition.Split(x0.Len(), 1, partition.AbsorbLast)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sim.ErrInvalidConfig, err)
	}
	n := x0.Len()

	state := x0.Clone()
	acc := make([]vector.Vector3, n)
	steps := sim.StepCount(cfg.MaxTime, cfg.Dt)
	samples := make([]sim.Sample, 0, n*(steps/cfg.SampleEvery))
	start := time.Now()

	for step := 1; step <= steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, &sim.SimulationError{Step: step, Time: float64(step-1) * cfg.Dt,
				Wrapped: fmt.Errorf("%w: %w", sim.ErrCanceled, err)}
		}

		integ.Step(state, acc, cfg.Dt, cfg.Physics)

		t := float64(step) * cfg.Dt
		if cfg.ValidateState && !state.IsValid() {
			return nil, &sim.SimulationError{Step: step, Time: t,
				Wrapped: fmt.Errorf("%w: %s step", sim.ErrInvalidState, integ.Name())}
		}
		if step%cfg.SampleEvery == 0 {
			for i := range state.Pos {
				samples = append(samples, sim.Sample{Time: t, Index: i, Pos: state.Pos[i], Vel: state.Vel[i]})
			}
		}
		for _, o := range observers {
			o.OnStep(step, steps, t)
		}
	}

	return &sim.Result{
		Trajectory: sim.Merge([][]sim.Sample{samples}, cfg.Order),
		Final:      state,
		Slices:     whole,
		Steps:      steps,
		Elapsed:    time.Since(start),
	}, nil
}
