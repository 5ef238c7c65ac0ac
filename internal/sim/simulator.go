package sim

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/marusama/cyclicbarrier"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/nbody/internal/partition"
	"github.com/san-kum/nbody/internal/vector"
)

// Simulator runs the threaded Euler engine. A Simulator holds no per-run
// state and may be reused; observers must not be added while a run is in
// progress.
type Simulator struct {
	logger    logrus.FieldLogger
	observers []Observer
}

type Option func(*Simulator)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

func New(opts ...Option) *Simulator {
	s := &Simulator{observers: make([]Observer, 0)}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.logger = l
	}
	return s
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run advances a copy of x0 until cfg.MaxTime and returns the merged
// trajectory. x0 is not modified. On error no trajectory is returned.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	cfg, err := ValidateConfig(x0, cfg)
	if err != nil {
		return nil, err
	}

	slices, err := partition.Split(x0.Len(), cfg.Threads, cfg.Remainder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	state := x0.Clone()
	steps := StepCount(cfg.MaxTime, cfg.Dt)
	barrier := cyclicbarrier.New(len(slices))
	out := newCollector(len(slices))

	log := s.logger.WithFields(logrus.Fields{
		"particles": state.Len(),
		"threads":   len(slices),
		"steps":     steps,
	})
	log.Info("starting simulation")
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for id, sl := range slices {
		w := workItem{
			id:     id,
			offset: sl.Offset,
			pos:    state.Pos,
			vel:    state.Vel[sl.Offset:sl.End()],
			acc:    make([]vector.Vector3, sl.Length),
			dt:     cfg.Dt,
		}
		g.Go(func() error {
			return s.loop(gctx, w, steps, cfg, barrier, out)
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}
		return nil, err
	}

	elapsed := time.Since(start)
	traj := Merge(out.buffers, cfg.Order)
	log.WithFields(logrus.Fields{
		"samples": len(traj),
		"elapsed": elapsed,
	}).Info("simulation finished")

	return &Result{
		Trajectory: traj,
		Final:      state,
		Slices:     slices,
		Steps:      steps,
		Elapsed:    elapsed,
	}, nil
}

// ValidateConfig checks x0 and cfg and returns cfg with defaults applied:
// a zero SampleEvery becomes 1 and zero physics parameters take their
// package defaults.
func ValidateConfig(x0 State, cfg Config) (Config, error) {
	if err := x0.Validate(); err != nil {
		return cfg, err
	}
	if !finitePositive(cfg.Dt) {
		return cfg, &ConfigError{Field: "dt", Value: cfg.Dt, Reason: "must be positive and finite"}
	}
	if !finitePositive(cfg.MaxTime) {
		return cfg, &ConfigError{Field: "max_time", Value: cfg.MaxTime, Reason: "must be positive and finite"}
	}
	if cfg.SampleEvery < 0 {
		return cfg, &ConfigError{Field: "sample_every", Value: cfg.SampleEvery, Reason: "must not be negative"}
	}
	if cfg.SampleEvery == 0 {
		cfg.SampleEvery = 1
	}
	if q := cfg.MaxTime / cfg.Dt; q > MaxSteps {
		return cfg, &ConfigError{Field: "max_time", Value: cfg.MaxTime,
			Reason: fmt.Sprintf("max_time/dt is %.3g steps, more than %d", q, MaxSteps)}
	}
	steps := StepCount(cfg.MaxTime, cfg.Dt)
	if samples := float64(x0.Len()) * float64(steps/cfg.SampleEvery); samples > MaxSamples {
		return cfg, &ConfigError{Field: "sample_every", Value: cfg.SampleEvery,
			Reason: fmt.Sprintf("run would record %.3g samples, more than %d", samples, MaxSamples)}
	}

	cfg.Physics = cfg.Physics.WithDefaults()
	if !finitePositive(cfg.Physics.G) {
		return cfg, &ConfigError{Field: "g", Value: cfg.Physics.G, Reason: "must be positive and finite"}
	}
	if cfg.Physics.Softening < 0 || math.IsInf(cfg.Physics.Softening, 0) || math.IsNaN(cfg.Physics.Softening) {
		return cfg, &ConfigError{Field: "softening", Value: cfg.Physics.Softening, Reason: "must be non-negative and finite"}
	}

	if cfg.ValidateState && !x0.IsValid() {
		return cfg, fmt.Errorf("%w: initial state", ErrInvalidState)
	}
	return cfg, nil
}

func (s *Simulator) notify(step, steps int, t float64) {
	for _, o := range s.observers {
		o.OnStep(step, steps, t)
	}
}

func finitePositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 1)
}
