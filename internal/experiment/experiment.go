package experiment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/nbody/internal/config"
	"github.com/san-kum/nbody/internal/metrics"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/storage"
	"github.com/san-kum/nbody/internal/trajectory"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    logrus.FieldLogger
	observers []sim.Observer
}

type Result struct {
	*sim.Result
	Config  sim.Config
	Initial sim.State
	Metrics map[string]float64
}

func New(cfg *config.Config, logger logrus.FieldLogger) *Experiment {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   logger,
	}
}

func (e *Experiment) AddObserver(o sim.Observer) {
	e.observers = append(e.observers, o)
}

// Setup resolves the initial state and engine settings without running.
func (e *Experiment) Setup() (sim.State, sim.Config, Runner, error) {
	gen, err := e.registry.GetInit(e.cfg.Init)
	if err != nil {
		return sim.State{}, sim.Config{}, nil, err
	}
	runner, err := e.registry.GetIntegrator(e.cfg.Integrator, e.logger)
	if err != nil {
		return sim.State{}, sim.Config{}, nil, err
	}
	sc, err := e.cfg.SimConfig()
	if err != nil {
		return sim.State{}, sim.Config{}, nil, err
	}
	return gen(e.cfg), sc, runner, nil
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	x0, sc, runner, err := e.Setup()
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"init":       e.cfg.Init,
		"integrator": e.cfg.Integrator,
		"particles":  x0.Len(),
	}).Debug("experiment starting")

	res, err := runner.Run(ctx, x0, sc, e.observers...)
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}

	frames := trajectory.Frames(res.Trajectory)
	values := metrics.Evaluate(frames, e.registry.DefaultMetrics(sc.Physics)...)

	return &Result{
		Result:  res,
		Config:  sc,
		Initial: x0,
		Metrics: values,
	}, nil
}

// Metadata describes r for storage. now stamps the run and names it.
func (e *Experiment) Metadata(r *Result, now time.Time) storage.RunMetadata {
	return storage.RunMetadata{
		Timestamp:   now,
		Particles:   r.Initial.Len(),
		Threads:     r.Config.Threads,
		Init:        e.cfg.Init,
		Seed:        e.cfg.Seed,
		Integrator:  e.cfg.Integrator,
		Dt:          r.Config.Dt,
		MaxTime:     r.Config.MaxTime,
		Steps:       r.Steps,
		SampleEvery: r.Config.SampleEvery,
		Remainder:   r.Config.Remainder.String(),
		Order:       r.Config.Order.String(),
		Physics:     r.Config.Physics,
		Elapsed:     r.Elapsed.Seconds(),
		Metrics:     r.Metrics,
	}
}
