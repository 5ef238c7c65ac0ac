package experiment

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/nbody/internal/config"
	"github.com/san-kum/nbody/internal/initcond"
	"github.com/san-kum/nbody/internal/integrators"
	"github.com/san-kum/nbody/internal/metrics"
	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
)

// Generator builds the initial state described by cfg.
type Generator func(cfg *config.Config) sim.State

// Runner advances an initial state under engine settings.
type Runner interface {
	Run(ctx context.Context, x0 sim.State, cfg sim.Config, observers ...sim.Observer) (*sim.Result, error)
}

type threadedRunner struct {
	logger logrus.FieldLogger
}

func (r threadedRunner) Run(ctx context.Context, x0 sim.State, cfg sim.Config, observers ...sim.Observer) (*sim.Result, error) {
	s := sim.New(sim.WithLogger(r.logger))
	for _, o := range observers {
		s.AddObserver(o)
	}
	return s.Run(ctx, x0, cfg)
}

type serialRunner struct {
	integ integrators.Integrator
}

func (r serialRunner) Run(ctx context.Context, x0 sim.State, cfg sim.Config, observers ...sim.Observer) (*sim.Result, error) {
	return integrators.Run(ctx, r.integ, x0, cfg, observers...)
}

type Registry struct {
	inits   map[string]Generator
	runners map[string]func(logrus.FieldLogger) Runner
}

func NewRegistry() *Registry {
	r := &Registry{
		inits:   make(map[string]Generator),
		runners: make(map[string]func(logrus.FieldLogger) Runner),
	}

	r.inits["uniform"] = func(c *config.Config) sim.State {
		return initcond.Uniform(c.Particles, c.Physics.WithDefaults().BoxLength, c.Seed)
	}
	r.inits["lattice"] = func(c *config.Config) sim.State {
		return initcond.Lattice(c.Particles, c.Physics.WithDefaults().BoxLength)
	}
	r.inits["pair"] = func(c *config.Config) sim.State {
		return initcond.Pair(c.Physics.WithDefaults().BoxLength, c.Pair.Separation, c.Pair.Speed)
	}

	r.inits["figure8"] = func(c *config.Config) sim.State {
		p := c.Physics.WithDefaults()
		return initcond.FigureEight(p.BoxLength, p.G)
	}

	r.runners["threaded-euler"] = func(l logrus.FieldLogger) Runner { return threadedRunner{logger: l} }
	r.runners["euler"] = func(logrus.FieldLogger) Runner { return serialRunner{integ: integrators.NewEuler()} }
	r.runners["leapfrog"] = func(logrus.FieldLogger) Runner { return serialRunner{integ: integrators.NewLeapfrog()} }

	return r
}

func (r *Registry) GetInit(name string) (Generator, error) {
	fn, ok := r.inits[name]
	if !ok {
		return nil, fmt.Errorf("unknown initial condition: %s", name)
	}
	return fn, nil
}

func (r *Registry) GetIntegrator(name string, logger logrus.FieldLogger) (Runner, error) {
	fn, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(logger), nil
}

func (r *Registry) ListInits() []string {
	return sortedKeys(r.inits)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.runners)
}

func (r *Registry) DefaultMetrics(p physics.Params) []metrics.Metric {
	return metrics.Defaults(p)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
