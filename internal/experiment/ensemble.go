package experiment

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/nbody/internal/config"
)

// Ensemble repeats one configuration over consecutive seeds. Only the
// uniform initial condition depends on the seed.
type Ensemble struct {
	base      *config.Config
	numRuns   int
	seedStart int64
	// Parallel bounds how many runs execute at once; zero means one.
	Parallel int
	logger   logrus.FieldLogger
}

func NewEnsemble(base *config.Config, numRuns int, logger logrus.FieldLogger) *Ensemble {
	return &Ensemble{base: base, numRuns: numRuns, seedStart: base.Seed, Parallel: 1, logger: logger}
}

// Run returns one result per seed, in seed order. The first failure cancels
// the remaining runs.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	if e.numRuns <= 0 {
		return nil, fmt.Errorf("%w: ensemble needs at least one run, got %d", config.ErrInvalid, e.numRuns)
	}

	results := make([]*Result, e.numRuns)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Parallel, 1))

	for i := 0; i < e.numRuns; i++ {
		cfg := e.base.Clone()
		cfg.Seed = e.seedStart + int64(i)
		g.Go(func() error {
			res, err := New(cfg, e.logger).Run(gctx)
			if err != nil {
				return fmt.Errorf("ensemble seed %d: %w", cfg.Seed, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MetricStats is the spread of one metric across an ensemble.
type MetricStats struct {
	Name   string
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize reduces every metric the results share, sorted by name.
func Summarize(results []*Result) []MetricStats {
	if len(results) == 0 {
		return nil
	}

	out := make([]MetricStats, 0, len(results[0].Metrics))
	for _, name := range slices.Sorted(maps.Keys(results[0].Metrics)) {
		values := make([]float64, 0, len(results))
		for _, r := range results {
			if v, ok := r.Metrics[name]; ok {
				values = append(values, v)
			}
		}
		if len(values) != len(results) {
			continue
		}

		ms := MetricStats{Name: name, Min: slices.Min(values), Max: slices.Max(values)}
		if len(values) > 1 {
			ms.Mean, ms.StdDev = stat.MeanStdDev(values, nil)
		} else {
			ms.Mean = values[0]
		}
		out = append(out, ms)
	}
	return out
}
