package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marusama/cyclicbarrier"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/vector"
)

// workItem is everything one worker touches. pos is the whole system and is
// shared; vel and acc cover only the worker's own slice and are never shared.
type workItem struct {
	id     int
	offset int
	pos    []vector.Vector3
	vel    []vector.Vector3
	acc    []vector.Vector3
	dt     float64
}

// collector holds the per-worker sample buffers. Each worker publishes once,
// after its loop ends.
type collector struct {
	mu      sync.Mutex
	buffers [][]Sample
}

func newCollector(workers int) *collector {
	return &collector{buffers: make([][]Sample, workers)}
}

func (c *collector) publish(id int, samples []Sample) {
	c.mu.Lock()
	c.buffers[id] = samples
	c.mu.Unlock()
}

// loop runs one worker for the whole simulation. Every step crosses the
// barrier twice: before the force pass, so all position writes of the
// previous step are complete, and before the update pass, so nobody moves a
// particle while another worker is still reading positions.
func (s *Simulator) loop(ctx context.Context, w workItem, steps int, cfg Config, barrier cyclicbarrier.CyclicBarrier, out *collector) (err error) {
	step := 0
	defer func() {
		if r := recover(); r != nil {
			err = &SimulationError{
				Worker:  w.id,
				Step:    step,
				Time:    float64(step) * w.dt,
				Wrapped: fmt.Errorf("%w: %v", ErrWorkerPanic, r),
			}
		}
	}()

	log := s.logger.WithFields(logrus.Fields{
		"worker": w.id,
		"offset": w.offset,
		"length": len(w.vel),
	})
	log.Debug("worker started")

	every := cfg.SampleEvery
	local := make([]Sample, 0, len(w.vel)*(steps/every))
	own := w.pos[w.offset : w.offset+len(w.vel)]

	for step = 1; step <= steps; step++ {
		if err := barrier.Await(ctx); err != nil {
			return s.barrierError(ctx, w, step, err)
		}
		physics.Gravity(w.pos, w.offset, w.acc, cfg.Physics)

		if err := barrier.Await(ctx); err != nil {
			return s.barrierError(ctx, w, step, err)
		}
		for i := range own {
			own[i] = own[i].Add(w.vel[i].Scale(w.dt))
		}
		for i := range w.vel {
			w.vel[i] = w.vel[i].Add(w.acc[i].Scale(w.dt))
		}

		t := float64(step) * w.dt
		if cfg.ValidateState {
			for i := range own {
				if !own[i].IsFinite() || !w.vel[i].IsFinite() {
					return &SimulationError{Worker: w.id, Step: step, Time: t,
						Wrapped: fmt.Errorf("%w: particle %d", ErrInvalidState, w.offset+i)}
				}
			}
		}

		if step%every == 0 {
			for i := range own {
				local = append(local, Sample{Time: t, Index: w.offset + i, Pos: own[i], Vel: w.vel[i]})
			}
		}

		if w.id == 0 {
			s.notify(step, steps, t)
		}
	}

	out.publish(w.id, local)
	log.WithField("samples", len(local)).Debug("worker finished")
	return nil
}

func (s *Simulator) barrierError(ctx context.Context, w workItem, step int, err error) error {
	if ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	} else if errors.Is(err, cyclicbarrier.ErrBrokenBarrier) {
		err = fmt.Errorf("sim: barrier broken: %w", err)
	}
	return &SimulationError{Worker: w.id, Step: step, Time: float64(step-1) * w.dt, Wrapped: err}
}
