package sim_test

import (
	"bytes"
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/nbody/internal/initcond"
	"github.com/san-kum/nbody/internal/integrators"
	"github.com/san-kum/nbody/internal/partition"
	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/trajectory"
	"github.com/san-kum/nbody/internal/vector"
)

func baseConfig(threads int, dt, maxTime float64) sim.Config {
	return sim.Config{
		Threads:       threads,
		Dt:            dt,
		MaxTime:       maxTime,
		Physics:       physics.DefaultParams(),
		Remainder:     partition.AbsorbLast,
		Order:         sim.OrderByIndex,
		SampleEvery:   1,
		ValidateState: true,
	}
}

func countByIndex(traj sim.Trajectory) map[int]int {
	counts := make(map[int]int)
	for _, s := range traj {
		counts[s.Index]++
	}
	return counts
}

func encode(traj sim.Trajectory) []byte {
	var buf bytes.Buffer
	Expect(trajectory.Write(&buf, traj)).To(Succeed())
	return buf.Bytes()
}

type stepCounter struct {
	calls int
	last  int
}

func (c *stepCounter) OnStep(step, steps int, t float64) {
	c.calls++
	c.last = step
}

var _ = Describe("Simulator", func() {
	var (
		ctx       context.Context
		simulator *sim.Simulator
	)

	BeforeEach(func() {
		ctx = context.Background()
		simulator = sim.New()
	})

	Describe("near and far pairs", func() {
		var state sim.State

		BeforeEach(func() {
			state = sim.NewState(4)
			state.Pos[0] = vector.New(0, 0, 0)
			state.Pos[1] = vector.New(1, 0, 0)
			state.Pos[2] = vector.New(1e4, 0, 0)
			state.Pos[3] = vector.New(1e4, 1e4, 0)
		})

		It("pulls the close pair together", func() {
			res, err := simulator.Run(ctx, state, baseConfig(2, 1.0, 2.0))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(2))
			Expect(res.Trajectory).To(HaveLen(8))

			Expect(res.Final.Pos[0].X).To(BeNumerically(">", 0))
			Expect(res.Final.Pos[1].X).To(BeNumerically("<", 1))
			Expect(res.Final.Vel[0].X).To(BeNumerically(">", 0))
			Expect(res.Final.Vel[1].X).To(BeNumerically("<", 0))
		})

		It("is dominated by the near neighbour", func() {
			p := physics.DefaultParams()
			acc := make([]vector.Vector3, 1)
			physics.Gravity(state.Pos, 0, acc, p)

			near := physics.Pairwise(state.Pos[0], state.Pos[1], p)
			far := acc[0].Sub(near)
			Expect(far.Mag()).To(BeNumerically("<", 1e-6*near.Mag()))
		})

		It("does not modify the caller's state", func() {
			before := state.Clone()
			_, err := simulator.Run(ctx, state, baseConfig(2, 1.0, 2.0))
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(before))
		})
	})

	Describe("a single particle", func() {
		It("stays put at rest", func() {
			state := sim.NewState(1)
			state.Pos[0] = vector.New(0.5, 0.5, 0.5)

			res, err := simulator.Run(ctx, state, baseConfig(1, 0.5, 2.0))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Final.Pos[0]).To(Equal(vector.New(0.5, 0.5, 0.5)))
		})

		It("moves linearly with a velocity", func() {
			state := sim.NewState(1)
			state.Vel[0] = vector.New(1, -2, 0.5)

			res, err := simulator.Run(ctx, state, baseConfig(1, 0.25, 1.0))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trajectory).To(HaveLen(4))
			for k, s := range res.Trajectory {
				t := 0.25 * float64(k+1)
				Expect(s.Time).To(Equal(t))
				Expect(s.Pos.X).To(BeNumerically("~", t, 1e-12))
				Expect(s.Pos.Y).To(BeNumerically("~", -2*t, 1e-12))
				Expect(s.Pos.Z).To(BeNumerically("~", 0.5*t, 1e-12))
				Expect(s.Vel).To(Equal(vector.New(1, -2, 0.5)))
			}
		})
	})

	Describe("step counting", func() {
		DescribeTable("samples per particle",
			func(dt, maxTime float64, expected int) {
				state := initcond.Uniform(8, 1.0, 3)
				res, err := simulator.Run(ctx, state, baseConfig(4, dt, maxTime))
				Expect(err).NotTo(HaveOccurred())

				Expect(res.Steps).To(Equal(expected))
				Expect(res.Trajectory).To(HaveLen(8 * expected))
				for idx, c := range countByIndex(res.Trajectory) {
					Expect(c).To(Equal(expected), "particle %d", idx)
				}
			},
			Entry("exact multiple", 1.0, 3.0, 3),
			Entry("exact multiple with inexact dt", 0.1, 1.0, 10),
			Entry("not a multiple", 1.0, 2.5, 2),
			Entry("shorter than one step", 1.0, 0.5, 0),
		)

		It("records every k-th step", func() {
			cfg := baseConfig(2, 1.0, 10.0)
			cfg.SampleEvery = 5
			res, err := simulator.Run(ctx, initcond.Uniform(4, 1.0, 7), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trajectory).To(HaveLen(8))
			for _, s := range res.Trajectory {
				Expect(math.Mod(s.Time, 5)).To(BeZero())
			}
		})

		It("notifies observers once per step", func() {
			counter := &stepCounter{}
			simulator.AddObserver(counter)
			_, err := simulator.Run(ctx, initcond.Uniform(4, 1.0, 1), baseConfig(2, 1.0, 6.0))
			Expect(err).NotTo(HaveOccurred())
			Expect(counter.calls).To(Equal(6))
			Expect(counter.last).To(Equal(6))
		})
	})

	Describe("determinism", func() {
		It("produces byte-identical output across runs and thread counts", func() {
			state := initcond.Uniform(24, 1.0, 25)
			cfg := sim.DefaultConfig(24)
			cfg.MaxTime = 20 * cfg.Dt

			var reference []byte
			for _, threads := range []int{1, 2, 3, 4, 6, 8, 1, 4} {
				cfg.Threads = threads
				res, err := simulator.Run(ctx, state, cfg)
				Expect(err).NotTo(HaveOccurred())
				out := encode(res.Trajectory)
				if reference == nil {
					reference = out
					continue
				}
				Expect(out).To(Equal(reference), "threads=%d", threads)
			}
		})

		It("matches the sequential Euler integrator exactly", func() {
			state := initcond.Uniform(12, 1.0, 11)
			cfg := sim.DefaultConfig(12)
			cfg.MaxTime = 15 * cfg.Dt
			cfg.Threads = 3

			threaded, err := simulator.Run(ctx, state, cfg)
			Expect(err).NotTo(HaveOccurred())

			serial, err := integrators.Run(ctx, integrators.NewEuler(), state, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(threaded.Trajectory).To(Equal(serial.Trajectory))
			Expect(threaded.Final).To(Equal(serial.Final))
		})

		It("orders samples by time when asked", func() {
			cfg := baseConfig(2, 1.0, 3.0)
			cfg.Order = sim.OrderByTime
			res, err := simulator.Run(ctx, initcond.Uniform(4, 1.0, 2), cfg)
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i < len(res.Trajectory); i++ {
				prev, cur := res.Trajectory[i-1], res.Trajectory[i]
				Expect(prev.Time < cur.Time || (prev.Time == cur.Time && prev.Index < cur.Index)).To(BeTrue())
			}
		})
	})

	Describe("conservation", func() {
		It("keeps the momentum of a two-body system", func() {
			state := sim.NewState(2)
			state.Pos[0] = vector.New(0.4, 0.5, 0.5)
			state.Pos[1] = vector.New(0.6, 0.5, 0.5)
			state.Vel[0] = vector.New(0, 1e-5, 0)
			state.Vel[1] = vector.New(0, -1e-5, 0)

			cfg := sim.DefaultConfig(2)
			cfg.Threads = 2
			cfg.MaxTime = 200 * cfg.Dt
			cfg.Order = sim.OrderByTime

			res, err := simulator.Run(ctx, state, cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i+1 < len(res.Trajectory); i += 2 {
				a, b := res.Trajectory[i], res.Trajectory[i+1]
				Expect(a.Time).To(Equal(b.Time))
				p := a.Vel.Add(b.Vel)
				Expect(p.Mag()).To(BeNumerically("<", 1e-18))
			}
		})
	})

	Describe("remainder policies", func() {
		It("advances the remainder with the last worker", func() {
			state := initcond.Uniform(7, 1.0, 5)
			res, err := simulator.Run(ctx, state, baseConfig(3, 1.0, 2.0))
			Expect(err).NotTo(HaveOccurred())
			Expect(countByIndex(res.Trajectory)).To(HaveLen(7))
			Expect(res.Slices[2]).To(Equal(partition.Slice{Offset: 4, Length: 3}))
		})

		It("leaves dropped particles untouched", func() {
			state := initcond.Uniform(7, 1.0, 5)
			cfg := baseConfig(3, 1.0, 2.0)
			cfg.Remainder = partition.Drop

			res, err := simulator.Run(ctx, state, cfg)
			Expect(err).NotTo(HaveOccurred())
			counts := countByIndex(res.Trajectory)
			Expect(counts).To(HaveLen(6))
			Expect(counts).NotTo(HaveKey(6))
			Expect(res.Final.Pos[6]).To(Equal(state.Pos[6]))
		})

		It("rejects uneven splits in strict mode", func() {
			cfg := baseConfig(3, 1.0, 2.0)
			cfg.Remainder = partition.Strict
			_, err := simulator.Run(ctx, initcond.Uniform(7, 1.0, 5), cfg)
			Expect(err).To(MatchError(sim.ErrInvalidConfig))
			Expect(errors.Is(err, partition.ErrInvalid)).To(BeTrue())
		})
	})

	Describe("configuration errors", func() {
		DescribeTable("are reported before any worker starts",
			func(mutate func(*sim.Config, *sim.State)) {
				state := initcond.Uniform(4, 1.0, 1)
				cfg := baseConfig(2, 1.0, 2.0)
				mutate(&cfg, &state)

				res, err := simulator.Run(ctx, state, cfg)
				Expect(res).To(BeNil())
				Expect(err).To(MatchError(sim.ErrInvalidConfig))
			},
			Entry("zero threads", func(c *sim.Config, _ *sim.State) { c.Threads = 0 }),
			Entry("negative threads", func(c *sim.Config, _ *sim.State) { c.Threads = -1 }),
			Entry("more threads than particles", func(c *sim.Config, _ *sim.State) { c.Threads = 5 }),
			Entry("zero dt", func(c *sim.Config, _ *sim.State) { c.Dt = 0 }),
			Entry("negative dt", func(c *sim.Config, _ *sim.State) { c.Dt = -1 }),
			Entry("NaN dt", func(c *sim.Config, _ *sim.State) { c.Dt = math.NaN() }),
			Entry("zero max time", func(c *sim.Config, _ *sim.State) { c.MaxTime = 0 }),
			Entry("negative max time", func(c *sim.Config, _ *sim.State) { c.MaxTime = -2 }),
			Entry("step count beyond int range", func(c *sim.Config, _ *sim.State) { c.Dt, c.MaxTime = 1e-300, 1 }),
			Entry("negative sample stride", func(c *sim.Config, _ *sim.State) { c.SampleEvery = -1 }),
			Entry("negative softening", func(c *sim.Config, _ *sim.State) { c.Physics.Softening = -1 }),
			Entry("empty system", func(_ *sim.Config, s *sim.State) { *s = sim.NewState(0) }),
			Entry("mismatched state", func(_ *sim.Config, s *sim.State) { s.Vel = s.Vel[:3] }),
		)

		It("rejects a non-finite initial state", func() {
			state := initcond.Uniform(4, 1.0, 1)
			state.Pos[2] = vector.New(math.Inf(1), 0, 0)
			_, err := simulator.Run(ctx, state, baseConfig(2, 1.0, 2.0))
			Expect(err).To(MatchError(sim.ErrInvalidState))
		})
	})

	Describe("failures during the run", func() {
		It("aborts every worker and returns no trajectory", func() {
			state := sim.NewState(4)
			state.Pos[0] = vector.New(0, 0, 0)
			state.Pos[1] = vector.New(1, 0, 0)
			state.Pos[2] = vector.New(2, 0, 0)
			state.Pos[3] = vector.New(3, 0, 0)
			state.Vel[3] = vector.New(math.MaxFloat64, 0, 0)

			res, err := simulator.Run(ctx, state, baseConfig(2, 10.0, 100.0))
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(sim.ErrInvalidState))

			var serr *sim.SimulationError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Worker).To(Equal(1))
			Expect(serr.Step).To(Equal(1))
		})

		It("stops on context cancellation", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			res, err := simulator.Run(cctx, initcond.Uniform(8, 1.0, 1), baseConfig(4, 1.0, 1000.0))
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(sim.ErrCanceled))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})
})
