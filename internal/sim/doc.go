// Package sim is the parallel time-integration engine.
//
// The particle index space is split into one contiguous slice per worker
// goroutine. Workers share the position array and own their slice of the
// velocities, a private acceleration buffer and a private sample buffer.
// Each Euler step is a two-phase protocol on a reusable barrier:
//
//	await  -> compute forces for own slice, reading every position
//	await  -> advance own positions and velocities
//
// so reads of the shared positions and writes to them never overlap.
//
// # Example
//
//	state := initcond.Uniform(1024, 1.0, 25)
//	cfg := sim.DefaultConfig(state.Len())
//	res, err := sim.New(sim.WithLogger(logger)).Run(ctx, state, cfg)
//
// # Failure
//
// A worker that fails (invalid state, panic, canceled context) cancels the
// run. The shared context is canceled, which releases every worker waiting
// on the barrier, and no partial trajectory is returned.
package sim
