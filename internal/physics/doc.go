// Package physics provides the exact pairwise gravity kernel used by the
// integrators.
//
// Particles have unit mass. The force law is softened so that close encounters
// stay bounded:
//
//	a_i = sum_{j != i} G (x_j - x_i) / ((|x_j - x_i|^2 + eps^2) |x_j - x_i|)
//
// [Gravity] evaluates the sum for a contiguous range of target particles
// against the whole system, which is what each worker of the threaded engine
// needs:
//
//	acc := make([]vector.Vector3, length)
//	physics.Gravity(positions, offset, acc, physics.DefaultParams())
//
// The cost is O(len(acc) * len(pos)) per call.
package physics
