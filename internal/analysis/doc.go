// Package analysis provides post-run analysis of recorded trajectories.
//
//   - [PowerSpectrum]: spectrum of a uniformly sampled series, such as the
//     total energy per frame
//   - [Divergence]: growth rate of the separation between two runs started
//     from nearby states
//   - [NewPhasePortrait]: position against velocity for one particle
//
// # Chaos Detection
//
// A positive divergence rate means nearby initial states separate
// exponentially:
//
//	d, err := analysis.Divergence(base.Trajectory, perturbed.Trajectory)
//	if err == nil && d.Rate > 0 {
//	    // chaotic over this horizon
//	}
package analysis
