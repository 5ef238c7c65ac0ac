package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/trajectory"
)

var ErrMismatchedRuns = errors.New("analysis: trajectories do not cover the same frames")

// DivergenceResult describes how two runs separate. Separation[i] is the
// root of the summed squared position differences at Times[i].
type DivergenceResult struct {
	Times      []float64
	Separation []float64
	// Rate is the least-squares slope of ln(separation) against time, an
	// estimate of the largest Lyapunov exponent over the run.
	Rate float64
}

// Divergence compares two trajectories of the same system recorded with the
// same sampling, typically one started from a slightly perturbed state.
func Divergence(a, b sim.Trajectory) (DivergenceResult, error) {
	fa := trajectory.Frames(a)
	fb := trajectory.Frames(b)
	if len(fa) != len(fb) {
		return DivergenceResult{}, ErrMismatchedRuns
	}

	res := DivergenceResult{
		Times:      make([]float64, 0, len(fa)),
		Separation: make([]float64, 0, len(fa)),
	}
	logs := make([]float64, 0, len(fa))
	logTimes := make([]float64, 0, len(fa))

	for i := range fa {
		if fa[i].Time != fb[i].Time || fa[i].State.Len() != fb[i].State.Len() {
			return DivergenceResult{}, ErrMismatchedRuns
		}
		sep := 0.0
		for j := range fa[i].State.Pos {
			sep += fb[i].State.Pos[j].Sub(fa[i].State.Pos[j]).Mag2()
		}
		sep = math.Sqrt(sep)

		res.Times = append(res.Times, fa[i].Time)
		res.Separation = append(res.Separation, sep)
		if sep > 0 {
			logTimes = append(logTimes, fa[i].Time)
			logs = append(logs, math.Log(sep))
		}
	}

	if len(logs) >= 2 {
		_, res.Rate = stat.LinearRegression(logTimes, logs, nil, false)
	}
	return res, nil
}
