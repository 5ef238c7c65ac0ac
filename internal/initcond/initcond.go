// Package initcond builds initial particle states.
package initcond

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/vector"
)

// Uniform scatters n particles at rest uniformly over the cube [0, L)^3.
// The same seed always gives the same state.
func Uniform(n int, boxLength float64, seed int64) sim.State {
	s := sim.NewState(max(n, 0))
	rng := rand.New(rand.NewSource(uint64(seed)))
	for i := range s.Pos {
		s.Pos[i] = vector.New(
			boxLength*rng.Float64(),
			boxLength*rng.Float64(),
			boxLength*rng.Float64(),
		)
	}
	return s
}

// Lattice places n particles at rest on the cell centres of the smallest
// cubic grid with at least n cells, filling x first, then y, then z.
func Lattice(n int, boxLength float64) sim.State {
	s := sim.NewState(max(n, 0))
	if n <= 0 {
		return s
	}

	k := int(math.Round(math.Cbrt(float64(n))))
	for k*k*k < n {
		k++
	}
	coords := make([]float64, k)
	if k == 1 {
		coords[0] = boxLength / 2
	} else {
		half := boxLength / float64(2*k)
		floats.Span(coords, half, boxLength-half)
	}

	for i := range s.Pos {
		s.Pos[i] = vector.New(coords[i%k], coords[(i/k)%k], coords[i/(k*k)])
	}
	return s
}

// Pair returns two particles separation apart along x, centred in the box,
// moving in opposite directions along y with the given speed.
func Pair(boxLength, separation, speed float64) sim.State {
	s := sim.NewState(2)
	c := boxLength / 2
	s.Pos[0] = vector.New(c-separation/2, c, c)
	s.Pos[1] = vector.New(c+separation/2, c, c)
	s.Vel[0] = vector.New(0, speed, 0)
	s.Vel[1] = vector.New(0, -speed, 0)
	return s
}

// FigureEight returns the three-body choreography in which equal masses
// chase each other around a figure-eight in the z = L/2 plane. The orbit
// spans about half the box and its velocities are scaled for constant g.
// Softening perturbs it slightly.
func FigureEight(boxLength, g float64) sim.State {
	s := sim.NewState(3)
	scale := boxLength / 4
	v := math.Sqrt(g / scale)
	c := vector.New(boxLength/2, boxLength/2, boxLength/2)

	s.Pos[0] = c.Add(vector.New(-0.97000436, 0.24308753, 0).Scale(scale))
	s.Pos[1] = c.Add(vector.New(0.97000436, -0.24308753, 0).Scale(scale))
	s.Pos[2] = c
	s.Vel[0] = vector.New(0.46620368, 0.43236573, 0).Scale(v)
	s.Vel[1] = s.Vel[0]
	s.Vel[2] = vector.New(-0.93240737, -0.86473146, 0).Scale(v)
	return s
}
