package integrators

import (
	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/vector"
)

// Euler is the sequential form of the threaded engine's update: positions
// move with the old velocities, then velocities take the accelerations of
// the old positions.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(s sim.State, acc []vector.Vector3, dt float64, p physics.Params) {
	physics.Gravity(s.Pos, 0, acc, p)
	for i := range s.Pos {
		s.Pos[i] = s.Pos[i].Add(s.Vel[i].Scale(dt))
	}
	for i := range s.Vel {
		s.Vel[i] = s.Vel[i].Add(acc[i].Scale(dt))
	}
}
