package integrators

import (
	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/vector"
)

// Leapfrog is kick-drift-kick. It costs two force passes per step and is
// symplectic, so energy errors stay bounded instead of growing.
type Leapfrog struct{}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Name() string { return "leapfrog" }

func (l *Leapfrog) Step(s sim.State, acc []vector.Vector3, dt float64, p physics.Params) {
	halfDt := 0.5 * dt

	physics.Gravity(s.Pos, 0, acc, p)
	for i := range s.Vel {
		s.Vel[i] = s.Vel[i].Add(acc[i].Scale(halfDt))
	}
	for i := range s.Pos {
		s.Pos[i] = s.Pos[i].Add(s.Vel[i].Scale(dt))
	}

	physics.Gravity(s.Pos, 0, acc, p)
	for i := range s.Vel {
		s.Vel[i] = s.Vel[i].Add(acc[i].Scale(halfDt))
	}
}
