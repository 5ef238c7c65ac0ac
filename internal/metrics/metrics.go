// Package metrics computes conservation diagnostics over recorded frames.
package metrics

import (
	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/trajectory"
)

type Metric interface {
	Name() string
	Observe(f trajectory.Frame)
	Value() float64
	Reset()
}

// Defaults returns the metrics recorded with every stored run.
func Defaults(p physics.Params) []Metric {
	return []Metric{
		NewEnergy(p),
		NewEnergyDrift(p),
		NewMomentumDrift(),
		NewContainment(p.BoxLength, p.BoxLength),
	}
}

// Evaluate feeds every frame to every metric, after resetting them, and
// returns the values by name.
func Evaluate(frames []trajectory.Frame, ms ...Metric) map[string]float64 {
	for _, m := range ms {
		m.Reset()
	}
	for _, f := range frames {
		for _, m := range ms {
			m.Observe(f)
		}
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// Series holds per-frame diagnostics, one entry per frame.
type Series struct {
	Times     []float64
	Kinetic   []float64
	Potential []float64
	Total     []float64
	Momentum  []float64
}

func NewSeries(frames []trajectory.Frame, p physics.Params) Series {
	s := Series{
		Times:     make([]float64, len(frames)),
		Kinetic:   make([]float64, len(frames)),
		Potential: make([]float64, len(frames)),
		Total:     make([]float64, len(frames)),
		Momentum:  make([]float64, len(frames)),
	}
	for i, f := range frames {
		s.Times[i] = f.Time
		s.Kinetic[i] = KineticEnergy(f.State)
		s.Potential[i] = PotentialEnergy(f.State, p)
		s.Total[i] = s.Kinetic[i] + s.Potential[i]
		s.Momentum[i] = Momentum(f.State).Mag()
	}
	return s
}

func (s Series) Len() int { return len(s.Times) }
