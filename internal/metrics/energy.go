package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/trajectory"
	"github.com/san-kum/nbody/internal/vector"
)

// KineticEnergy of unit masses.
func KineticEnergy(s sim.State) float64 {
	terms := make([]float64, len(s.Vel))
	for i, v := range s.Vel {
		terms[i] = 0.5 * v.Mag2()
	}
	return floats.Sum(terms)
}

// PotentialEnergy sums physics.PairPotential over every unordered pair.
func PotentialEnergy(s sim.State, p physics.Params) float64 {
	n := len(s.Pos)
	if n < 2 {
		return 0
	}
	terms := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			terms = append(terms, physics.PairPotential(s.Pos[j].Sub(s.Pos[i]).Mag(), p))
		}
	}
	return floats.Sum(terms)
}

func TotalEnergy(s sim.State, p physics.Params) float64 {
	return KineticEnergy(s) + PotentialEnergy(s, p)
}

func Momentum(s sim.State) vector.Vector3 {
	var m vector.Vector3
	for _, v := range s.Vel {
		m = m.Add(v)
	}
	return m
}

type Energy struct {
	name    string
	params  physics.Params
	samples int
	total   float64
}

// NewEnergy averages the total energy over the observed frames.
func NewEnergy(p physics.Params) *Energy {
	return &Energy{name: "energy", params: p}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f trajectory.Frame) {
	e.total += TotalEnergy(f.State, e.params)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation of the total energy from its
// value in the first observed frame.
type EnergyDrift struct {
	name     string
	params   physics.Params
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(p physics.Params) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", params: p}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f trajectory.Frame) {
	energy := TotalEnergy(f.State, e.params)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// MomentumDrift is the largest distance of the total momentum from its value
// in the first observed frame. It is absolute: systems at rest start at zero.
type MomentumDrift struct {
	name     string
	initial  vector.Vector3
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(f trajectory.Frame) {
	p := Momentum(f.State)
	if m.samples == 0 {
		m.initial = p
	}
	m.samples++
	m.maxDrift = math.Max(m.maxDrift, p.Sub(m.initial).Mag())
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = vector.Vector3{}
	m.maxDrift = 0
	m.samples = 0
}
