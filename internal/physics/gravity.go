package physics

import (
	"math"

	"github.com/san-kum/nbody/internal/vector"
)

const (
	// DefaultG is the gravitational constant in SI units.
	DefaultG = 6.67e-11
	// DefaultBoxLength is the reference box width L.
	DefaultBoxLength = 1.0
	// SofteningRatio scales the box length into the default softening length.
	SofteningRatio = 1e-3
)

// Params holds the physical constants of a run. Particles have unit mass.
type Params struct {
	G         float64 `yaml:"g" json:"g" mapstructure:"g"`
	BoxLength float64 `yaml:"box_length" json:"box_length" mapstructure:"box_length"`
	Softening float64 `yaml:"softening" json:"softening" mapstructure:"softening"`
}

func DefaultParams() Params {
	return Params{
		G:         DefaultG,
		BoxLength: DefaultBoxLength,
		Softening: SofteningRatio * DefaultBoxLength,
	}
}

// WithDefaults fills zero fields: G and BoxLength from the package defaults,
// Softening as SofteningRatio * BoxLength.
func (p Params) WithDefaults() Params {
	if p.G == 0 {
		p.G = DefaultG
	}
	if p.BoxLength == 0 {
		p.BoxLength = DefaultBoxLength
	}
	if p.Softening == 0 {
		p.Softening = SofteningRatio * p.BoxLength
	}
	return p
}

// Pairwise returns the acceleration on a particle at pi due to a unit mass at pj:
//
//	G * r / ((|r|^2 + eps^2) * |r|),  r = pj - pi
//
// Coincident particles exert no force on each other. Pairwise(a, b) is the exact
// negation of Pairwise(b, a).
func Pairwise(pi, pj vector.Vector3, p Params) vector.Vector3 {
	r := pj.Sub(pi)
	r2 := r.Mag2()
	if r2 == 0 {
		return vector.Vector3{}
	}
	den := (r2 + p.Softening*p.Softening) * math.Sqrt(r2)
	return r.Scale(p.G / den)
}

// PairPotential is the potential energy of two unit masses a distance r
// apart under the Pairwise force, zero at infinity:
//
//	-(G / eps) * atan(eps / r)
//
// which tends to -G/r as eps goes to zero. It is continuous at r = 0, where
// it takes its limit -(G / eps) * pi/2. Without softening a coincident pair
// contributes nothing, matching the zero force Pairwise gives it.
func PairPotential(r float64, p Params) float64 {
	if p.Softening == 0 {
		if r == 0 {
			return 0
		}
		return -p.G / r
	}
	if r == 0 {
		return -p.G / p.Softening * math.Pi / 2
	}
	return -p.G / p.Softening * math.Atan(p.Softening/r)
}

// Gravity overwrites acc[k] with the acceleration of particle offset+k due to
// every other particle in pos. Only acc is written.
func Gravity(pos []vector.Vector3, offset int, acc []vector.Vector3, p Params) {
	for k := range acc {
		i := offset + k
		pi := pos[i]
		var a vector.Vector3
		for j := range pos {
			if j == i {
				continue
			}
			a = a.Add(Pairwise(pi, pos[j], p))
		}
		acc[k] = a
	}
}

// CharacteristicTime is the free-fall scale sqrt(L^3 / (G n)) of n unit masses
// spread over a box of width L.
func CharacteristicTime(n int, boxLength, g float64) float64 {
	if n <= 0 || g <= 0 {
		return 0
	}
	return math.Sqrt(boxLength * boxLength * boxLength / (g * float64(n)))
}
