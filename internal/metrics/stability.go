package metrics

import "github.com/san-kum/nbody/internal/trajectory"

// Containment is the fraction of frames in which every particle lies inside
// the box [-margin, L+margin]^3.
type Containment struct {
	name       string
	lo, hi     float64
	violations int
	samples    int
}

func NewContainment(boxLength, margin float64) *Containment {
	return &Containment{
		name: "containment",
		lo:   -margin,
		hi:   boxLength + margin,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(f trajectory.Frame) {
	c.samples++
	for _, p := range f.State.Pos {
		if c.outside(p.X) || c.outside(p.Y) || c.outside(p.Z) {
			c.violations++
			break
		}
	}
}

func (c *Containment) outside(v float64) bool {
	return v < c.lo || v > c.hi
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
