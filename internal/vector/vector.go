// Package vector provides the three-component value type used for particle
// positions, velocities and accelerations.
package vector

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vector3 is an immutable 3D vector. All operations return new values.
type Vector3 struct {
	X, Y, Z float64
}

func New(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

func (v Vector3) Add(w Vector3) Vector3 {
	return Vector3(r3.Add(r3.Vec(v), r3.Vec(w)))
}

func (v Vector3) Sub(w Vector3) Vector3 {
	return Vector3(r3.Sub(r3.Vec(v), r3.Vec(w)))
}

func (v Vector3) Scale(s float64) Vector3 {
	return Vector3(r3.Scale(s, r3.Vec(v)))
}

// Div divides every component by s. Like the scalar case, dividing by zero
// yields Inf or NaN components.
func (v Vector3) Div(s float64) Vector3 {
	return Vector3{X: v.X / s, Y: v.Y / s, Z: v.Z / s}
}

func (v Vector3) Neg() Vector3 {
	return Vector3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

func (v Vector3) Dot(w Vector3) float64 {
	return r3.Dot(r3.Vec(v), r3.Vec(w))
}

// Mag2 returns the squared magnitude.
func (v Vector3) Mag2() float64 {
	return r3.Norm2(r3.Vec(v))
}

func (v Vector3) Mag() float64 {
	return r3.Norm(r3.Vec(v))
}

func (v Vector3) IsFinite() bool {
	return !isBad(v.X) && !isBad(v.Y) && !isBad(v.Z)
}

func isBad(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
