// Package geometry holds the 2D point and projective transform types shared by
// calibration and painting.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrPerspectiveDegenerate is returned when a point maps to the line at
// infinity (homogeneous w == 0).
var ErrPerspectiveDegenerate = errors.New("perspective divide by zero")

// Point2D is a point in either sensor (camera pixel) or target (display or
// canvas pixel) space.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point2D{X: x, Y: y}.
func Pt(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

func (p Point2D) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}

// Transform is a 3x3 homogeneous matrix mapping sensor space to target space,
// stored row-major. A solved transform has M[2][2] == 1.
type Transform struct {
	M [3][3]float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{M: [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}}
}

// FromValues builds a transform from nine row-major values.
func FromValues(v [9]float64) Transform {
	var t Transform
	for i := range 9 {
		t.M[i/3][i%3] = v[i]
	}
	return t
}

// Values returns the nine row-major values.
func (t Transform) Values() [9]float64 {
	var v [9]float64
	for i := range 9 {
		v[i] = t.M[i/3][i%3]
	}
	return v
}

// Apply maps a sensor point into target space: r = M·[u v 1]ᵗ, then divides by
// r[2]. It fails with ErrPerspectiveDegenerate when r[2] is exactly zero.
func (t Transform) Apply(p Point2D) (Point2D, error) {
	m := t.M
	x := m[0][0]*p.X + m[0][1]*p.Y + m[0][2]
	y := m[1][0]*p.X + m[1][1]*p.Y + m[1][2]
	w := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]
	if w == 0 {
		return Point2D{}, ErrPerspectiveDegenerate
	}
	return Point2D{X: x / w, Y: y / w}, nil
}

func (t Transform) String() string {
	m := t.M
	return fmt.Sprintf("[[%g %g %g] [%g %g %g] [%g %g %g]]",
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2])
}
