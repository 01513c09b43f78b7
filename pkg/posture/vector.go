package posture

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the norm below which a vector carries no direction.
const Epsilon = 1e-6

// Vertical is the upward reference axis in image coordinates (y grows downward).
var Vertical = r3.Vec{X: 0, Y: -1, Z: 0}

// AngleBetween returns the unsigned angle between v1 and v2 in degrees.
// A near-zero vector has no direction, so the result is 0.
func AngleBetween(v1, v2 r3.Vec) float64 {
	n1 := r3.Norm(v1)
	n2 := r3.Norm(v2)
	if n1 < Epsilon || n2 < Epsilon {
		return 0.0
	}

	cos := r3.Dot(r3.Scale(1/n1, v1), r3.Scale(1/n2, v2))
	cos = clip(cos, -1.0, 1.0)
	return math.Acos(cos) * 180.0 / math.Pi
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}

// clip restricts a value to a range.
func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
