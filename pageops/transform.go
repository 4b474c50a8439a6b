package pageops

import "math"

// Matrix is a 2D affine transform in page space (y grows downwards):
//
//	x' = A*x + B*y + E
//	y' = C*x + D*y + F
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Rotation returns the rotation by degrees counter-clockwise as seen on the
// page. Its linear part is [cos sin; -sin cos].
func Rotation(degrees float64) Matrix {
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	return Matrix{A: cos, B: sin, C: -sin, D: cos}
}

// Scaling returns a scale transform.
func Scaling(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

// Translation returns a translation.
func Translation(tx, ty float64) Matrix {
	return Matrix{A: 1, D: 1, E: tx, F: ty}
}

// Apply transforms the point (x, y).
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.B*y + m.E, m.C*x + m.D*y + m.F
}

// Then returns the transform that applies m first and n second.
func (m Matrix) Then(n Matrix) Matrix {
	return Matrix{
		A: n.A*m.A + n.B*m.C,
		B: n.A*m.B + n.B*m.D,
		C: n.C*m.A + n.D*m.C,
		D: n.C*m.B + n.D*m.D,
		E: n.A*m.E + n.B*m.F + n.E,
		F: n.C*m.E + n.D*m.F + n.F,
	}
}

// RotationAbout returns the rotation by degrees about the point (cx, cy).
func RotationAbout(degrees, cx, cy float64) Matrix {
	return Translation(-cx, -cy).Then(Rotation(degrees)).Then(Translation(cx, cy))
}
