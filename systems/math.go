package systems

import "math"

const twoPi = 2 * math.Pi

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Distance returns the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// CartesianToPolar converts a vector to (rho, phi) with phi in (-π, π].
func CartesianToPolar(x, y float64) (rho, phi float64) {
	return math.Hypot(x, y), math.Atan2(y, x)
}

// PolarToCartesian converts (rho, phi) to a vector.
func PolarToCartesian(rho, phi float64) (x, y float64) {
	return rho * math.Cos(phi), rho * math.Sin(phi)
}

// RelativeBearing returns the angle of the vector from (x1, y1) to (x2, y2).
func RelativeBearing(x1, y1, x2, y2 float64) float64 {
	return math.Atan2(y2-y1, x2-x1)
}

// RelativePolar returns distance and bearing from (x1, y1) to (x2, y2).
func RelativePolar(x1, y1, x2, y2 float64) (rho, phi float64) {
	return CartesianToPolar(x2-x1, y2-y1)
}

// WrapAngle normalizes phi to [0, 2π).
func WrapAngle(phi float64) float64 {
	phi = math.Mod(phi, twoPi)
	if phi < 0 {
		phi += twoPi
	}
	// Mod of a tiny negative can round up to exactly 2π.
	if phi >= twoPi {
		phi = 0
	}
	return phi
}

// AngularDifference returns the unsigned angle between two bearings, in [0, π].
func AngularDifference(phi, psi float64) float64 {
	d := WrapAngle(phi - psi)
	if d > math.Pi {
		d = twoPi - d
	}
	return d
}
