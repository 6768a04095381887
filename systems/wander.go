package systems

import (
	"math"
	"math/rand"
)

// VonMises draws an angle from a von Mises distribution with mean mu and
// concentration kappa, returned in [-π, π]. kappa near zero is uniform; large
// kappa approaches a wrapped normal with variance 1/kappa.
//
// Sampling follows Best & Fisher (1979).
func VonMises(rng *rand.Rand, mu, kappa float64) float64 {
	if kappa < 1e-8 {
		return math.Pi * (2*rng.Float64() - 1)
	}
	if kappa > 1e6 {
		return wrapSigned(mu + math.Sqrt(1/kappa)*rng.NormFloat64())
	}

	var s float64
	if kappa < 1e-5 {
		s = 0.5 / kappa
	} else {
		r := 1 + math.Sqrt(1+4*kappa*kappa)
		rho := (r - math.Sqrt(2*r)) / (2 * kappa)
		s = (1 + rho*rho) / (2 * rho)
	}

	var w float64
	for {
		u := rng.Float64()
		z := math.Cos(math.Pi * u)
		w = (1 + s*z) / (s + z)
		y := kappa * (s - w)
		v := rng.Float64()
		if y*(2-y)-v >= 0 || math.Log(y/v)+1-y >= 0 {
			break
		}
	}

	result := math.Acos(Clamp(w, -1, 1))
	if rng.Float64() < 0.5 {
		result = -result
	}
	return wrapSigned(result + mu)
}

// wrapSigned maps an angle to [-π, π).
func wrapSigned(phi float64) float64 {
	phi = WrapAngle(phi + math.Pi)
	return phi - math.Pi
}

// WanderHeading continues a correlated random walk: the new heading is the
// last heading perturbed by von Mises noise of concentration faith.
func WanderHeading(rng *rand.Rand, last, faith float64) float64 {
	return VonMises(rng, last, math.Max(faith, 0))
}
