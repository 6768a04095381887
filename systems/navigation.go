package systems

import "math"

const minFieldDenominator = 1e-9

// Nav holds the normalizing divisors of the desirability field. Both must be > 0.
type Nav struct {
	Angle    float64
	Distance float64
}

// Valid reports whether both divisors are positive.
func (n Nav) Valid() bool {
	return n.Angle > 0 && n.Distance > 0
}

// Attractor is one entity contributing to the desirability field. Positive
// values pull, negative values repel.
type Attractor struct {
	Dist    float64
	Bearing float64
	Value   float64
	Nav     Nav
}

// Pull is the attractor's contribution to a candidate heading:
// value / (angular offset / nav angle + distance / nav distance).
func (a Attractor) Pull(heading float64) float64 {
	denom := AngularDifference(heading, a.Bearing)/a.Nav.Angle + a.Dist/a.Nav.Distance
	return a.Value / math.Max(denom, minFieldDenominator)
}

// Desirability sums the field at a heading.
func Desirability(heading float64, field []Attractor) float64 {
	var sum float64
	for _, a := range field {
		sum += a.Pull(heading)
	}
	return sum
}

// BestCandidate evaluates the field along the bearing of every candidate and
// returns the index of the highest positive score. It returns -1 if no
// candidate scores above zero. Ties keep the earlier candidate.
func BestCandidate(candidates, field []Attractor) (int, float64) {
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		score := Desirability(c.Bearing, field)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// ApproachSpeed is how far to move toward a target: up to its edge of reach,
// never beyond maxSpeed, never negative.
func ApproachSpeed(dist, reach, maxSpeed float64) float64 {
	return Clamp(dist-reach, 0, maxSpeed)
}
