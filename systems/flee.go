package systems

import "math"

const (
	// FleeShrink scales every danger arc when no safe direction remains.
	FleeShrink = 0.8
	// MaxFleeIterations bounds the shrink loop before falling back.
	MaxFleeIterations = 50

	minThreatDist = 1e-3
	arcMargin     = 1e-6
)

// Threat is a visible danger in polar coordinates from the fleeing critter.
type Threat struct {
	Dist    float64
	Bearing float64
	Danger  float64
}

// DangerArcs returns the arcs each threat excludes at the given scale. Half
// the width of each arc is scale × danger / dist^1.5.
func DangerArcs(threats []Threat, scale float64) []Arc {
	arcs := make([]Arc, 0, len(threats))
	for _, t := range threats {
		half := scale * halfWidth(t)
		arcs = append(arcs, Arc{t.Bearing - half, t.Bearing + half})
	}
	return arcs
}

func halfWidth(t Threat) float64 {
	d := math.Max(t.Dist, minThreatDist)
	return math.Max(t.Danger, 0) / math.Pow(d, 1.5)
}

// FleeHeading picks the midpoint of the widest direction not covered by any
// danger arc. Arcs shrink by FleeShrink until a safe direction appears. If
// none appears within MaxFleeIterations, the heading points straight away from
// the nearest threat and fallback is true. ok is false when threats is empty.
func FleeHeading(threats []Threat) (heading float64, fallback, ok bool) {
	return fleeHeading(threats, MaxFleeIterations)
}

func fleeHeading(threats []Threat, maxIter int) (heading float64, fallback, ok bool) {
	if len(threats) == 0 {
		return 0, false, false
	}

	// No single arc may cover the whole circle on its own.
	scale := 1.0
	biggest := 0.0
	for _, t := range threats {
		biggest = math.Max(biggest, halfWidth(t))
	}
	if math.IsInf(biggest, 1) || math.IsNaN(biggest) {
		maxIter = 0
	} else if biggest >= math.Pi {
		scale = (math.Pi - arcMargin) / biggest
	}

	for i := 0; i < maxIter; i++ {
		if safe, found := Widest(UncoveredArcs(DangerArcs(threats, scale))); found {
			return safe.Mid(), false, true
		}
		scale *= FleeShrink
	}

	nearest := threats[0]
	for _, t := range threats[1:] {
		if t.Dist < nearest.Dist {
			nearest = t
		}
	}
	return WrapAngle(nearest.Bearing + math.Pi), true, true
}
