package systems

import "sort"

// Behavior is a candidate action in a critter's decision loop.
type Behavior uint8

// Declaration order breaks ties between equal desires.
const (
	SeekFood Behavior = iota
	Wander
	Flee
	SeekMate
)

func (b Behavior) String() string {
	switch b {
	case SeekFood:
		return "seek_food"
	case Wander:
		return "wander"
	case Flee:
		return "flee"
	case SeekMate:
		return "seek_mate"
	default:
		return "unknown"
	}
}

// Desire scores one behavior for this tick.
type Desire struct {
	Behavior Behavior
	Score    float64
}

// Desires holds the inputs of the priority ordering.
type Desires struct {
	Hunger     float64 // unmet energy fraction
	AgeRatio   float64 // age / max age
	CanMate    bool    // adult and not gestating
	FoodWeight float64
	Wander     float64
	Flee       float64
	MateWeight float64
}

// Score returns the desire for each eligible behavior in declaration order.
func (d Desires) Score() []Desire {
	out := []Desire{
		{SeekFood, d.Hunger * d.FoodWeight},
		{Wander, d.Wander},
		{Flee, d.Flee},
	}
	if d.CanMate {
		out = append(out, Desire{SeekMate, d.AgeRatio * d.MateWeight})
	}
	return out
}

// Prioritize sorts desires by descending score. Equal scores keep their order.
func Prioritize(desires []Desire) []Behavior {
	sorted := make([]Desire, len(desires))
	copy(sorted, desires)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	out := make([]Behavior, len(sorted))
	for i, d := range sorted {
		out[i] = d.Behavior
	}
	return out
}
