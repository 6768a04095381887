package components

import "github.com/mlange-42/ark/ecs"

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Sighting is one entity seen from a critter, in polar coordinates.
type Sighting struct {
	Entity  ecs.Entity
	Dist    float64
	Bearing float64 // radians, (-π, π]
}

// Perception caches what a critter saw, keyed by the tick it was computed on.
// A tick of -1 means the cache is empty.
type Perception struct {
	CrittersTick int
	Critters     []Sighting // sorted by distance, self excluded
	FoodTick     int
	Food         []Sighting // sorted by distance
}

// NewPerception returns an empty cache.
func NewPerception() Perception {
	return Perception{CrittersTick: -1, FoodTick: -1}
}

// Wipe drops both caches.
func (p *Perception) Wipe() {
	p.CrittersTick = -1
	p.Critters = nil
	p.FoodTick = -1
	p.Food = nil
}
