// Package traits defines heritable critter parameters and their variation operators.
package traits

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Trait names the engine reads directly. Species may declare additional traits;
// those are inherited and mutated like any other but have no built-in meaning.
const (
	PerCritter            = "per_critter"            // perception radius for other critters
	PerFood               = "per_food"               // perception radius for food
	WanderEffort          = "wander_effort"          // fraction of max speed used while wandering
	WanderFaith           = "wander_faith"           // von Mises concentration around the last heading
	Mass                  = "mass"                   // drives every derived biological constant
	ReproductionThreshold = "reproduction_threshold" // energy fraction required to reproduce
	EnergyInheritance     = "energy_inheritance"     // fraction of max energy donated to each child
	FleeRange             = "flee_range"             // threats nearer than this trigger an immediate flee

	WeightFood       = "behav_weight_food"
	WeightWander     = "behav_weight_wander"
	WeightFlee       = "behav_weight_flee"
	WeightMate       = "behav_weight_mate"
	WeightPredator   = "behav_weight_predator"
	WeightCompetitor = "behav_weight_competitor"

	NavAngleFood    = "nav_angleoffset_food"
	NavDistanceFood = "nav_distance_food"
	NavAngleMate    = "nav_angleoffset_mate"
	NavDistanceMate = "nav_distance_mate"
	NavAnglePred    = "nav_angleoffset_pred"
	NavDistancePred = "nav_distance_pred"
)

// NavConstants lists the divisors of the desirability field. They must be > 0.
var NavConstants = []string{
	NavAngleFood, NavDistanceFood,
	NavAngleMate, NavDistanceMate,
	NavAnglePred, NavDistancePred,
}

// Set maps trait names to values.
type Set map[string]float64

// Get returns the value of a trait and whether it is present.
func (s Set) Get(name string) (float64, bool) {
	v, ok := s[name]
	return v, ok
}

// Value returns the value of a trait, or 0 if the set does not carry it.
func (s Set) Value(name string) float64 {
	return s[name]
}

// Names returns the trait names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copy returns an independent copy of the set.
func (s Set) Copy() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SameNames reports whether both sets carry exactly the same trait names.
func (s Set) SameNames(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for name := range s {
		if _, ok := other[name]; !ok {
			return false
		}
	}
	return true
}

// Bounds is an inclusive clamp range for a trait.
type Bounds struct {
	Lower, Upper float64
}

// Clamp limits v to the bounds.
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Lower, math.Min(b.Upper, v))
}

// Contains reports whether v lies within the bounds.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Spec describes how a species' traits vary between generations.
type Spec struct {
	// Mutability holds the coefficient of variation (SD/mean) per trait.
	Mutability map[string]float64
	// DefaultCV applies to traits without an entry in Mutability.
	DefaultCV float64
	// Limits holds optional clamp ranges.
	Limits map[string]Bounds
}

// CV returns the coefficient of variation for a trait.
func (sp Spec) CV(name string) float64 {
	if cv, ok := sp.Mutability[name]; ok {
		return cv
	}
	return sp.DefaultCV
}

// Validate checks that the bounds and CVs fit the given starting traits.
func (sp Spec) Validate(defaults Set) error {
	if sp.DefaultCV < 0 {
		return fmt.Errorf("default cv %v is negative", sp.DefaultCV)
	}
	for name, cv := range sp.Mutability {
		if cv < 0 || math.IsNaN(cv) {
			return fmt.Errorf("trait %q: cv %v is negative", name, cv)
		}
	}
	for name, b := range sp.Limits {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || b.Lower > b.Upper {
			return fmt.Errorf("trait %q: bounds [%v, %v] are unsatisfiable", name, b.Lower, b.Upper)
		}
		v, ok := defaults[name]
		if !ok {
			continue
		}
		if !b.Contains(v) {
			return fmt.Errorf("trait %q: starting value %v outside bounds [%v, %v]", name, v, b.Lower, b.Upper)
		}
	}
	return nil
}

// sample draws one mutated value around mu and clamps it.
func (sp Spec) sample(rng *rand.Rand, name string, mu float64) float64 {
	cv := sp.CV(name)
	v := mu
	if cv > 0 {
		v = mu + rng.NormFloat64()*math.Abs(mu)*cv
	}
	if b, ok := sp.Limits[name]; ok {
		v = b.Clamp(v)
	}
	return v
}

// CloneTraits produces an asexual child's traits: each value is drawn from a
// Gaussian around the parent's value with SD = value × CV, then clamped.
func CloneTraits(rng *rand.Rand, parent Set, spec Spec) Set {
	child := make(Set, len(parent))
	for _, name := range parent.Names() {
		child[name] = spec.sample(rng, name, parent[name])
	}
	return child
}

// CombineTraits produces a sexual child's traits. A uniformly random half of
// the trait names (floor(n/2)) takes its mean from a, the rest from b; each value
// then mutates as in CloneTraits. Names missing from b fall back to a.
func CombineTraits(rng *rand.Rand, a, b Set, spec Spec) Set {
	names := a.Names()
	fromA := make(map[string]bool, len(names)/2)
	for _, idx := range rng.Perm(len(names))[:len(names)/2] {
		fromA[names[idx]] = true
	}

	child := make(Set, len(names))
	for _, name := range names {
		mu := a[name]
		if !fromA[name] {
			if v, ok := b[name]; ok {
				mu = v
			}
		}
		child[name] = spec.sample(rng, name, mu)
	}
	return child
}

// Merge layers override on top of base and returns the result. Neither input
// is modified.
func Merge(base, override Set) Set {
	out := base.Copy()
	for k, v := range override {
		out[k] = v
	}
	return out
}

// MergeSpec layers override on top of base. A zero DefaultCV in override
// keeps the base value.
func MergeSpec(base, override Spec) Spec {
	out := Spec{
		Mutability: make(map[string]float64, len(base.Mutability)+len(override.Mutability)),
		DefaultCV:  base.DefaultCV,
		Limits:     make(map[string]Bounds, len(base.Limits)+len(override.Limits)),
	}
	for k, v := range base.Mutability {
		out.Mutability[k] = v
	}
	for k, v := range override.Mutability {
		out.Mutability[k] = v
	}
	for k, v := range base.Limits {
		out.Limits[k] = v
	}
	for k, v := range override.Limits {
		out.Limits[k] = v
	}
	if override.DefaultCV != 0 {
		out.DefaultCV = override.DefaultCV
	}
	return out
}
