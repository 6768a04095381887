package components

import (
	"github.com/pthm-cable/critters/biology"
	"github.com/pthm-cable/critters/traits"
)

// Body holds constants derived once at birth from traits and biology.
type Body struct {
	Mass       float64
	Reach      float64 // interaction distance
	MaxSpeed   float64 // distance per tick
	MaxEnergy  float64
	Upkeep     float64 // energy burned per tick
	ReproCost  float64 // paid when committing to a pregnancy
	AdultAge   int
	Gestation  int // ticks from conception to birth
	PerCritter float64
	PerFood    float64
}

// DeriveBody computes a Body from traits using the given assumptions.
func DeriveBody(t traits.Set, maxAge int, bio biology.Assumptions) Body {
	mass := t.Value(traits.Mass)
	maxEnergy := bio.MaxEnergy(mass)
	return Body{
		Mass:       mass,
		Reach:      bio.Reach(mass),
		MaxSpeed:   bio.MaxSpeed(mass),
		MaxEnergy:  maxEnergy,
		Upkeep:     bio.MetabolicUpkeep(mass),
		ReproCost:  bio.ReproductionCost(maxEnergy),
		AdultAge:   bio.AdultAge(maxAge),
		Gestation:  bio.GestationTicks(maxAge),
		PerCritter: t.Value(traits.PerCritter),
		PerFood:    t.Value(traits.PerFood),
	}
}
