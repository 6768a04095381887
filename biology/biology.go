// Package biology maps a critter's physical traits to its derived capacities.
//
// Every formula lives behind the Assumptions interface so a species can swap
// in a different model without touching the decision engine.
package biology

import (
	"fmt"
	"math"
	"sort"
)

// ReferenceResolution is the time resolution at which the coefficients below
// were calibrated. Per-tick quantities scale by TimeResolution/ReferenceResolution.
const ReferenceResolution = 10.0

// Assumptions derives biological constants from mass and lifespan.
type Assumptions interface {
	// Reach is the interaction distance, derived from body length.
	Reach(mass float64) float64
	// MaxSpeed is the furthest a critter can travel in one tick.
	MaxSpeed(mass float64) float64
	// MaxEnergy is the energy storage capacity.
	MaxEnergy(mass float64) float64
	// MetabolicUpkeep is the energy burned every tick just for existing.
	MetabolicUpkeep(mass float64) float64
	// MoveCost is the energy spent travelling dist in one tick.
	MoveCost(mass, dist float64) float64
	// ReproductionCost is paid up front when committing to a pregnancy.
	ReproductionCost(maxEnergy float64) float64
	// AdultAge is the age in ticks after which a critter may reproduce.
	AdultAge(maxAge int) int
	// GestationTicks is the delay between conception and birth.
	GestationTicks(maxAge int) int
}

// Kleiber is the default model: allometric upkeep (mass^3/4), a speed curve
// peaking at mid-sized animals and linear storage and movement costs.
type Kleiber struct {
	TimeResolution float64 `yaml:"time_resolution"`
	ReferenceMass  float64 `yaml:"reference_mass"`  // mass with the highest relative speed
	ReachFactor    float64 `yaml:"reach_factor"`    // reach = factor × mass^(1/3)
	EnergyPerMass  float64 `yaml:"energy_per_mass"` // max energy = factor × mass
	UpkeepFactor   float64 `yaml:"upkeep_factor"`   // upkeep = factor × mass^(3/4)
	MoveFactor     float64 `yaml:"move_factor"`     // move cost = factor × mass × distance
	ReproFraction  float64 `yaml:"repro_fraction"`  // of max energy
	AdultFraction  float64 `yaml:"adult_fraction"`  // of max age
	GestationShare float64 `yaml:"gestation_share"` // of max age
}

// DefaultKleiber returns the standard coefficients at the given time resolution.
func DefaultKleiber(timeResolution float64) Kleiber {
	return Kleiber{
		TimeResolution: timeResolution,
		ReferenceMass:  35,
		ReachFactor:    0.5,
		EnergyPerMass:  1.5,
		UpkeepFactor:   0.15,
		MoveFactor:     0.03,
		ReproFraction:  0.1,
		AdultFraction:  0.2,
		GestationShare: 0.05,
	}
}

func (k Kleiber) timeScale() float64 {
	if k.TimeResolution <= 0 {
		return 1
	}
	return k.TimeResolution / ReferenceResolution
}

func (k Kleiber) Reach(mass float64) float64 {
	return k.ReachFactor * math.Cbrt(math.Max(mass, 0))
}

// MaxSpeed follows a cubic in log10(mass/reference) that rises, peaks just
// above the reference mass and falls off for heavy bodies. 1 kg ≈ 35 mass
// units, 50 km/h ≈ 10 speed units.
func (k Kleiber) MaxSpeed(mass float64) float64 {
	if mass <= 0 {
		return 0
	}
	x := math.Log10(mass / k.ReferenceMass)
	v := (-2.0/27)*x*x*x - (1.0/3)*x*x + (17.0/9)*x + 220.0/27
	return math.Max(v, 0) * k.timeScale()
}

func (k Kleiber) MaxEnergy(mass float64) float64 {
	return k.EnergyPerMass * mass
}

func (k Kleiber) MetabolicUpkeep(mass float64) float64 {
	return k.UpkeepFactor * math.Pow(math.Max(mass, 0), 0.75) * k.timeScale()
}

func (k Kleiber) MoveCost(mass, dist float64) float64 {
	return k.MoveFactor * mass * dist
}

func (k Kleiber) ReproductionCost(maxEnergy float64) float64 {
	return k.ReproFraction * maxEnergy
}

func (k Kleiber) AdultAge(maxAge int) int {
	return int(k.AdultFraction * float64(maxAge))
}

func (k Kleiber) GestationTicks(maxAge int) int {
	n := int(math.Round(k.GestationShare * float64(maxAge)))
	if n < 1 {
		n = 1
	}
	return n
}

// Frugal scaling relative to the base Kleiber coefficients.
const (
	frugalUpkeepScale = 0.5
	frugalMoveScale   = 10.0 / 3
)

// Frugal is a low-metabolism variant: half the upkeep of Kleiber but
// movement is more than three times as expensive.
type Frugal struct {
	Kleiber
}

// NewFrugal wraps the given base model.
func NewFrugal(base Kleiber) Frugal {
	return Frugal{Kleiber: base}
}

func (f Frugal) MetabolicUpkeep(mass float64) float64 {
	return frugalUpkeepScale * f.Kleiber.MetabolicUpkeep(mass)
}

func (f Frugal) MoveCost(mass, dist float64) float64 {
	return frugalMoveScale * f.Kleiber.MoveCost(mass, dist)
}

// Factory builds an Assumptions from a base Kleiber parameter set.
type Factory func(base Kleiber) Assumptions

var registry = map[string]Factory{
	"kleiber": func(base Kleiber) Assumptions { return base },
	"frugal":  func(base Kleiber) Assumptions { return NewFrugal(base) },
}

// Lookup builds the named model. An empty name selects "kleiber".
func Lookup(name string, base Kleiber) (Assumptions, error) {
	if name == "" {
		name = "kleiber"
	}
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown biology profile %q (known: %v)", name, Names())
	}
	return f(base), nil
}

// Names returns the registered model names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
