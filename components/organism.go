package components

import "github.com/pthm-cable/critters/traits"

// Vitals tracks an entity's metabolic state and age.
type Vitals struct {
	Energy    float64 // absolute energy, kept in [0, MaxEnergy]
	MaxEnergy float64
	Age       int // ticks alive
	MaxAge    int // dies once Age exceeds this
}

// SetEnergy stores e clamped to [0, MaxEnergy].
func (v *Vitals) SetEnergy(e float64) {
	switch {
	case e > v.MaxEnergy:
		e = v.MaxEnergy
	case e < 0:
		e = 0
	}
	v.Energy = e
}

// AddEnergy changes energy by delta, clamped.
func (v *Vitals) AddEnergy(delta float64) {
	v.SetEnergy(v.Energy + delta)
}

// Deficit is the unmet storage capacity.
func (v *Vitals) Deficit() float64 {
	if v.Energy >= v.MaxEnergy {
		return 0
	}
	return v.MaxEnergy - v.Energy
}

// Hunger is the unmet energy fraction in [0, 1].
func (v *Vitals) Hunger() float64 {
	if v.MaxEnergy <= 0 || v.Energy >= v.MaxEnergy {
		return 0
	}
	return 1 - v.Energy/v.MaxEnergy
}

// Fullness is the stored energy fraction in [0, 1].
func (v *Vitals) Fullness() float64 {
	return 1 - v.Hunger()
}

// Organism bundles identity, lineage, and steering state.
type Organism struct {
	ID         uint32
	Species    uint8 // index into the world's species table
	Generation int
	BirthTick  int
	Heading    float64 // last movement direction, radians
	LastAction Action
}

// Genome holds the heritable traits, fixed at birth.
type Genome struct {
	Traits traits.Set
}

// Gestation tracks a pending pregnancy.
type Gestation struct {
	Active    bool
	Countdown int
	Pending   []traits.Set // offspring traits fixed at conception
}

// Clear ends the pregnancy.
func (g *Gestation) Clear() {
	g.Active = false
	g.Countdown = 0
	g.Pending = nil
}
