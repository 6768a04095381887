package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/critters/components"
)

// TraitSummary aggregates one trait over the survivors of a species.
type TraitSummary struct {
	Name   string
	Mean   float64
	StdDev float64
}

// SpeciesSummary aggregates the survivors of one species.
type SpeciesSummary struct {
	Species        string
	Count          int
	MeanGeneration float64
	MeanEnergy     float64 // fraction of max energy
	Traits         []TraitSummary
}

// Report aggregates mean trait values per species among survivors, in
// species registration order. Species without survivors are omitted.
func (w *World) Report() []SpeciesSummary {
	agents := w.AllAgents()
	bySpecies := make(map[string][]Agent, len(w.species))
	for _, a := range agents {
		bySpecies[a.Species] = append(bySpecies[a.Species], a)
	}

	var out []SpeciesSummary
	for _, sp := range w.species {
		members := bySpecies[sp.Name]
		if len(members) == 0 {
			continue
		}
		gens := make([]float64, len(members))
		energy := make([]float64, len(members))
		for i, a := range members {
			gens[i] = float64(a.Generation)
			if a.MaxEnergy > 0 {
				energy[i] = a.Energy / a.MaxEnergy
			}
		}
		summary := SpeciesSummary{
			Species:        sp.Name,
			Count:          len(members),
			MeanGeneration: stat.Mean(gens, nil),
			MeanEnergy:     stat.Mean(energy, nil),
		}

		vals := make([]float64, len(members))
		for _, name := range sp.Traits.Names() {
			for i, a := range members {
				vals[i] = a.Trait(name)
			}
			mean, std := stat.MeanStdDev(vals, nil)
			if len(vals) < 2 || math.IsNaN(std) {
				std = 0
			}
			summary.Traits = append(summary.Traits, TraitSummary{Name: name, Mean: mean, StdDev: std})
		}
		out = append(out, summary)
	}
	return out
}

// CheckInvariants verifies the spatial indexes, energy and food bounds and
// the population accounting. Every violation is reported.
func (w *World) CheckInvariants() error {
	var errs []error
	locate := func(e ecs.Entity) (float64, float64) {
		p := w.posMap.Get(e)
		return p.X, p.Y
	}
	if err := w.critterGrid.Audit(locate); err != nil {
		errs = append(errs, fmt.Errorf("critter index: %w", err))
	}
	if err := w.foodGrid.Audit(locate); err != nil {
		errs = append(errs, fmt.Errorf("food index: %w", err))
	}

	critters := 0
	cq := w.critterFilter.Query()
	for cq.Next() {
		critters++
		_, vit, org, _, _, gest, _ := cq.Get()
		if math.IsNaN(vit.Energy) || vit.Energy < 0 || vit.Energy > vit.MaxEnergy {
			errs = append(errs, fmt.Errorf("critter %d: energy %v outside [0, %v]", org.ID, vit.Energy, vit.MaxEnergy))
		}
		if gest.Active != (len(gest.Pending) > 0) {
			errs = append(errs, fmt.Errorf("critter %d: gestating=%v with %d pending", org.ID, gest.Active, len(gest.Pending)))
		}
	}
	if critters != w.critterGrid.Len() {
		errs = append(errs, fmt.Errorf("%d critters stored, %d indexed", critters, w.critterGrid.Len()))
	}

	food := 0
	fq := w.foodFilter.Query()
	for fq.Next() {
		food++
		_, f := fq.Get()
		if f.Amount < 0 || math.IsNaN(f.Amount) {
			errs = append(errs, fmt.Errorf("food %v: negative amount %v", fq.Entity(), f.Amount))
		}
	}
	if food != w.foodGrid.Len() {
		errs = append(errs, fmt.Errorf("%d food items stored, %d indexed", food, w.foodGrid.Len()))
	}

	if alive := w.totals.Alive(); alive != critters {
		errs = append(errs, fmt.Errorf("created %d - deaths %d = %d, but %d alive",
			w.totals.Created, w.totals.Starved+w.totals.OldAge+w.totals.Predation, alive, critters))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvariant, errors.Join(errs...))
}

// causes lists every death cause in reporting order.
var causes = []components.Cause{components.CauseStarved, components.CauseOldAge, components.CausePredation}

// DeathsBy returns the run-wide count for one cause.
func (t Totals) DeathsBy(c components.Cause) int {
	switch c {
	case components.CauseStarved:
		return t.Starved
	case components.CauseOldAge:
		return t.OldAge
	case components.CausePredation:
		return t.Predation
	}
	return 0
}

// Causes returns every death cause in reporting order.
func Causes() []components.Cause {
	return append([]components.Cause(nil), causes...)
}
