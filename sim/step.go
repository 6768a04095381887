package sim

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/critters/components"
)

// Step advances the world by exactly one tick:
//  1. increment the tick and apply the abundance schedule
//  2. decay food and remove spoiled items
//  3. run every drop rule
//  4. shuffle all critters and let each take its turn
//  5. apply upkeep and resolve deaths after each turn
func (w *World) Step() {
	w.tick++
	w.stats = TickStats{Tick: w.tick}
	w.updateAbundance()

	w.decayFood()
	w.dropFood()

	// Snapshot first: turns create and remove entities.
	w.order = w.order[:0]
	query := w.critterFilter.Query()
	for query.Next() {
		w.order = append(w.order, query.Entity())
	}
	w.rng.Shuffle(len(w.order), func(i, j int) {
		w.order[i], w.order[j] = w.order[j], w.order[i]
	})

	for _, e := range w.order {
		act, err := w.TakeTurn(e)
		if err != nil {
			// Eaten earlier this tick.
			continue
		}
		w.stats.Actions[act]++
		w.afterTurn(e)
	}

	w.stats.Population = w.critterGrid.Len()
	w.stats.Food = w.foodGrid.Len()

	if w.debug {
		if err := w.CheckInvariants(); err != nil {
			panic(err)
		}
	}
}

// Run steps until maxTicks is reached, the population dies out or each
// returns false. maxTicks <= 0 runs without a limit. It returns the number
// of ticks run.
func (w *World) Run(maxTicks int, each func(*World) bool) int {
	n := 0
	for (maxTicks <= 0 || n < maxTicks) && w.PopulationCount() > 0 {
		w.Step()
		n++
		if each != nil && !each(w) {
			break
		}
	}
	return n
}

// afterTurn burns metabolic upkeep and removes the critter if it is too old
// or out of energy. Immortal critters stay young and fed.
func (w *World) afterTurn(e ecs.Entity) {
	_, vit, org, _, body, _, _ := w.critters.Get(e)
	if w.species[org.Species].Immortal {
		vit.Age = 0
		vit.SetEnergy(vit.MaxEnergy)
		return
	}

	vit.AddEnergy(-body.Upkeep)
	switch {
	case vit.Age > vit.MaxAge:
		w.kill(e, components.CauseOldAge)
	case vit.Energy <= 0:
		w.kill(e, components.CauseStarved)
	}
}

func (w *World) updateAbundance() {
	if w.abundanceEvery <= 0 || w.abundanceDecay == 0 || w.tick%w.abundanceEvery != 0 {
		return
	}
	w.abundance = math.Max(w.abundance-w.abundanceDecay, w.abundanceFloor)
}
