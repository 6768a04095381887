package telemetry

import (
	"github.com/pthm-cable/critters/components"
	"github.com/pthm-cable/critters/sim"
)

// Collector accumulates per-tick counters within a window of ticks and
// produces WindowStats.
type Collector struct {
	windowTicks     int
	windowStartTick int

	ticks       int
	births      int
	starved     int
	oldAge      int
	predation   int
	foodDropped int
	foodSpoiled int
	eaten       float64
	actions     [components.NumActions]int
}

// NewCollector creates a collector that flushes every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// WindowTicks returns the window length.
func (c *Collector) WindowTicks() int {
	return c.windowTicks
}

// Record folds one tick's counters into the current window.
func (c *Collector) Record(ts sim.TickStats) {
	c.ticks++
	c.births += ts.Births
	c.starved += ts.Starved
	c.oldAge += ts.OldAge
	c.predation += ts.Predation
	c.foodDropped += ts.FoodDropped
	c.foodSpoiled += ts.FoodSpoiled
	c.eaten += ts.Eaten
	for i, n := range ts.Actions {
		c.actions[i] += n
	}
}

// ShouldFlush reports whether the window ending at tick is complete.
func (c *Collector) ShouldFlush(tick int) bool {
	return tick-c.windowStartTick >= c.windowTicks
}

// Flush produces stats for the current window, sampling the population of w
// for the end-of-window snapshot, and starts a new window.
func (c *Collector) Flush(w *sim.World) WindowStats {
	agents := w.AllAgents()

	energy := make([]float64, 0, len(agents))
	alive := make(map[string]struct{})
	var genSum float64
	maxGen := 0
	for _, a := range agents {
		if a.MaxEnergy > 0 {
			energy = append(energy, a.Energy/a.MaxEnergy)
		}
		alive[a.Species] = struct{}{}
		genSum += float64(a.Generation)
		if a.Generation > maxGen {
			maxGen = a.Generation
		}
	}
	mean, p10, p50, p90 := ComputeEnergyStats(energy)

	stats := WindowStats{
		WindowEnd:     w.Tick(),
		Ticks:         c.ticks,
		Abundance:     w.Abundance(),
		Population:    len(agents),
		Food:          w.FoodCount(),
		Species:       len(alive),
		Births:        c.births,
		Starved:       c.starved,
		OldAge:        c.oldAge,
		Predation:     c.predation,
		FoodDropped:   c.foodDropped,
		FoodSpoiled:   c.foodSpoiled,
		Eaten:         c.eaten,
		EnergyMean:    mean,
		EnergyP10:     p10,
		EnergyP50:     p50,
		EnergyP90:     p90,
		MaxGeneration: maxGen,
	}
	if len(agents) > 0 {
		stats.MeanGeneration = genSum / float64(len(agents))
	}

	turns := 0
	for _, n := range c.actions {
		turns += n
	}
	stats.Turns = turns
	if c.ticks > 0 {
		stats.TurnsPerTick = float64(turns) / float64(c.ticks)
	}
	if turns > 0 {
		frac := func(acts ...components.Action) float64 {
			n := 0
			for _, a := range acts {
				n += c.actions[a]
			}
			return float64(n) / float64(turns)
		}
		stats.WanderFrac = frac(components.ActionWander)
		stats.FleeFrac = frac(components.ActionFlee)
		stats.ForageFrac = frac(components.ActionSeekFood, components.ActionEat, components.ActionHunt)
		stats.MatingFrac = frac(components.ActionSeekMate, components.ActionMate, components.ActionReproduce)
		stats.IdleFrac = frac(components.ActionNone)
	}

	c.reset(w.Tick())
	return stats
}

func (c *Collector) reset(tick int) {
	*c = Collector{windowTicks: c.windowTicks, windowStartTick: tick}
}
