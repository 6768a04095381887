package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats holds aggregated statistics for one log window.
type WindowStats struct {
	WindowEnd int     `csv:"window_end"`
	Ticks     int     `csv:"ticks"`
	Abundance float64 `csv:"abundance"`

	// Snapshot at the end of the window
	Population int `csv:"population"`
	Food       int `csv:"food"`
	Species    int `csv:"species_alive"`

	// Window totals
	Births      int     `csv:"births"`
	Starved     int     `csv:"starved"`
	OldAge      int     `csv:"old_age"`
	Predation   int     `csv:"predation"`
	FoodDropped int     `csv:"food_dropped"`
	FoodSpoiled int     `csv:"food_spoiled"`
	Eaten       float64 `csv:"energy_eaten"`

	// Action mix, as fractions of all turns taken in the window
	WanderFrac   float64 `csv:"wander_frac"`
	FleeFrac     float64 `csv:"flee_frac"`
	ForageFrac   float64 `csv:"forage_frac"` // seek_food + eat + hunt
	MatingFrac   float64 `csv:"mating_frac"` // seek_mate + mate + reproduce
	IdleFrac     float64 `csv:"idle_frac"`
	Turns        int     `csv:"turns"`
	TurnsPerTick float64 `csv:"turns_per_tick"`

	// Energy as a fraction of max energy across the living population
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	MeanGeneration float64 `csv:"mean_generation"`
	MaxGeneration  int     `csv:"max_generation"`
}

// Deaths returns the window's deaths across all causes.
func (s WindowStats) Deaths() int {
	return s.Starved + s.OldAge + s.Predation
}

// Percentile computes the p-th percentile of a sorted slice with linear
// interpolation. p is in [0, 1].
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeEnergyStats computes mean and percentiles of energy values.
// values is sorted in place.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	return mean, Percentile(values, 0.1), Percentile(values, 0.5), Percentile(values, 0.9)
}

// LogValue implements slog.LogValuer.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_end", s.WindowEnd),
		slog.Int("population", s.Population),
		slog.Int("food", s.Food),
		slog.Int("species_alive", s.Species),
		slog.Float64("abundance", s.Abundance),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths()),
		slog.Int("starved", s.Starved),
		slog.Int("old_age", s.OldAge),
		slog.Int("predation", s.Predation),
		slog.Int("food_dropped", s.FoodDropped),
		slog.Int("food_spoiled", s.FoodSpoiled),
		slog.Float64("energy_eaten", s.Eaten),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("mean_generation", s.MeanGeneration),
	)
}

// LogStats emits the window as a single "stats" line.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"tick", s.WindowEnd,
		"pop", s.Population,
		"food", s.Food,
		"abundance", round3(s.Abundance),
		"births", s.Births,
		"starved", s.Starved,
		"old_age", s.OldAge,
		"predation", s.Predation,
		"dropped", s.FoodDropped,
		"spoiled", s.FoodSpoiled,
		"eaten", round3(s.Eaten),
		"energy_mean", round3(s.EnergyMean),
		"energy_p10", round3(s.EnergyP10),
		"energy_p90", round3(s.EnergyP90),
		"wander", round3(s.WanderFrac),
		"flee", round3(s.FleeFrac),
		"forage", round3(s.ForageFrac),
		"mating", round3(s.MatingFrac),
		"gen_mean", round3(s.MeanGeneration),
		"gen_max", s.MaxGeneration,
	)
}

func round3(v float64) float64 {
	return float64(int64(v*1000)) / 1000
}
