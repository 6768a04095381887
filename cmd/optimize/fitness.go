package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/critters/config"
	"github.com/pthm-cable/critters/sim"
	"github.com/pthm-cable/critters/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int
	seeds       []int64
	scenario    string
	configPath  string
	windowTicks int

	mu          sync.Mutex
	bestFitness float64
	bestReport  []telemetry.TraitRecord
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Every run loads a fresh
// config from scenario and configPath.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, scenario, configPath string) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		scenario:    scenario,
		configPath:  configPath,
		windowTicks: 100,
		bestFitness: math.Inf(1),
	}
}

// BestReport returns the trait report of the best run so far.
func (fe *FitnessEvaluator) BestReport() []telemetry.TraitRecord {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestReport
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// A species below minViablePop for extinctionGraceTicks consecutive ticks
// counts as functionally extinct.
const (
	minViablePop         = 3
	extinctionGraceTicks = 50
	warmupTicks          = 20
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int // ticks before functional extinction, or maxTicks
	windowStats   []telemetry.WindowStats
	report        []telemetry.TraitRecord
}

type seedResult struct {
	fitness float64
	quality float64
	report  []telemetry.TraitRecord
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			r, err := fe.runSimulation(x, s)
			if err != nil {
				// Invalid parameter combinations score as immediate extinction.
				results[idx] = seedResult{fitness: 0}
				return
			}
			results[idx] = seedResult{
				fitness: fe.computeFitness(r),
				quality: computeQuality(r.windowStats),
				report:  r.report,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedReport []telemetry.TraitRecord
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedReport = r.report
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestReport = bestSeedReport
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes one headless run until functional extinction of any
// founding species or maxTicks.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (*runResult, error) {
	cfg, err := config.LoadScenario(fe.scenario, fe.configPath)
	if err != nil {
		return nil, err
	}
	fe.params.ApplyToConfig(cfg, x)

	w, err := sim.FromConfig(cfg, sim.Options{Seed: seed})
	if err != nil {
		return nil, err
	}

	founders := make(map[string]bool)
	for name, n := range cfg.Population.Counts {
		if n > 0 {
			founders[name] = true
		}
	}
	below := make(map[string]int, len(founders))

	result := &runResult{survivalTicks: fe.maxTicks}
	collector := telemetry.NewCollector(fe.windowTicks)

	w.Run(fe.maxTicks, func(*sim.World) bool {
		collector.Record(w.Stats())
		if collector.ShouldFlush(w.Tick()) {
			result.windowStats = append(result.windowStats, collector.Flush(w))
		}
		if w.Tick() < warmupTicks {
			return true
		}

		counts := w.SpeciesCounts()
		extinct := false
		for name := range founders {
			switch {
			case counts[name] == 0:
				extinct = true
			case counts[name] < minViablePop:
				below[name]++
				extinct = extinct || below[name] >= extinctionGraceTicks
			default:
				below[name] = 0
			}
		}
		if extinct {
			result.survivalTicks = w.Tick()
		}
		return !extinct
	})
	// Everything died before the warmup ended.
	if w.PopulationCount() == 0 && w.Tick() < result.survivalTicks {
		result.survivalTicks = w.Tick()
	}

	result.report = telemetry.TraitRecords(w.Tick(), w.Report())
	return result, nil
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	return -(survival * (1.0 + 0.2*computeQuality(r.windowStats)))
}

// Quality component weights.
const (
	qualityWeightStability = 0.4
	qualityWeightEnergy    = 0.3
	qualityWeightTurnover  = 0.3

	qualityWarmupWindows = 2
	qualityMinPop        = 3
)

// computeQuality scores a run in [0, 1] from its windows: a steady
// population, moderate energy reserves and ongoing births.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	var pops []float64
	var energySum, turnoverSum float64
	for _, w := range windows[qualityWarmupWindows:] {
		if w.Population < qualityMinPop {
			continue
		}
		pops = append(pops, float64(w.Population))
		energySum += math.Exp(-math.Pow((w.EnergyP50-0.5)/0.2, 2))

		// Births per critter per window, saturating.
		turnoverSum += 1 - math.Exp(-float64(w.Births)/float64(w.Population)/0.2)
	}
	if len(pops) == 0 {
		return 0
	}
	n := float64(len(pops))

	stability := 0.0
	if len(pops) >= 2 {
		mean, std := stat.MeanStdDev(pops, nil)
		if mean > 0 {
			c := std / mean
			stability = math.Exp(-c * c)
		}
	}

	quality := qualityWeightStability*stability +
		qualityWeightEnergy*energySum/n +
		qualityWeightTurnover*turnoverSum/n
	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
