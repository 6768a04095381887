package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/critters/config"
	"github.com/pthm-cable/critters/game"
	"github.com/pthm-cable/critters/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	scenario := flag.String("scenario", "", "Embedded scenario: "+strings.Join(config.Scenarios(), ", "))
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	logEvery := flag.Int("log-every", 0, "Stats window size in ticks (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	statsDB := flag.String("stats-db", "", "SQLite file collecting windows, deaths and reports across runs")
	seed := flag.Int64("seed", 0, "RNG seed (0 = use config, -1 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = use config)")
	debug := flag.Bool("debug", false, "Check world invariants after every tick")
	census := flag.Bool("census", false, "Write per-species counts every window")
	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*scenario, *configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed < 0 {
		rngSeed = time.Now().UnixNano()
	}
	limit := cfg.World.MaxTicks
	if *maxTicks > 0 {
		limit = *maxTicks
	}

	g, err := game.NewGameWithOptions(game.Options{
		Scenario:   *scenario,
		Seed:       rngSeed,
		Debug:      *debug,
		LogStats:   *logStats,
		LogEvery:   *logEvery,
		OutputDir:  *outputDir,
		StatsDB:    *statsDB,
		ReportEach: *census,
	})
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	w := g.World()
	foodKinds := make([]string, 0, len(w.FoodKinds()))
	for _, k := range w.FoodKinds() {
		foodKinds = append(foodKinds, k.Name+"/"+k.Placement)
	}
	slog.Info("starting headless simulation",
		"run_id", g.RunID(),
		"scenario", *scenario,
		"seed", g.Seed(),
		"max_ticks", limit,
		"species", strings.Join(w.SpeciesNames(), ","),
		"food_kinds", strings.Join(foodKinds, ","),
		"population", w.PopulationCount(),
		"food", w.FoodCount(),
	)

	for limit <= 0 || g.Tick() < limit {
		g.UpdateHeadless()
		if g.Extinct() {
			slog.Info("extinction", "tick", g.Tick())
			break
		}
	}
	if limit > 0 && g.Tick() >= limit {
		slog.Info("max ticks reached", "tick", g.Tick())
	}

	logSummary(g)
	if cfg.Telemetry.Report {
		logReport(w)
	}
}

// logSummary prints the run totals in human-readable form.
func logSummary(g *game.Game) {
	w := g.World()
	t := w.Totals()
	attrs := []any{
		"run_id", g.RunID(),
		"ticks", humanize.Comma(int64(g.Tick())),
		"elapsed", g.Elapsed().Round(time.Millisecond).String(),
		"alive", humanize.Comma(int64(w.PopulationCount())),
		"created", humanize.Comma(int64(t.Created)),
		"born", humanize.Comma(int64(t.Born)),
	}
	for _, c := range sim.Causes() {
		attrs = append(attrs, c.String(), humanize.Comma(int64(t.DeathsBy(c))))
	}
	attrs = append(attrs,
		"lineages", g.Lineages(),
		"bookmarks", len(g.Bookmarks()),
	)
	slog.Info("summary", attrs...)
}

// logReport emits one line per surviving species with its mean traits.
func logReport(w *sim.World) {
	for _, s := range w.Report() {
		attrs := []any{
			"species", s.Species,
			"count", s.Count,
			"mean_generation", fmt.Sprintf("%.2f", s.MeanGeneration),
			"mean_energy", fmt.Sprintf("%.3f", s.MeanEnergy),
		}
		for _, tr := range s.Traits {
			attrs = append(attrs, tr.Name, humanize.FormatFloat("#,###.###", tr.Mean))
		}
		slog.Info("report", attrs...)
	}
}
