// Package game drives a headless simulation run: it steps the world and
// feeds the telemetry pipeline (stats windows, bookmarks, lifetime records,
// CSV output and the optional SQLite store).
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/critters/config"
	"github.com/pthm-cable/critters/sim"
	"github.com/pthm-cable/critters/telemetry"
)

// Options configures a run.
type Options struct {
	Config   *config.Config // nil uses config.Cfg()
	Scenario string         // recorded with the run only
	Seed     int64          // 0 keeps the configured seed
	RunID    string         // empty generates a UUID
	Debug    bool           // check world invariants after every tick

	LogStats   bool // emit "stats" and "perf" lines every window
	LogEvery   int  // window length in ticks; 0 uses the telemetry config
	OutputDir  string
	StatsDB    string
	ReportEach bool // write the species census every window

	// StatsCallback receives every flushed window.
	StatsCallback func(telemetry.WindowStats)
}

// Game owns the world and its telemetry.
type Game struct {
	world *sim.World
	cfg   *config.Config
	runID string
	seed  int64

	collector        *telemetry.Collector
	lifetimeTracker  *telemetry.LifetimeTracker
	bookmarkDetector *telemetry.BookmarkDetector
	perfCollector    *telemetry.PerfCollector
	outputManager    *telemetry.OutputManager
	statsDB          *telemetry.StatsDB

	logStats      bool
	reportEach    bool
	statsCallback func(telemetry.WindowStats)
	bookmarks     []telemetry.Bookmark
	started       time.Time
}

// NewGameWithOptions builds the world from the configuration and opens the
// requested outputs.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	window := opts.LogEvery
	if window <= 0 {
		window = cfg.Telemetry.LogEvery
	}

	collector := telemetry.NewCollector(window)
	g := &Game{
		cfg:              cfg,
		runID:            runID,
		collector:        collector,
		lifetimeTracker:  telemetry.NewLifetimeTracker(),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		perfCollector:    telemetry.NewPerfCollector(collector.WindowTicks()),
		logStats:         opts.LogStats,
		reportEach:       opts.ReportEach,
		statsCallback:    opts.StatsCallback,
		started:          time.Now(),
	}

	world, err := sim.FromConfig(cfg, sim.Options{
		Seed:     opts.Seed,
		Debug:    opts.Debug,
		Observer: g.lifetimeTracker,
	})
	if err != nil {
		return nil, fmt.Errorf("building world: %w", err)
	}
	g.world = world
	g.seed = cfg.World.Seed
	if opts.Seed != 0 {
		g.seed = opts.Seed
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		g.Unload()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	if opts.StatsDB != "" {
		if err := g.openStatsDB(opts.StatsDB, opts.Scenario); err != nil {
			g.Unload()
			return nil, err
		}
	}
	return g, nil
}

func (g *Game) openStatsDB(path, scenario string) error {
	ctx := context.Background()
	db, err := telemetry.OpenStatsDB(ctx, path)
	if err != nil {
		return fmt.Errorf("opening stats db: %w", err)
	}
	g.statsDB = db

	snapshot, err := yaml.Marshal(g.cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return db.StartRun(ctx, telemetry.RunInfo{
		ID:       g.runID,
		Scenario: scenario,
		Seed:     g.seed,
		Config:   string(snapshot),
	})
}

// UpdateHeadless runs one tick and its telemetry.
func (g *Game) UpdateHeadless() {
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseStep)
	g.world.Step()

	g.perfCollector.StartPhase(telemetry.PhaseCollect)
	g.collector.Record(g.world.Stats())
	deaths := g.lifetimeTracker.Drain(g.world.Tick())

	g.perfCollector.StartPhase(telemetry.PhaseOutput)
	g.writeDeaths(deaths)
	g.flushTelemetry()

	g.perfCollector.EndTick(g.world.PopulationCount())
}

// World returns the simulated world.
func (g *Game) World() *sim.World { return g.world }

// RunID returns the identifier recorded with every output of this run.
func (g *Game) RunID() string { return g.runID }

// Seed returns the seed the world was built with.
func (g *Game) Seed() int64 { return g.seed }

// Tick returns the current simulation tick.
func (g *Game) Tick() int { return g.world.Tick() }

// Extinct reports whether no critter is left.
func (g *Game) Extinct() bool { return g.world.PopulationCount() == 0 }

// Bookmarks returns every bookmark raised so far.
func (g *Game) Bookmarks() []telemetry.Bookmark { return g.bookmarks }

// Lineages returns the number of living family lines.
func (g *Game) Lineages() int { return g.lifetimeTracker.Lineages() }

// Elapsed returns the wall time since the game was created.
func (g *Game) Elapsed() time.Duration { return time.Since(g.started) }

// Unload writes the final report and closes every output.
func (g *Game) Unload() {
	ctx := context.Background()
	records := telemetry.TraitRecords(g.world.Tick(), g.world.Report())

	if err := g.outputManager.WriteReport(records); err != nil {
		slog.Error("failed to write report", "error", err)
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}

	if g.statsDB != nil {
		totals := g.world.Totals()
		if err := g.statsDB.SaveReport(ctx, records); err != nil {
			slog.Error("failed to store report", "error", err)
		}
		if err := g.statsDB.FinishRun(ctx, telemetry.RunTotals{
			Ticks:     g.world.Tick(),
			Created:   totals.Created,
			Born:      totals.Born,
			Starved:   totals.Starved,
			OldAge:    totals.OldAge,
			Predation: totals.Predation,
		}); err != nil {
			slog.Error("failed to finish run", "error", err)
		}
		if err := g.statsDB.Close(); err != nil {
			slog.Error("failed to close stats db", "error", err)
		}
		g.statsDB = nil
	}
	g.outputManager = nil
}
