package game

import (
	"context"
	"log/slog"

	"github.com/pthm-cable/critters/telemetry"
)

// flushTelemetry closes the stats window when it is due and fans the result
// out to the log, the callback, the CSV files and the stats db.
func (g *Game) flushTelemetry() {
	tick := g.world.Tick()
	if !g.collector.ShouldFlush(tick) && !g.Extinct() {
		return
	}

	stats := g.collector.Flush(g.world)
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEnd); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
	if g.reportEach {
		census := telemetry.SpeciesRecords(tick, g.world.Report())
		if err := g.outputManager.WriteSpecies(census); err != nil {
			slog.Error("failed to write species", "error", err)
		}
	}
	if g.statsDB != nil {
		if err := g.statsDB.SaveWindow(context.Background(), stats); err != nil {
			slog.Error("failed to store window", "error", err)
		}
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		g.bookmarks = append(g.bookmarks, bm)
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}

// writeDeaths hands this tick's death records to the CSV and db sinks.
func (g *Game) writeDeaths(deaths []telemetry.DeathRecord) {
	if len(deaths) == 0 {
		return
	}
	if err := g.outputManager.WriteDeaths(deaths); err != nil {
		slog.Error("failed to write deaths", "error", err)
	}
	if g.statsDB != nil {
		if err := g.statsDB.SaveDeaths(context.Background(), deaths); err != nil {
			slog.Error("failed to store deaths", "error", err)
		}
	}
}
