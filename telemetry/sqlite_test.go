package telemetry

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *StatsDB {
	t.Helper()
	db, err := OpenStatsDB(context.Background(), filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("OpenStatsDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStatsDBRequiresRun(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveWindow(context.Background(), WindowStats{}); err == nil {
		t.Error("SaveWindow before StartRun should fail")
	}
	if _, err := OpenStatsDB(context.Background(), ""); err == nil {
		t.Error("empty path should fail")
	}
}

func TestStatsDBRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.StartRun(ctx, RunInfo{ID: "run-a", Scenario: "meadow", Seed: 42, Config: "world: {}"}); err != nil {
		t.Fatal(err)
	}
	for i, pop := range []int{40, 38, 45} {
		if err := db.SaveWindow(ctx, WindowStats{WindowEnd: (i + 1) * 100, Population: pop}); err != nil {
			t.Fatal(err)
		}
	}
	deaths := []DeathRecord{
		{Tick: 10, ID: 1, Species: "critter", Cause: "starved"},
		{Tick: 12, ID: 2, Species: "critter", Cause: "starved"},
		{Tick: 20, ID: 3, Species: "critter", Cause: "predation"},
	}
	if err := db.SaveDeaths(ctx, deaths); err != nil {
		t.Fatal(err)
	}
	rows := []TraitRecord{{Tick: 300, Species: "critter", Trait: "mass", Count: 45, Mean: 35}}
	if err := db.SaveReport(ctx, rows); err != nil {
		t.Fatal(err)
	}
	// Saving again replaces the earlier report.
	rows[0].Mean = 36
	if err := db.SaveReport(ctx, rows); err != nil {
		t.Fatal(err)
	}
	if err := db.FinishRun(ctx, RunTotals{Ticks: 300, Created: 60, Born: 20, Starved: 2, Predation: 1}); err != nil {
		t.Fatal(err)
	}

	pops, err := db.Populations(ctx, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{40, 38, 45}
	if len(pops) != len(want) {
		t.Fatalf("Populations = %v, want %v", pops, want)
	}
	for i := range want {
		if pops[i] != want[i] {
			t.Errorf("Populations[%d] = %d, want %d", i, pops[i], want[i])
		}
	}

	counts, err := db.DeathCounts(ctx, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	if counts["starved"] != 2 || counts["predation"] != 1 {
		t.Errorf("DeathCounts = %v", counts)
	}

	// A second run keeps its windows apart from the first.
	if err := db.StartRun(ctx, RunInfo{ID: "run-b", Scenario: "meadow", Seed: 43}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveWindow(ctx, WindowStats{WindowEnd: 100, Population: 7}); err != nil {
		t.Fatal(err)
	}
	if pops, _ := db.Populations(ctx, "run-b"); len(pops) != 1 || pops[0] != 7 {
		t.Errorf("run-b populations = %v", pops)
	}
}
