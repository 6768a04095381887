package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// RunInfo describes one simulation run in the stats database.
type RunInfo struct {
	ID       string
	Scenario string
	Seed     int64
	Config   string // effective config as YAML
}

// StatsDB stores windows, deaths and the final report of runs in SQLite so
// many runs can be compared with plain SQL.
type StatsDB struct {
	path  string
	runID string

	mu sync.Mutex
	db *sql.DB
}

// OpenStatsDB opens or creates the database at path and ensures its schema.
func OpenStatsDB(ctx context.Context, path string) (*StatsDB, error) {
	if path == "" {
		return nil, errors.New("stats db path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &StatsDB{path: path, db: db}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			seed INTEGER NOT NULL,
			config TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			ticks INTEGER,
			created INTEGER,
			born INTEGER,
			starved INTEGER,
			old_age INTEGER,
			predation INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS windows (
			run_id TEXT NOT NULL,
			window_end INTEGER NOT NULL,
			population INTEGER NOT NULL,
			food INTEGER NOT NULL,
			species_alive INTEGER NOT NULL,
			abundance REAL NOT NULL,
			births INTEGER NOT NULL,
			starved INTEGER NOT NULL,
			old_age INTEGER NOT NULL,
			predation INTEGER NOT NULL,
			energy_eaten REAL NOT NULL,
			energy_mean REAL NOT NULL,
			mean_generation REAL NOT NULL,
			PRIMARY KEY (run_id, window_end)
		)`,
		`CREATE TABLE IF NOT EXISTS deaths (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			critter_id INTEGER NOT NULL,
			species TEXT NOT NULL,
			cause TEXT NOT NULL,
			generation INTEGER NOT NULL,
			age INTEGER NOT NULL,
			children INTEGER NOT NULL,
			kills INTEGER NOT NULL,
			distance REAL NOT NULL,
			PRIMARY KEY (run_id, critter_id)
		)`,
		`CREATE TABLE IF NOT EXISTS traits (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			species TEXT NOT NULL,
			trait TEXT NOT NULL,
			count INTEGER NOT NULL,
			mean REAL NOT NULL,
			stddev REAL NOT NULL,
			PRIMARY KEY (run_id, species, trait)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// StartRun records a new run; later writes are attributed to it.
func (s *StatsDB) StartRun(ctx context.Context, run RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return errors.New("stats db is closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, seed, config, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Scenario, run.Seed, run.Config, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	s.runID = run.ID
	return nil
}

func (s *StatsDB) current() (*sql.DB, string, error) {
	if s.db == nil {
		return nil, "", errors.New("stats db is closed")
	}
	if s.runID == "" {
		return nil, "", errors.New("no run started")
	}
	return s.db, s.runID, nil
}

// SaveWindow stores one window of the current run.
func (s *StatsDB) SaveWindow(ctx context.Context, w WindowStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, runID, err := s.current()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO windows (run_id, window_end, population, food, species_alive, abundance,
			births, starved, old_age, predation, energy_eaten, energy_mean, mean_generation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, w.WindowEnd, w.Population, w.Food, w.Species, w.Abundance,
		w.Births, w.Starved, w.OldAge, w.Predation, w.Eaten, w.EnergyMean, w.MeanGeneration)
	return err
}

// SaveDeaths stores death records of the current run in one transaction.
func (s *StatsDB) SaveDeaths(ctx context.Context, deaths []DeathRecord) error {
	if len(deaths) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	db, runID, err := s.current()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deaths (run_id, tick, critter_id, species, cause, generation, age, children, kills, distance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, d := range deaths {
		if _, err := stmt.ExecContext(ctx, runID, d.Tick, d.ID, d.Species, d.Cause,
			d.Generation, d.Age, d.Children, d.Kills, d.Distance); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting death of %d: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// SaveReport stores the trait report of the current run, replacing any
// earlier one.
func (s *StatsDB) SaveReport(ctx context.Context, rows []TraitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, runID, err := s.current()
	if err != nil {
		return err
	}
	for _, r := range rows {
		_, err := db.ExecContext(ctx, `
			INSERT INTO traits (run_id, tick, species, trait, count, mean, stddev)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, species, trait) DO UPDATE SET
				tick = excluded.tick,
				count = excluded.count,
				mean = excluded.mean,
				stddev = excluded.stddev
		`, runID, r.Tick, r.Species, r.Trait, r.Count, r.Mean, r.StdDev)
		if err != nil {
			return fmt.Errorf("inserting trait %s/%s: %w", r.Species, r.Trait, err)
		}
	}
	return nil
}

// RunTotals are the run-wide counters stored when a run finishes.
type RunTotals struct {
	Ticks     int
	Created   int
	Born      int
	Starved   int
	OldAge    int
	Predation int
}

// FinishRun stamps the current run with its final counters.
func (s *StatsDB) FinishRun(ctx context.Context, t RunTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, runID, err := s.current()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, ticks = ?, created = ?, born = ?,
			starved = ?, old_age = ?, predation = ?
		WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339), t.Ticks, t.Created, t.Born,
		t.Starved, t.OldAge, t.Predation, runID)
	return err
}

// Populations returns the population at each stored window of a run, in
// tick order.
func (s *StatsDB) Populations(ctx context.Context, runID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("stats db is closed")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT population FROM windows WHERE run_id = ? ORDER BY window_end
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeathCounts returns the number of deaths per cause for a run.
func (s *StatsDB) DeathCounts(ctx context.Context, runID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("stats db is closed")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT cause, COUNT(*) FROM deaths WHERE run_id = ? GROUP BY cause
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var cause string
		var n int
		if err := rows.Scan(&cause, &n); err != nil {
			return nil, err
		}
		out[cause] = n
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *StatsDB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
