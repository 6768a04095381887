package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/critters/config"
	"github.com/pthm-cable/critters/sim"
)

// SpeciesRecord is one species' census at the end of a window.
type SpeciesRecord struct {
	WindowEnd      int     `csv:"window_end"`
	Species        string  `csv:"species"`
	Count          int     `csv:"count"`
	MeanGeneration float64 `csv:"mean_generation"`
	MeanEnergy     float64 `csv:"mean_energy"`
}

// TraitRecord is one row of the end-of-run trait report.
type TraitRecord struct {
	Tick    int     `csv:"tick"`
	Species string  `csv:"species"`
	Count   int     `csv:"count"`
	Trait   string  `csv:"trait"`
	Mean    float64 `csv:"mean"`
	StdDev  float64 `csv:"stddev"`
}

// SpeciesRecords flattens a world report into census rows.
func SpeciesRecords(tick int, report []sim.SpeciesSummary) []SpeciesRecord {
	out := make([]SpeciesRecord, 0, len(report))
	for _, s := range report {
		out = append(out, SpeciesRecord{
			WindowEnd:      tick,
			Species:        s.Species,
			Count:          s.Count,
			MeanGeneration: s.MeanGeneration,
			MeanEnergy:     s.MeanEnergy,
		})
	}
	return out
}

// TraitRecords flattens a world report into one row per species and trait.
func TraitRecords(tick int, report []sim.SpeciesSummary) []TraitRecord {
	var out []TraitRecord
	for _, s := range report {
		for _, tr := range s.Traits {
			out = append(out, TraitRecord{
				Tick:    tick,
				Species: s.Species,
				Count:   s.Count,
				Trait:   tr.Name,
				Mean:    tr.Mean,
				StdDev:  tr.StdDev,
			})
		}
	}
	return out
}

// csvFile appends gocsv records to one file, writing the header once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir string

	telemetry *csvFile
	species   *csvFile
	deaths    *csvFile
	perf      *csvFile
	bookmarks *csvFile
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **csvFile
	}{
		{"telemetry.csv", &om.telemetry},
		{"species.csv", &om.species},
		{"deaths.csv", &om.deaths},
		{"perf.csv", &om.perf},
		{"bookmarks.csv", &om.bookmarks},
	}
	for _, f := range files {
		fh, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = &csvFile{f: fh}
	}
	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.telemetry.write([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WriteSpecies writes census rows to species.csv.
func (om *OutputManager) WriteSpecies(records []SpeciesRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if err := om.species.write(records); err != nil {
		return fmt.Errorf("writing species: %w", err)
	}
	return nil
}

// WriteDeaths writes death records to deaths.csv.
func (om *OutputManager) WriteDeaths(records []DeathRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if err := om.deaths.write(records); err != nil {
		return fmt.Errorf("writing deaths: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := om.bookmarks.write([]Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteReport writes the trait report to report.csv in one go.
func (om *OutputManager) WriteReport(records []TraitRecord) error {
	if om == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, "report.csv"))
	if err != nil {
		return fmt.Errorf("creating report.csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files and returns the first error.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, c := range []*csvFile{om.telemetry, om.species, om.deaths, om.perf, om.bookmarks} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
