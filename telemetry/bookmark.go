package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkHuntSurge        BookmarkType = "hunt_surge"
	BookmarkFamine           BookmarkType = "famine"
	BookmarkPopulationCrash  BookmarkType = "population_crash"
	BookmarkExtinction       BookmarkType = "extinction"
	BookmarkStablePopulation BookmarkType = "stable_population"
)

// Bookmark marks a notable window of the run.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int          `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector watches successive windows for notable changes.
type BookmarkDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPeak   int // population peak since the last crash
	stableStreak int // consecutive windows with a steady population
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // stability needs four windows of history
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest window and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		checks := []func(WindowStats) *Bookmark{
			bd.checkHuntSurge,
			bd.checkFamine,
			bd.checkPopulationCrash,
			bd.checkExtinction,
			bd.checkStablePopulation,
		}
		for _, check := range checks {
			if b := check(stats); b != nil {
				bookmarks = append(bookmarks, *b)
			}
		}
	}

	bd.addToHistory(stats)
	if stats.Population > bd.recentPeak {
		bd.recentPeak = stats.Population
	}
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// recent returns up to n of the latest windows, oldest first.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	count := bd.historyIdx
	if bd.historyFull {
		count = bd.historySize
	}
	if n > count {
		n = count
	}
	out := make([]WindowStats, n)
	for i := 0; i < n; i++ {
		idx := (bd.historyIdx - n + i + bd.historySize) % bd.historySize
		out[i] = bd.history[idx]
	}
	return out
}

// surge reports a count more than twice its rolling average.
func (bd *BookmarkDetector) surge(stats WindowStats, count func(WindowStats) int, floor int) (avg float64, ok bool) {
	history := bd.recent(bd.historySize)
	if len(history) < 3 {
		return 0, false
	}
	var total int
	for _, h := range history {
		total += count(h)
	}
	avg = float64(total) / float64(len(history))
	cur := count(stats)
	return avg, avg > 0 && float64(cur) > 2*avg && cur >= floor
}

func (bd *BookmarkDetector) checkHuntSurge(stats WindowStats) *Bookmark {
	avg, ok := bd.surge(stats, func(s WindowStats) int { return s.Predation }, 3)
	if !ok {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkHuntSurge,
		Tick:        stats.WindowEnd,
		Description: fmt.Sprintf("%d kills is %.1fx the average (%.1f)", stats.Predation, float64(stats.Predation)/avg, avg),
	}
}

func (bd *BookmarkDetector) checkFamine(stats WindowStats) *Bookmark {
	avg, ok := bd.surge(stats, func(s WindowStats) int { return s.Starved }, 5)
	if !ok {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkFamine,
		Tick:        stats.WindowEnd,
		Description: fmt.Sprintf("%d starved is %.1fx the average (%.1f) at abundance %.2f", stats.Starved, float64(stats.Starved)/avg, avg, stats.Abundance),
	}
}

func (bd *BookmarkDetector) checkPopulationCrash(stats WindowStats) *Bookmark {
	if bd.recentPeak == 0 {
		return nil
	}
	drop := 1 - float64(stats.Population)/float64(bd.recentPeak)
	if drop <= 0.30 || stats.Population >= bd.recentPeak-10 {
		return nil
	}
	peak := bd.recentPeak
	bd.recentPeak = stats.Population
	return &Bookmark{
		Type:        BookmarkPopulationCrash,
		Tick:        stats.WindowEnd,
		Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", drop*100, peak, stats.Population),
	}
}

func (bd *BookmarkDetector) checkExtinction(stats WindowStats) *Bookmark {
	prev := bd.recent(1)
	if len(prev) == 0 || stats.Species >= prev[0].Species {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkExtinction,
		Tick:        stats.WindowEnd,
		Description: fmt.Sprintf("Species alive fell from %d to %d", prev[0].Species, stats.Species),
	}
}

func (bd *BookmarkDetector) checkStablePopulation(stats WindowStats) *Bookmark {
	if stats.Population < 10 {
		bd.stableStreak = 0
		return nil
	}
	history := bd.recent(4)
	if len(history) < 4 {
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += float64(h.Population)
	}
	mean := sum / 4
	var variance float64
	for _, h := range history {
		d := float64(h.Population) - mean
		variance += d * d
	}
	variance /= 4

	// CV^2 < 0.04 means CV < 0.2
	if mean > 0 && variance/(mean*mean) < 0.04 {
		bd.stableStreak++
	} else {
		bd.stableStreak = 0
	}
	if bd.stableStreak != 5 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStablePopulation,
		Tick:        stats.WindowEnd,
		Description: fmt.Sprintf("Population steady around %.0f over 5+ windows", mean),
	}
}
