package systems

import (
	"math"
	"sort"
)

// Arc is a counter-clockwise angular interval from Start to End. End may
// exceed 2π when the arc wraps past zero.
type Arc struct {
	Start, End float64
}

// Width returns the angular size of the arc.
func (a Arc) Width() float64 {
	return a.End - a.Start
}

// Mid returns the bisecting bearing, wrapped to [0, 2π).
func (a Arc) Mid() float64 {
	return WrapAngle((a.Start + a.End) / 2)
}

// Contains reports whether bearing phi lies inside the arc.
func (a Arc) Contains(phi float64) bool {
	offset := WrapAngle(phi - a.Start)
	return offset <= a.Width() || a.Width() >= twoPi
}

type arcEvent struct {
	at    float64
	delta int // +1 opens, -1 closes
}

// UncoveredArcs returns the parts of the circle not covered by any interval.
// Each interval runs counter-clockwise from Start to End; an End below Start
// wraps around. An interval spanning 2π or more covers everything.
func UncoveredArcs(intervals []Arc) []Arc {
	events := make([]arcEvent, 0, 2*len(intervals))
	for _, iv := range intervals {
		length := iv.End - iv.Start
		if length >= twoPi {
			return nil
		}
		if length < 0 {
			length = WrapAngle(length)
		}
		if length == 0 || math.IsNaN(length) {
			continue
		}
		start := WrapAngle(iv.Start)
		end := start + length
		if end <= twoPi {
			events = append(events, arcEvent{start, 1}, arcEvent{end, -1})
			continue
		}
		events = append(events,
			arcEvent{start, 1}, arcEvent{twoPi, -1},
			arcEvent{0, 1}, arcEvent{end - twoPi, -1},
		)
	}
	if len(events) == 0 {
		return []Arc{{0, twoPi}}
	}

	// Opens sort before closes at the same angle so touching intervals leave no gap.
	sort.Slice(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return events[i].delta > events[j].delta
	})

	var gaps []Arc
	open, pos := 0, 0.0
	for _, ev := range events {
		if open == 0 && ev.at > pos {
			gaps = append(gaps, Arc{pos, ev.at})
		}
		open += ev.delta
		pos = ev.at
	}
	if pos < twoPi {
		gaps = append(gaps, Arc{pos, twoPi})
	}

	// A gap touching both 0 and 2π is one arc across the seam.
	if n := len(gaps); n > 1 && gaps[0].Start == 0 && gaps[n-1].End == twoPi {
		merged := Arc{gaps[n-1].Start, gaps[0].End + twoPi}
		gaps = append(gaps[1:n-1], merged)
	}
	return gaps
}

// Widest returns the widest arc, or false if arcs is empty.
func Widest(arcs []Arc) (Arc, bool) {
	if len(arcs) == 0 {
		return Arc{}, false
	}
	best := arcs[0]
	for _, a := range arcs[1:] {
		if a.Width() > best.Width() {
			best = a
		}
	}
	return best, true
}
