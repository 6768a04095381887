package telemetry

import (
	"github.com/pthm-cable/critters/components"
	"github.com/pthm-cable/critters/sim"
)

// LifetimeStats tracks one critter from birth to death.
type LifetimeStats struct {
	ID         uint32
	Species    string
	ParentID   uint32
	Generation int
	BirthTick  int

	Children  int
	Kills     int
	FoodEaten float64 // energy gained from food items
	PreyEaten float64 // energy gained from prey
	Distance  float64
}

// DeathRecord is the flat CSV row written when a critter dies.
type DeathRecord struct {
	Tick       int     `csv:"tick"`
	ID         uint32  `csv:"id"`
	Species    string  `csv:"species"`
	Cause      string  `csv:"cause"`
	ParentID   uint32  `csv:"parent_id"`
	Generation int     `csv:"generation"`
	BirthTick  int     `csv:"birth_tick"`
	Age        int     `csv:"age"`
	Energy     float64 `csv:"energy"`
	Children   int     `csv:"children"`
	Kills      int     `csv:"kills"`
	FoodEaten  float64 `csv:"food_eaten"`
	PreyEaten  float64 `csv:"prey_eaten"`
	Distance   float64 `csv:"distance"`
}

// LifetimeTracker follows every living critter through the world's observer
// hooks and turns each death into a DeathRecord.
type LifetimeTracker struct {
	stats  map[uint32]*LifetimeStats
	deaths []DeathRecord
}

var _ sim.Observer = (*LifetimeTracker)(nil)

// NewLifetimeTracker creates an empty tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{stats: make(map[uint32]*LifetimeStats)}
}

// OnBirth starts tracking a new critter.
func (lt *LifetimeTracker) OnBirth(child sim.Agent, parentID uint32) {
	lt.stats[child.ID] = &LifetimeStats{
		ID:         child.ID,
		Species:    child.Species,
		ParentID:   parentID,
		Generation: child.Generation,
		BirthTick:  child.BirthTick,
	}
	if p := lt.stats[parentID]; p != nil {
		p.Children++
	}
}

// OnEat adds an energy gain.
func (lt *LifetimeTracker) OnEat(id uint32, amount float64, prey bool) {
	s := lt.stats[id]
	if s == nil {
		return
	}
	if prey {
		s.Kills++
		s.PreyEaten += amount
	} else {
		s.FoodEaten += amount
	}
}

// OnMove adds travelled distance.
func (lt *LifetimeTracker) OnMove(id uint32, dist float64) {
	if s := lt.stats[id]; s != nil {
		s.Distance += dist
	}
}

// OnDeath stops tracking a critter and queues its record.
func (lt *LifetimeTracker) OnDeath(a sim.Agent, cause components.Cause) {
	rec := DeathRecord{
		ID:         a.ID,
		Species:    a.Species,
		Cause:      cause.String(),
		Generation: a.Generation,
		BirthTick:  a.BirthTick,
		Age:        a.Age,
		Energy:     a.Energy,
	}
	if s := lt.stats[a.ID]; s != nil {
		rec.ParentID = s.ParentID
		rec.Children = s.Children
		rec.Kills = s.Kills
		rec.FoodEaten = s.FoodEaten
		rec.PreyEaten = s.PreyEaten
		rec.Distance = s.Distance
		delete(lt.stats, a.ID)
	}
	lt.deaths = append(lt.deaths, rec)
}

// Get returns the stats for a living critter, or nil if not tracked.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Count returns the number of tracked critters.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// Pending returns the number of queued death records.
func (lt *LifetimeTracker) Pending() int {
	return len(lt.deaths)
}

// Drain returns the queued death records stamped with tick and clears the
// queue.
func (lt *LifetimeTracker) Drain(tick int) []DeathRecord {
	out := lt.deaths
	for i := range out {
		out[i].Tick = tick
	}
	lt.deaths = nil
	return out
}

// Lineages returns the number of distinct family lines among the living.
// Lines are joined through living ancestors only, so a line splits once the
// ancestor linking it dies.
func (lt *LifetimeTracker) Lineages() int {
	roots := make(map[uint32]struct{})
	for id, s := range lt.stats {
		root := id
		for s != nil && s.ParentID != 0 {
			root = s.ParentID
			s = lt.stats[s.ParentID]
		}
		roots[root] = struct{}{}
	}
	return len(roots)
}
