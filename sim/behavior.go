package sim

import (
	"fmt"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/critters/components"
	"github.com/pthm-cable/critters/systems"
	"github.com/pthm-cable/critters/traits"
)

// reachEpsilon widens the interaction distance to absorb rounding when a
// critter stops exactly at the edge of its reach.
const reachEpsilon = 1e-6

// turn bundles the acting critter's components. The pointers are valid only
// until the next structural change, so every action performs entity
// creation or removal as its final step.
type turn struct {
	e    ecs.Entity
	sp   *Species
	pos  *components.Position
	vit  *components.Vitals
	org  *components.Organism
	gen  *components.Genome
	body *components.Body
	gest *components.Gestation
	per  *components.Perception
}

func (w *World) load(e ecs.Entity) turn {
	pos, vit, org, gen, body, gest, per := w.critters.Get(e)
	return turn{
		e:    e,
		sp:   w.species[org.Species],
		pos:  pos,
		vit:  vit,
		org:  org,
		gen:  gen,
		body: body,
		gest: gest,
		per:  per,
	}
}

func (t *turn) trait(name string) float64 {
	return t.gen.Traits.Value(name)
}

func (t *turn) adult() bool {
	return t.vit.Age >= t.body.AdultAge
}

func (t *turn) ageRatio() float64 {
	if t.vit.MaxAge <= 0 {
		return 0
	}
	return float64(t.vit.Age) / float64(t.vit.MaxAge)
}

// TakeTurn runs one critter's decision for the current tick: aging,
// gestation, then at most one action. It returns ErrAgentRemoved if the
// critter is no longer in the world.
func (w *World) TakeTurn(e ecs.Entity) (components.Action, error) {
	if !w.isCritter(e) {
		return components.ActionNone, fmt.Errorf("%w: %v", ErrAgentRemoved, e)
	}

	t := w.load(e)
	t.vit.Age++
	if t.gest.Active {
		t.gest.Countdown--
		if t.gest.Countdown <= 0 {
			w.deliver(e)
			return components.ActionBirth, nil
		}
	}

	act := w.decide(&t)

	// Hunting and eating may have moved component storage.
	w.orgMap.Get(e).LastAction = act
	return act, nil
}

// decide runs the immediate flee check and then the priority loop.
func (w *World) decide(t *turn) components.Action {
	w.perceive(t)

	threats := w.threats(t)
	if len(threats) > 0 && threats[0].Dist <= t.trait(traits.FleeRange) {
		if act, ok := w.flee(t, threats); ok {
			return act
		}
	}

	desires := systems.Desires{
		Hunger:     t.vit.Hunger(),
		AgeRatio:   t.ageRatio(),
		CanMate:    t.adult() && !t.gest.Active,
		FoodWeight: t.trait(traits.WeightFood),
		Wander:     t.trait(traits.WeightWander),
		Flee:       t.trait(traits.WeightFlee),
		MateWeight: t.trait(traits.WeightMate),
	}
	for _, b := range systems.Prioritize(desires.Score()) {
		var (
			act components.Action
			ok  bool
		)
		switch b {
		case systems.SeekFood:
			act, ok = w.seekFood(t)
		case systems.Wander:
			act, ok = w.wander(t)
		case systems.Flee:
			act, ok = w.flee(t, threats)
		case systems.SeekMate:
			if t.sp.Sexual() {
				act, ok = w.seekMate(t)
			} else {
				act, ok = w.reproduceAsex(t)
			}
		}
		if ok {
			return act
		}
	}
	return components.ActionNone
}

// perceive refreshes the perception caches if they were computed on an
// earlier tick.
func (w *World) perceive(t *turn) {
	if t.per.CrittersTick != w.tick {
		t.per.Critters = w.look(w.critterGrid, t, t.body.PerCritter, t.per.Critters[:0])
		t.per.CrittersTick = w.tick
	}
	if t.per.FoodTick != w.tick {
		t.per.Food = w.look(w.foodGrid, t, t.body.PerFood, t.per.Food[:0])
		t.per.FoodTick = w.tick
	}
}

// look returns everything in grid within radius of the critter, nearest
// first, excluding the critter itself.
func (w *World) look(grid *systems.ChunkGrid, t *turn, radius float64, dst []components.Sighting) []components.Sighting {
	w.nearby = grid.SearchRadius(w.nearby[:0], t.pos.X, t.pos.Y, radius)
	for _, o := range w.nearby {
		if o == t.e {
			continue
		}
		p := w.posMap.Get(o)
		dist, bearing := systems.RelativePolar(t.pos.X, t.pos.Y, p.X, p.Y)
		if dist <= radius {
			dst = append(dst, components.Sighting{Entity: o, Dist: dist, Bearing: bearing})
		}
	}
	sort.SliceStable(dst, func(i, j int) bool { return dst[i].Dist < dst[j].Dist })
	return dst
}

// threats lists visible critters whose species hunts this one, nearest first.
func (w *World) threats(t *turn) []systems.Threat {
	var out []systems.Threat
	for _, s := range t.per.Critters {
		if !w.isCritter(s.Entity) {
			continue
		}
		other := w.species[w.orgMap.Get(s.Entity).Species]
		if other.Preys(t.sp) {
			out = append(out, systems.Threat{Dist: s.Dist, Bearing: s.Bearing, Danger: other.Danger()})
		}
	}
	return out
}

// target is a candidate of the desirability field.
type target struct {
	entity ecs.Entity
	prey   bool
}

// seekFood eats the most valuable item in reach or steers toward the best
// heading of the food field. Predators treat visible prey as food.
func (w *World) seekFood(t *turn) (components.Action, bool) {
	deficit := t.vit.Deficit()
	if deficit <= 0 {
		return components.ActionNone, false
	}
	hunger := t.vit.Hunger()
	weight := t.trait(traits.WeightFood)
	foodNav := systems.Nav{Angle: t.trait(traits.NavAngleFood), Distance: t.trait(traits.NavDistanceFood)}
	predNav := systems.Nav{Angle: t.trait(traits.NavAnglePred), Distance: t.trait(traits.NavDistancePred)}
	reach := t.body.Reach + reachEpsilon

	var (
		candidates []systems.Attractor
		targets    []target
		field      []systems.Attractor
		best       = -1
		bestValue  float64
	)
	consider := func(s components.Sighting, value float64, prey bool) {
		if s.Dist <= reach && (best < 0 || value > bestValue) {
			best, bestValue = len(targets), value
		}
		a := systems.Attractor{Dist: s.Dist, Bearing: s.Bearing, Value: value, Nav: foodNav}
		candidates = append(candidates, a)
		targets = append(targets, target{entity: s.Entity, prey: prey})
		field = append(field, a)
	}

	for _, s := range t.per.Food {
		if !w.isFood(s.Entity) {
			continue
		}
		food := w.foodMap.Get(s.Entity)
		if food.Depleted() || !t.sp.EatsKind(food.Kind) {
			continue
		}
		consider(s, weight*food.Amount*hunger, false)
	}

	for _, s := range t.per.Critters {
		if !w.isCritter(s.Entity) {
			continue
		}
		other := w.species[w.orgMap.Get(s.Entity).Species]
		switch {
		case t.sp.Preys(other):
			consider(s, weight*w.vitalsMap.Get(s.Entity).Energy*hunger, true)
		case other.Preys(t.sp):
			field = append(field, systems.Attractor{
				Dist:    s.Dist,
				Bearing: s.Bearing,
				Value:   -t.trait(traits.WeightPredator) * other.Danger(),
				Nav:     predNav,
			})
		case t.sp.Competes(other):
			field = append(field, systems.Attractor{
				Dist:    s.Dist,
				Bearing: s.Bearing,
				Value:   -t.trait(traits.WeightCompetitor),
				Nav:     foodNav,
			})
		}
	}

	if best >= 0 {
		if targets[best].prey {
			return w.hunt(t, targets[best].entity), true
		}
		return w.eat(t, targets[best].entity), true
	}

	idx, _ := systems.BestCandidate(candidates, field)
	if idx < 0 {
		return components.ActionNone, false
	}
	c := candidates[idx]
	w.move(t, c.Bearing, systems.ApproachSpeed(c.Dist, t.body.Reach, t.body.MaxSpeed))
	return components.ActionSeekFood, true
}

// canReproduce reports whether the critter may conceive this tick.
func (w *World) canReproduce(t *turn) bool {
	if !t.adult() || t.gest.Active {
		return false
	}
	need := t.trait(traits.ReproductionThreshold) * t.vit.MaxEnergy
	if t.body.ReproCost > need {
		need = t.body.ReproCost
	}
	return t.vit.Energy >= need
}

// seekMate conceives with the fittest valid mate in reach, or steers toward
// the best heading of the mate field.
func (w *World) seekMate(t *turn) (components.Action, bool) {
	if !w.canReproduce(t) {
		return components.ActionNone, false
	}
	weight := t.trait(traits.WeightMate)
	mateNav := systems.Nav{Angle: t.trait(traits.NavAngleMate), Distance: t.trait(traits.NavDistanceMate)}
	predNav := systems.Nav{Angle: t.trait(traits.NavAnglePred), Distance: t.trait(traits.NavDistancePred)}
	reach := t.body.Reach + reachEpsilon

	var (
		candidates []systems.Attractor
		mates      []ecs.Entity
		field      []systems.Attractor
		best       = -1
		bestValue  float64
	)
	for _, s := range t.per.Critters {
		if !w.isCritter(s.Entity) {
			continue
		}
		org := w.orgMap.Get(s.Entity)
		other := w.species[org.Species]
		if other.Preys(t.sp) {
			field = append(field, systems.Attractor{
				Dist:    s.Dist,
				Bearing: s.Bearing,
				Value:   -t.trait(traits.WeightPredator) * other.Danger(),
				Nav:     predNav,
			})
			continue
		}
		if other != t.sp || !w.validMate(s.Entity) {
			continue
		}
		value := weight * w.vitalsMap.Get(s.Entity).Fullness()
		if s.Dist <= reach && (best < 0 || value > bestValue) {
			best, bestValue = len(mates), value
		}
		a := systems.Attractor{Dist: s.Dist, Bearing: s.Bearing, Value: value, Nav: mateNav}
		candidates = append(candidates, a)
		mates = append(mates, s.Entity)
		field = append(field, a)
	}

	if best >= 0 {
		return w.mate(t, mates[best]), true
	}

	idx, _ := systems.BestCandidate(candidates, field)
	if idx < 0 {
		return components.ActionNone, false
	}
	c := candidates[idx]
	w.move(t, c.Bearing, systems.ApproachSpeed(c.Dist, t.body.Reach, t.body.MaxSpeed))
	return components.ActionSeekMate, true
}

// validMate reports whether another critter is adult and not gestating.
func (w *World) validMate(e ecs.Entity) bool {
	return w.vitalsMap.Get(e).Age >= w.bodyMap.Get(e).AdultAge && !w.gestMap.Get(e).Active
}
