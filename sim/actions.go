package sim

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/critters/components"
	"github.com/pthm-cable/critters/systems"
	"github.com/pthm-cable/critters/traits"
)

// move steps the critter along heading, paying for the distance actually
// covered after clamping to the world bounds.
func (w *World) move(t *turn, heading, speed float64) {
	speed = systems.Clamp(speed, 0, t.body.MaxSpeed)
	dx, dy := systems.PolarToCartesian(speed, heading)
	x := w.clampToWorld(t.pos.X + dx)
	y := w.clampToWorld(t.pos.Y + dy)
	dist := systems.Distance(t.pos.X, t.pos.Y, x, y)

	t.vit.AddEnergy(-t.sp.Bio.MoveCost(t.body.Mass, dist))
	t.pos.X, t.pos.Y = x, y
	w.critterGrid.Relocate(t.e, x, y)
	t.org.Heading = systems.WrapAngle(heading)
	w.observer.OnMove(t.org.ID, dist)
}

// wander continues the correlated random walk at wander_effort × max speed.
// It fails when that speed is zero.
func (w *World) wander(t *turn) (components.Action, bool) {
	speed := t.trait(traits.WanderEffort) * t.body.MaxSpeed
	if !(speed > 0) {
		return components.ActionNone, false
	}
	heading := systems.WanderHeading(w.rng, t.org.Heading, t.trait(traits.WanderFaith))
	w.move(t, heading, speed)
	return components.ActionWander, true
}

// flee runs at max speed toward the middle of the widest safe arc.
func (w *World) flee(t *turn, threats []systems.Threat) (components.Action, bool) {
	heading, fallback, ok := systems.FleeHeading(threats)
	if !ok {
		return components.ActionNone, false
	}
	if fallback {
		slog.Debug("no safe flee arc, running from nearest threat",
			"id", t.org.ID,
			"tick", w.tick,
			"threats", len(threats),
		)
	}
	w.move(t, heading, t.body.MaxSpeed)
	return components.ActionFlee, true
}

// eat moves min(amount left, unmet capacity) from the item into the critter.
func (w *World) eat(t *turn, e ecs.Entity) components.Action {
	food := w.foodMap.Get(e)
	taken := food.Bite(math.Min(food.Amount, t.vit.Deficit()))
	t.vit.AddEnergy(taken)
	w.stats.Eaten += taken
	w.observer.OnEat(t.org.ID, taken, false)
	if food.Depleted() {
		w.removeFood(e)
	}
	return components.ActionEat
}

// hunt kills the prey and takes min(prey energy, unmet capacity).
func (w *World) hunt(t *turn, prey ecs.Entity) components.Action {
	gain := math.Min(w.vitalsMap.Get(prey).Energy, t.vit.Deficit())
	t.vit.AddEnergy(gain)
	w.observer.OnEat(t.org.ID, gain, true)
	w.kill(prey, components.CausePredation)
	return components.ActionHunt
}

// mate recombines both genomes into a pending child. Only the initiator pays
// and gestates.
func (w *World) mate(t *turn, partner ecs.Entity) components.Action {
	_, _, _, gen, _, _, _ := w.critters.Get(partner)
	child := traits.CombineTraits(w.rng, t.gen.Traits, gen.Traits, t.sp.Spec)
	w.conceive(t, child)
	return components.ActionMate
}

// reproduceAsex conceives a mutated clone.
func (w *World) reproduceAsex(t *turn) (components.Action, bool) {
	if !w.canReproduce(t) {
		return components.ActionNone, false
	}
	w.conceive(t, traits.CloneTraits(w.rng, t.gen.Traits, t.sp.Spec))
	return components.ActionReproduce, true
}

// conceive pays the reproduction cost and queues the child. A running
// gestation keeps its countdown.
func (w *World) conceive(t *turn, child traits.Set) {
	t.vit.AddEnergy(-t.body.ReproCost)
	t.gest.Pending = append(t.gest.Pending, child)
	if !t.gest.Active {
		t.gest.Active = true
		t.gest.Countdown = t.body.Gestation
	}
}
