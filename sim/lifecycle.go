package sim

import (
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/critters/components"
	"github.com/pthm-cable/critters/traits"
)

// AgentSpec describes a critter to add to the world.
type AgentSpec struct {
	Species    string
	At         *components.Position // nil places the critter uniformly at random
	Energy     float64              // fraction of max energy; 0 means full
	Traits     traits.Set           // nil uses the species defaults
	Age        int
	Generation int
}

// AddAgent places one critter in the world and returns its entity. Traits
// supplied by the caller must fit the species: positive nav constants and
// mass, and every value within the species limits.
func (w *World) AddAgent(spec AgentSpec) (ecs.Entity, error) {
	idx, ok := w.speciesIndex[spec.Species]
	if !ok {
		return ecs.Entity{}, fmt.Errorf("%w: unknown species %q", ErrInvalidConfig, spec.Species)
	}
	sp := w.species[idx]

	if spec.Traits == nil {
		spec.Traits = sp.Traits
	} else if !spec.Traits.SameNames(sp.Traits) {
		return ecs.Entity{}, fmt.Errorf("%w: traits for %q do not match the species trait names", ErrInvalidConfig, sp.Name)
	} else if err := sp.checkTraits(spec.Traits); err != nil {
		return ecs.Entity{}, err
	}
	return w.place(uint8(idx), spec), nil
}

// place creates a founder from already validated traits.
func (w *World) place(idx uint8, spec AgentSpec) ecs.Entity {
	sp := w.species[idx]
	t := spec.Traits.Copy()

	pos := w.randomPosition()
	if spec.At != nil {
		pos = components.Position{X: w.clampToWorld(spec.At.X), Y: w.clampToWorld(spec.At.Y)}
	}

	frac := spec.Energy
	if frac <= 0 {
		frac = 1
	}
	maxEnergy := sp.Bio.MaxEnergy(t.Value(traits.Mass))
	e := w.newCritter(idx, t, pos, frac*maxEnergy, spec.Age, spec.Generation)
	w.observer.OnBirth(w.agentView(e), 0)
	return e
}

// AddAgents adds every spec, stopping at the first error.
func (w *World) AddAgents(specs []AgentSpec) ([]ecs.Entity, error) {
	out := make([]ecs.Entity, 0, len(specs))
	for _, s := range specs {
		e, err := w.AddAgent(s)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Spawn adds n founders of a species at random locations. Founder traits are
// mutated from the species defaults so the population starts with variation;
// mutation stays within the species limits.
func (w *World) Spawn(species string, n int, energy float64) error {
	idx, ok := w.speciesIndex[species]
	if !ok {
		return fmt.Errorf("%w: unknown species %q", ErrInvalidConfig, species)
	}
	sp := w.species[idx]
	for i := 0; i < n; i++ {
		w.place(uint8(idx), AgentSpec{
			Species: species,
			Energy:  energy,
			Traits:  traits.CloneTraits(w.rng, sp.Traits, sp.Spec),
		})
	}
	return nil
}

func (w *World) newCritter(species uint8, t traits.Set, pos components.Position, energy float64, age, generation int) ecs.Entity {
	sp := w.species[species]
	body := components.DeriveBody(t, sp.MaxAge, sp.Bio)
	vit := components.Vitals{MaxEnergy: body.MaxEnergy, Age: age, MaxAge: sp.MaxAge}
	vit.SetEnergy(energy)
	org := components.Organism{
		ID:         w.nextID,
		Species:    species,
		Generation: generation,
		BirthTick:  w.tick,
		Heading:    w.rng.Float64() * 2 * math.Pi,
	}
	w.nextID++
	gen := components.Genome{Traits: t}
	gest := components.Gestation{}
	per := components.NewPerception()

	e := w.critters.NewEntity(&pos, &vit, &org, &gen, &body, &gest, &per)
	w.critterGrid.Insert(e, pos.X, pos.Y)
	w.totals.Created++
	return e
}

// kill removes a critter and records the cause.
func (w *World) kill(e ecs.Entity, cause components.Cause) {
	a := w.agentView(e)
	switch cause {
	case components.CauseStarved:
		w.stats.Starved++
		w.totals.Starved++
	case components.CauseOldAge:
		w.stats.OldAge++
		w.totals.OldAge++
	case components.CausePredation:
		w.stats.Predation++
		w.totals.Predation++
	}
	w.observer.OnDeath(a, cause)

	_, _, _, _, _, _, per := w.critters.Get(e)
	per.Wipe()
	w.critterGrid.Remove(e)
	w.world.RemoveEntity(e)
}

// deliver instantiates every pending offspring at the parent's location.
// Each child takes min(energy, energy_inheritance × max energy) from the
// parent.
func (w *World) deliver(e ecs.Entity) int {
	pos, vit, org, gen, _, gest, _ := w.critters.Get(e)

	type birth struct {
		traits traits.Set
		energy float64
	}
	inherit := gen.Traits.Value(traits.EnergyInheritance)
	births := make([]birth, 0, len(gest.Pending))
	for _, t := range gest.Pending {
		donation := math.Max(math.Min(vit.Energy, inherit*vit.MaxEnergy), 0)
		vit.AddEnergy(-donation)
		births = append(births, birth{traits: t, energy: donation})
	}
	gest.Clear()
	org.LastAction = components.ActionBirth

	at := *pos
	species, generation, parentID := org.Species, org.Generation+1, org.ID

	// New entities may move component storage; no pointers are used past here.
	for _, b := range births {
		child := w.newCritter(species, b.traits, at, b.energy, 0, generation)
		w.stats.Births++
		w.totals.Born++
		w.observer.OnBirth(w.agentView(child), parentID)
	}
	return len(births)
}
