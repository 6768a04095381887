package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/critters/biology"
	"github.com/pthm-cable/critters/components"
	"github.com/pthm-cable/critters/traits"
)

func TestPreyFleesFromPredator(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		prey := loadSpecies(t, "critter")
		prey.Traits[traits.FleeRange] = 5
		w := newTestWorld(t, 100, seed, prey, loadSpecies(t, "hunter"))

		// Food right next to the prey must not distract it.
		if _, err := w.AddFood("berry", 50, 50); err != nil {
			t.Fatal(err)
		}
		p, err := w.AddAgent(AgentSpec{Species: "critter", At: at(50, 50), Energy: 0.2})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.AddAgent(AgentSpec{Species: "hunter", At: at(50, 50)}); err != nil {
			t.Fatal(err)
		}

		act, err := w.TakeTurn(p)
		if err != nil {
			t.Fatalf("TakeTurn: %v", err)
		}
		if act != components.ActionFlee {
			t.Errorf("seed %d: prey action = %s, want flee", seed, act)
		}
		a, _ := w.Agent(p)
		if a.X == 50 && a.Y == 50 {
			t.Errorf("seed %d: prey did not move", seed)
		}
		if err := w.CheckInvariants(); err != nil {
			t.Errorf("CheckInvariants: %v", err)
		}
	}
}

func TestHunterKillsPrey(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "critter"), loadSpecies(t, "hunter"))
	prey, err := w.AddAgent(AgentSpec{Species: "critter", At: at(20, 20)})
	if err != nil {
		t.Fatal(err)
	}
	hunter, err := w.AddAgent(AgentSpec{Species: "hunter", At: at(20, 20), Energy: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	before, _ := w.Agent(hunter)
	preyView, _ := w.Agent(prey)

	act, err := w.TakeTurn(hunter)
	if err != nil {
		t.Fatal(err)
	}
	if act != components.ActionHunt {
		t.Fatalf("hunter action = %s, want hunt", act)
	}

	after, _ := w.Agent(hunter)
	wantGain := math.Min(preyView.Energy, before.MaxEnergy-before.Energy)
	if math.Abs(after.Energy-before.Energy-wantGain) > 1e-9 {
		t.Errorf("hunter gained %v, want %v", after.Energy-before.Energy, wantGain)
	}
	if _, ok := w.Agent(prey); ok {
		t.Error("prey still alive")
	}
	if got := w.Totals().Predation; got != 1 {
		t.Errorf("Predation = %d, want 1", got)
	}
	if after.LastAction != components.ActionHunt {
		t.Errorf("LastAction = %s", after.LastAction)
	}

	if _, err := w.TakeTurn(prey); !errors.Is(err, ErrAgentRemoved) {
		t.Errorf("TakeTurn(dead prey) error = %v, want ErrAgentRemoved", err)
	}
	if err := w.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants: %v", err)
	}
}

func TestEatDepletesFood(t *testing.T) {
	sc := loadSpecies(t, "critter")
	sc.Eats = []string{"crumb"}
	w := newTestWorld(t, 100, 1)
	crumb := DefaultFoodKind()
	crumb.Name = "crumb"
	crumb.Amount = 5
	if err := w.AddFoodKind(crumb); err != nil {
		t.Fatal(err)
	}
	sp, err := NewSpecies(sc, KleiberFromConfig(loadConfig(t)))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddSpecies(sp); err != nil {
		t.Fatal(err)
	}

	// A berry in reach is not in the diet and must be ignored.
	if _, err := w.AddFood("berry", 30, 30); err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddFood("crumb", 30, 30); err != nil {
		t.Fatal(err)
	}
	e, err := w.AddAgent(AgentSpec{Species: "critter", At: at(30, 30), Energy: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	before, _ := w.Agent(e)

	act, err := w.TakeTurn(e)
	if err != nil {
		t.Fatal(err)
	}
	if act != components.ActionEat {
		t.Fatalf("action = %s, want eat", act)
	}

	after, _ := w.Agent(e)
	if math.Abs(after.Energy-before.Energy-5) > 1e-9 {
		t.Errorf("gained %v, want the whole crumb (5)", after.Energy-before.Energy)
	}
	food := w.AllFood()
	if len(food) != 1 || food[0].Kind != "berry" {
		t.Errorf("food left = %+v, want only the berry", food)
	}
	for _, f := range food {
		if f.Amount < 0 {
			t.Errorf("negative amount %v", f.Amount)
		}
	}
}

func TestEatTakesOnlyDeficit(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "critter"))
	if _, err := w.AddFood("berry", 10, 10); err != nil {
		t.Fatal(err)
	}
	e, err := w.AddAgent(AgentSpec{Species: "critter", At: at(10, 10), Energy: 0.6})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := w.Agent(e)
	deficit := a.MaxEnergy - a.Energy

	if act, _ := w.TakeTurn(e); act != components.ActionEat {
		t.Fatalf("action = %s, want eat", act)
	}
	after, _ := w.Agent(e)
	if math.Abs(after.Energy-after.MaxEnergy) > 1e-9 {
		t.Errorf("energy = %v, want full %v", after.Energy, after.MaxEnergy)
	}
	food := w.AllFood()
	if len(food) != 1 || math.Abs(food[0].Amount-(25-deficit)) > 1e-9 {
		t.Errorf("food left = %+v, want 25 - %v", food, deficit)
	}
}

func TestSeekFoodMovesTowardFood(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "critter"))
	if _, err := w.AddFood("berry", 60, 50); err != nil {
		t.Fatal(err)
	}
	e, err := w.AddAgent(AgentSpec{Species: "critter", At: at(50, 50), Energy: 0.1})
	if err != nil {
		t.Fatal(err)
	}

	act, err := w.TakeTurn(e)
	if err != nil {
		t.Fatal(err)
	}
	if act != components.ActionSeekFood {
		t.Fatalf("action = %s, want seek_food", act)
	}
	a, _ := w.Agent(e)
	if a.X <= 50 || math.Abs(a.Y-50) > 1e-9 {
		t.Errorf("moved to (%v, %v), want straight toward (60, 50)", a.X, a.Y)
	}
	if a.X > 60-a.Reach+1e-9 {
		t.Errorf("overshot: x = %v, reach %v", a.X, a.Reach)
	}
}

func TestSexualReproduction(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "critter"))
	mother, err := w.AddAgent(AgentSpec{Species: "critter", At: at(40, 40), Age: 20})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddAgent(AgentSpec{Species: "critter", At: at(40, 40), Age: 20}); err != nil {
		t.Fatal(err)
	}
	before, _ := w.Agent(mother)

	act, err := w.TakeTurn(mother)
	if err != nil {
		t.Fatal(err)
	}
	if act != components.ActionMate {
		t.Fatalf("action = %s, want mate", act)
	}
	a, _ := w.Agent(mother)
	if !a.Gestating {
		t.Fatal("mother not gestating after mating")
	}
	if want := before.Energy - 0.1*before.MaxEnergy; math.Abs(a.Energy-want) > 1e-9 {
		t.Errorf("energy after mating = %v, want %v", a.Energy, want)
	}

	born := false
	for i := 0; i < 10 && !born; i++ {
		act, err := w.TakeTurn(mother)
		if err != nil {
			t.Fatal(err)
		}
		born = act == components.ActionBirth
	}
	if !born {
		t.Fatal("no birth within 10 turns")
	}
	if got := w.PopulationCount(); got != 3 {
		t.Fatalf("PopulationCount() = %d, want 3", got)
	}

	var child Agent
	for _, ag := range w.AllAgents() {
		if ag.Generation == 1 {
			child = ag
		}
	}
	if child.ID == 0 {
		t.Fatal("no generation 1 child")
	}
	m, _ := w.Agent(mother)
	if m.Gestating {
		t.Error("mother still gestating after birth")
	}
	if child.Age != 0 || child.X != m.X || child.Y != m.Y {
		t.Errorf("child age %d at (%v, %v), mother at (%v, %v)", child.Age, child.X, child.Y, m.X, m.Y)
	}
	if math.Abs(child.Energy-0.15*before.MaxEnergy) > 0.5 {
		t.Errorf("child energy = %v, want about %v", child.Energy, 0.15*before.MaxEnergy)
	}
	if !child.Traits.SameNames(before.Traits) {
		t.Error("child trait names differ from parent")
	}
	if tot := w.Totals(); tot.Born != 1 || tot.Created != 3 {
		t.Errorf("totals = %+v", tot)
	}
	if err := w.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants: %v", err)
	}
}

func TestAsexualReproduction(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "budder"))
	e, err := w.AddAgent(AgentSpec{Species: "budder", At: at(40, 40), Age: 20})
	if err != nil {
		t.Fatal(err)
	}
	if act, _ := w.TakeTurn(e); act != components.ActionReproduce {
		t.Fatalf("action = %s, want reproduce", act)
	}

	// Below the reproduction threshold nothing is conceived.
	w2 := newTestWorld(t, 100, 1, loadSpecies(t, "budder"))
	e2, err := w2.AddAgent(AgentSpec{Species: "budder", At: at(40, 40), Age: 20, Energy: 0.65})
	if err != nil {
		t.Fatal(err)
	}
	if act, _ := w2.TakeTurn(e2); act == components.ActionReproduce {
		t.Error("reproduced below reproduction_threshold")
	}
}

func TestOldAgeBeforeStarvation(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "critter"))
	if _, err := w.AddAgent(AgentSpec{Species: "critter", Age: 50, Energy: 0.01}); err != nil {
		t.Fatal(err)
	}
	w.Step()
	s := w.Stats()
	if s.OldAge != 1 || s.Starved != 0 {
		t.Errorf("old age %d starved %d, want 1 and 0", s.OldAge, s.Starved)
	}
	if w.PopulationCount() != 0 {
		t.Errorf("PopulationCount() = %d", w.PopulationCount())
	}
}

func TestStarvation(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "critter"))
	if _, err := w.AddAgent(AgentSpec{Species: "critter", Energy: 0.01}); err != nil {
		t.Fatal(err)
	}
	w.Step()
	if s := w.Stats(); s.Starved != 1 {
		t.Errorf("Starved = %d, want 1", s.Starved)
	}
}

// headingChangeVariance runs a single lab rat for n ticks and returns the
// variance of its turn-to-turn heading change.
func headingChangeVariance(t *testing.T, faith float64, n int) float64 {
	t.Helper()
	sc := loadSpecies(t, "labrat")
	sc.Traits[traits.WanderFaith] = faith
	w := newTestWorld(t, 1000, 11, sc)
	e, err := w.AddAgent(AgentSpec{Species: "labrat", At: at(500, 500)})
	if err != nil {
		t.Fatal(err)
	}

	a, _ := w.Agent(e)
	last := a.Heading
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		w.Step()
		a, ok := w.Agent(e)
		if !ok {
			t.Fatalf("lab rat died at tick %d", w.Tick())
		}
		if a.LastAction != components.ActionWander {
			t.Fatalf("tick %d: lab rat action = %s, want wander", w.Tick(), a.LastAction)
		}
		d := math.Remainder(a.Heading-last, 2*math.Pi)
		sum += d
		sumSq += d * d
		last = a.Heading
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

func TestLabRatWanderFaith(t *testing.T) {
	loose := headingChangeVariance(t, 1, 1000)
	straight := headingChangeVariance(t, 40, 1000)
	if straight >= loose {
		t.Errorf("heading change variance: faith 40 = %v, faith 1 = %v; want higher faith straighter", straight, loose)
	}
	if straight > 0.05 {
		t.Errorf("faith 40 variance = %v, want about 1/40", straight)
	}
}

func TestPopulationAccounting(t *testing.T) {
	ticks := 5000
	if testing.Short() {
		ticks = 300
	}

	cfg := loadConfig(t)
	w, err := NewWorld(Options{Size: 400, ChunkSize: 40, Abundance: ptr(0.3), Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := w.SetupInitialFood(10); err != nil {
		t.Fatal(err)
	}
	if err := w.Spawn("critter", 50, 1); err != nil {
		t.Fatal(err)
	}

	prev := w.PopulationCount()
	for i := 0; i < ticks && w.PopulationCount() > 0; i++ {
		w.Step()
		s := w.Stats()
		if s.Population < 0 {
			t.Fatalf("tick %d: negative population", s.Tick)
		}
		if prev+s.Births-s.Deaths() != s.Population {
			t.Fatalf("tick %d: %d + %d born - %d died != %d alive", s.Tick, prev, s.Births, s.Deaths(), s.Population)
		}
		tot := w.Totals()
		if tot.Alive() != s.Population {
			t.Fatalf("tick %d: created %d, starved %d, old age %d, predation %d, but %d alive",
				s.Tick, tot.Created, tot.Starved, tot.OldAge, tot.Predation, s.Population)
		}
		if s.Tick%250 == 0 {
			if err := w.CheckInvariants(); err != nil {
				t.Fatalf("tick %d: %v", s.Tick, err)
			}
		}
		prev = s.Population
	}
}

func TestDeterministicRuns(t *testing.T) {
	run := func() []Agent {
		cfg := loadConfig(t)
		w, err := FromConfig(cfg, Options{Seed: 99})
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 50; i++ {
			w.Step()
		}
		return w.AllAgents()
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("population %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].X != b[i].X || a[i].Y != b[i].Y || a[i].Energy != b[i].Energy {
			t.Fatalf("agent %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPerceptionCachedPerTick(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "critter"))
	watcher, err := w.AddAgent(AgentSpec{Species: "critter", At: at(50, 50)})
	if err != nil {
		t.Fatal(err)
	}
	other, err := w.AddAgent(AgentSpec{Species: "critter", At: at(55, 50)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddFood("berry", 60, 50); err != nil {
		t.Fatal(err)
	}

	tr := w.load(watcher)
	w.perceive(&tr)
	if len(tr.per.Critters) != 1 || tr.per.Critters[0].Entity != other {
		t.Fatalf("critters seen = %+v, want the neighbour", tr.per.Critters)
	}
	if len(tr.per.Food) != 1 {
		t.Fatalf("food seen = %+v, want one item", tr.per.Food)
	}
	if tr.per.CrittersTick != w.Tick() || tr.per.FoodTick != w.Tick() {
		t.Errorf("cache keyed to ticks %d/%d, want %d", tr.per.CrittersTick, tr.per.FoodTick, w.Tick())
	}

	// Move the neighbour out of sight within the same tick.
	p := w.posMap.Get(other)
	p.X = 95
	w.critterGrid.Relocate(other, 95, 50)

	tr = w.load(watcher)
	w.perceive(&tr)
	if len(tr.per.Critters) != 1 || math.Abs(tr.per.Critters[0].Dist-5) > 1e-9 {
		t.Errorf("same tick: critters seen = %+v, want the cached sighting at 5", tr.per.Critters)
	}

	// Advance the clock without running any turns.
	w.tick++
	tr = w.load(watcher)
	w.perceive(&tr)
	if len(tr.per.Critters) != 0 {
		t.Errorf("next tick: critters seen = %+v, want none", tr.per.Critters)
	}
	if len(tr.per.Food) != 1 {
		t.Errorf("next tick: food seen = %+v, want one item", tr.per.Food)
	}
	if tr.per.CrittersTick != w.Tick() || tr.per.FoodTick != w.Tick() {
		t.Errorf("cache keyed to ticks %d/%d, want %d", tr.per.CrittersTick, tr.per.FoodTick, w.Tick())
	}
}

func TestSeekMateMovesTowardMate(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "critter"))
	e, err := w.AddAgent(AgentSpec{Species: "critter", At: at(40, 40), Age: 40})
	if err != nil {
		t.Fatal(err)
	}
	mate, err := w.AddAgent(AgentSpec{Species: "critter", At: at(45, 40), Age: 40})
	if err != nil {
		t.Fatal(err)
	}

	act, err := w.TakeTurn(e)
	if err != nil {
		t.Fatal(err)
	}
	if act != components.ActionSeekMate {
		t.Fatalf("action = %s, want seek_mate", act)
	}
	a, _ := w.Agent(e)
	if a.X <= 40 || math.Abs(a.Y-40) > 1e-9 {
		t.Errorf("moved to (%v, %v), want straight toward (45, 40)", a.X, a.Y)
	}
	if a.X > 45-a.Reach+1e-9 {
		t.Errorf("overshot: x = %v, reach %v", a.X, a.Reach)
	}
	if a.Gestating {
		t.Error("conceived with a mate out of reach")
	}
	if m, _ := w.Agent(mate); m.X != 45 || m.Gestating {
		t.Errorf("mate changed: %+v", m)
	}
}

func TestSeekFoodFieldPenalties(t *testing.T) {
	tests := []struct {
		name   string
		other  string
		trait  string
		weight float64
		want   components.Action
	}{
		{"weak predator penalty", "hunter", traits.WeightPredator, 4, components.ActionSeekFood},
		{"strong predator penalty", "hunter", traits.WeightPredator, 20, components.ActionWander},
		{"weak competitor penalty", "saver", traits.WeightCompetitor, 0.1, components.ActionSeekFood},
		{"strong competitor penalty", "saver", traits.WeightCompetitor, 50, components.ActionWander},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prey := loadSpecies(t, "critter")
			prey.Traits[tt.trait] = tt.weight
			w := newTestWorld(t, 100, 1, prey, loadSpecies(t, tt.other))

			// Food 5 west, the other critter 6 west: both on the same bearing,
			// outside reach and outside flee range.
			if _, err := w.AddFood("berry", 45, 50); err != nil {
				t.Fatal(err)
			}
			e, err := w.AddAgent(AgentSpec{Species: "critter", At: at(50, 50), Energy: 0.2})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := w.AddAgent(AgentSpec{Species: tt.other, At: at(44, 50)}); err != nil {
				t.Fatal(err)
			}

			act, err := w.TakeTurn(e)
			if err != nil {
				t.Fatal(err)
			}
			if act != tt.want {
				t.Errorf("action = %s, want %s", act, tt.want)
			}
		})
	}
}

func TestIdleWhenEveryActionFails(t *testing.T) {
	sc := loadSpecies(t, "critter")
	sc.Traits[traits.WanderEffort] = 0

	w, err := NewWorld(Options{Size: 100, Seed: 1, Debug: true, Abundance: ptr(0.0)})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddFoodKind(DefaultFoodKind()); err != nil {
		t.Fatal(err)
	}
	sp, err := NewSpecies(sc, biology.DefaultKleiber(w.TimeResolution()))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddSpecies(sp); err != nil {
		t.Fatal(err)
	}

	// Hungry with no food, no threats and too young to mate.
	e, err := w.AddAgent(AgentSpec{Species: "critter", At: at(30, 30), Energy: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	before, _ := w.Agent(e)
	upkeep := w.bodyMap.Get(e).Upkeep

	w.Step()

	a, ok := w.Agent(e)
	if !ok {
		t.Fatal("idle critter died")
	}
	if a.LastAction != components.ActionNone {
		t.Errorf("LastAction = %s, want none", a.LastAction)
	}
	if a.X != 30 || a.Y != 30 {
		t.Errorf("idle critter moved to (%v, %v)", a.X, a.Y)
	}
	if got := w.Stats().Actions[components.ActionNone]; got != 1 {
		t.Errorf("Actions[none] = %d, want 1", got)
	}
	if math.Abs(before.Energy-a.Energy-upkeep) > 1e-9 {
		t.Errorf("energy dropped by %v, want only upkeep %v", before.Energy-a.Energy, upkeep)
	}
}

func TestRunStopsWhenCallbackDeclines(t *testing.T) {
	w := newTestWorld(t, 100, 1, loadSpecies(t, "labrat"))
	if _, err := w.AddAgent(AgentSpec{Species: "labrat"}); err != nil {
		t.Fatal(err)
	}

	calls := 0
	n := w.Run(100, func(*World) bool {
		calls++
		return calls < 7
	})
	if n != 7 || w.Tick() != 7 {
		t.Errorf("ran %d ticks (tick %d), want 7", n, w.Tick())
	}
	if n := w.Run(5, nil); n != 5 {
		t.Errorf("Run(5) = %d", n)
	}

	empty := newTestWorld(t, 100, 1)
	if n := empty.Run(10, nil); n != 0 {
		t.Errorf("empty world ran %d ticks, want 0", n)
	}
}
