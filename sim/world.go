// Package sim implements the critter ecology engine: entity storage, the
// per-tick scheduler, critter decisions, food and reproduction.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/critters/components"
	"github.com/pthm-cable/critters/systems"
	"github.com/pthm-cable/critters/traits"
)

// Options configures a new World.
type Options struct {
	Size           float64 // side length of the square world
	TimeResolution float64 // 10 = reference resolution
	ChunkSize      float64 // 0 = Size/10

	Seed int64
	Rand *rand.Rand // overrides Seed when set

	Abundance      *float64 // nil = 1; 0 drops no food
	AbundanceDecay float64  // subtracted every AbundanceEvery ticks
	AbundanceEvery int
	AbundanceFloor float64

	// Debug checks every invariant after each tick and panics on a violation.
	Debug bool

	Observer Observer
}

// TickStats holds the counters of the last tick. They reset every tick.
type TickStats struct {
	Tick        int
	Population  int
	Food        int
	Births      int
	Starved     int
	OldAge      int
	Predation   int
	FoodDropped int
	FoodSpoiled int
	Eaten       float64 // energy taken from food items
	Actions     [components.NumActions]int
}

// Deaths is the sum of all death causes.
func (s TickStats) Deaths() int {
	return s.Starved + s.OldAge + s.Predation
}

// Totals holds counters accumulated over the whole run.
type Totals struct {
	Created   int // founders plus births
	Born      int
	Starved   int
	OldAge    int
	Predation int
}

// Alive is the population implied by the counters.
func (t Totals) Alive() int {
	return t.Created - t.Starved - t.OldAge - t.Predation
}

// World owns every critter and food item and advances them tick by tick.
type World struct {
	world *ecs.World
	rng   *rand.Rand

	critters *ecs.Map7[
		components.Position,
		components.Vitals,
		components.Organism,
		components.Genome,
		components.Body,
		components.Gestation,
		components.Perception,
	]
	critterFilter *ecs.Filter7[
		components.Position,
		components.Vitals,
		components.Organism,
		components.Genome,
		components.Body,
		components.Gestation,
		components.Perception,
	]
	foods      *ecs.Map2[components.Position, components.Food]
	foodFilter *ecs.Filter2[components.Position, components.Food]

	posMap    *ecs.Map1[components.Position]
	vitalsMap *ecs.Map1[components.Vitals]
	orgMap    *ecs.Map1[components.Organism]
	bodyMap   *ecs.Map1[components.Body]
	gestMap   *ecs.Map1[components.Gestation]
	foodMap   *ecs.Map1[components.Food]

	critterGrid *systems.ChunkGrid
	foodGrid    *systems.ChunkGrid

	species      []*Species
	speciesIndex map[string]int

	foodKinds []FoodKind
	foodIndex map[string]int
	dropRules []dropRule

	size           float64
	timeResolution float64
	tick           int
	abundance      float64
	abundanceDecay float64
	abundanceEvery int
	abundanceFloor float64
	nextID         uint32
	debug          bool

	stats    TickStats
	totals   Totals
	observer Observer

	scratch []ecs.Entity // removal batches
	nearby  []ecs.Entity // spatial query results
	order   []ecs.Entity // turn order of the current tick
}

// NewWorld creates an empty world at tick 0.
func NewWorld(opts Options) (*World, error) {
	if !(opts.Size > 0) || math.IsInf(opts.Size, 0) {
		return nil, fmt.Errorf("%w: world size %v must be positive and finite", ErrInvalidConfig, opts.Size)
	}
	if opts.TimeResolution == 0 {
		opts.TimeResolution = 10
	}
	if !(opts.TimeResolution > 0) {
		return nil, fmt.Errorf("%w: time resolution %v must be positive", ErrInvalidConfig, opts.TimeResolution)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = opts.Size / 10
	}
	abundance := 1.0
	if opts.Abundance != nil {
		abundance = *opts.Abundance
	}
	if !(abundance >= 0) || math.IsInf(abundance, 0) {
		return nil, fmt.Errorf("%w: abundance %v must be finite and non-negative", ErrInvalidConfig, abundance)
	}

	critterGrid, err := systems.NewChunkGrid(opts.Size, opts.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	foodGrid, err := systems.NewChunkGrid(opts.Size, opts.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(opts.Seed))
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	world := ecs.NewWorld()
	w := &World{
		world: world,
		rng:   rng,
		critters: ecs.NewMap7[
			components.Position,
			components.Vitals,
			components.Organism,
			components.Genome,
			components.Body,
			components.Gestation,
			components.Perception,
		](world),
		critterFilter: ecs.NewFilter7[
			components.Position,
			components.Vitals,
			components.Organism,
			components.Genome,
			components.Body,
			components.Gestation,
			components.Perception,
		](world),
		foods:      ecs.NewMap2[components.Position, components.Food](world),
		foodFilter: ecs.NewFilter2[components.Position, components.Food](world),
		posMap:     ecs.NewMap1[components.Position](world),
		vitalsMap:  ecs.NewMap1[components.Vitals](world),
		orgMap:     ecs.NewMap1[components.Organism](world),
		bodyMap:    ecs.NewMap1[components.Body](world),
		gestMap:    ecs.NewMap1[components.Gestation](world),
		foodMap:    ecs.NewMap1[components.Food](world),

		critterGrid:  critterGrid,
		foodGrid:     foodGrid,
		speciesIndex: make(map[string]int),
		foodIndex:    make(map[string]int),

		size:           opts.Size,
		timeResolution: opts.TimeResolution,
		abundance:      abundance,
		abundanceDecay: opts.AbundanceDecay,
		abundanceEvery: opts.AbundanceEvery,
		abundanceFloor: opts.AbundanceFloor,
		nextID:         1,
		debug:          opts.Debug,
		observer:       observer,
	}
	return w, nil
}

// New creates a world with default options, as a convenience for tests and
// embedding.
func New(size, timeResolution float64) (*World, error) {
	return NewWorld(Options{Size: size, TimeResolution: timeResolution})
}

// Size returns the side length of the world.
func (w *World) Size() float64 { return w.size }

// TimeResolution returns the time resolution the world was created with.
func (w *World) TimeResolution() float64 { return w.timeResolution }

// Tick returns the current tick.
func (w *World) Tick() int { return w.tick }

// Abundance returns the current food drop multiplier.
func (w *World) Abundance() float64 { return w.abundance }

// SetAbundance replaces the food drop multiplier.
func (w *World) SetAbundance(a float64) {
	w.abundance = math.Max(a, 0)
}

// Rand exposes the world's random source.
func (w *World) Rand() *rand.Rand { return w.rng }

// Stats returns the counters of the last tick.
func (w *World) Stats() TickStats { return w.stats }

// Totals returns the run-wide counters.
func (w *World) Totals() Totals { return w.totals }

// PopulationCount returns the number of live critters.
func (w *World) PopulationCount() int { return w.critterGrid.Len() }

// FoodCount returns the number of food items in the world.
func (w *World) FoodCount() int { return w.foodGrid.Len() }

// SpeciesCounts returns the live population of every registered species,
// including those with no survivors.
func (w *World) SpeciesCounts() map[string]int {
	out := make(map[string]int, len(w.species))
	for _, sp := range w.species {
		out[sp.Name] = 0
	}
	query := w.critterFilter.Query()
	for query.Next() {
		_, _, org, _, _, _, _ := query.Get()
		out[w.species[org.Species].Name]++
	}
	return out
}

// AddSpecies registers a species. Its diet must name known food kinds.
func (w *World) AddSpecies(sp *Species) error {
	if err := sp.Validate(); err != nil {
		return err
	}
	if _, dup := w.speciesIndex[sp.Name]; dup {
		return fmt.Errorf("%w: species %q registered twice", ErrInvalidConfig, sp.Name)
	}
	if len(w.species) > math.MaxUint8 {
		return fmt.Errorf("%w: too many species", ErrInvalidConfig)
	}
	sp.eats = make(map[uint8]bool, len(sp.Eats))
	for _, name := range sp.Eats {
		kind, ok := w.foodIndex[name]
		if !ok {
			return fmt.Errorf("%w: species %q eats unknown food kind %q", ErrInvalidConfig, sp.Name, name)
		}
		sp.eats[uint8(kind)] = true
	}
	w.speciesIndex[sp.Name] = len(w.species)
	w.species = append(w.species, sp)
	return nil
}

// Species looks up a registered species by name.
func (w *World) Species(name string) (*Species, bool) {
	idx, ok := w.speciesIndex[name]
	if !ok {
		return nil, false
	}
	return w.species[idx], true
}

// SpeciesNames returns registered species names in registration order.
func (w *World) SpeciesNames() []string {
	names := make([]string, len(w.species))
	for i, sp := range w.species {
		names[i] = sp.Name
	}
	return names
}

// Agent is a read-only snapshot of a critter for external consumers.
type Agent struct {
	Entity     ecs.Entity
	ID         uint32
	Species    string
	X, Y       float64
	Energy     float64
	MaxEnergy  float64
	Age        int
	MaxAge     int
	Generation int
	BirthTick  int
	Reach      float64
	PerCritter float64
	PerFood    float64
	Heading    float64
	Gestating  bool
	LastAction components.Action
	Traits     traits.Set
}

// Trait returns one heritable trait value.
func (a Agent) Trait(name string) float64 {
	return a.Traits.Value(name)
}

// FoodItem is a read-only snapshot of a food item.
type FoodItem struct {
	Entity     ecs.Entity
	Kind       string
	X, Y       float64
	Amount     float64
	Original   float64
	Expiration int
}

func (w *World) agentView(e ecs.Entity) Agent {
	pos, vit, org, gen, body, gest, _ := w.critters.Get(e)
	return Agent{
		Entity:     e,
		ID:         org.ID,
		Species:    w.species[org.Species].Name,
		X:          pos.X,
		Y:          pos.Y,
		Energy:     vit.Energy,
		MaxEnergy:  vit.MaxEnergy,
		Age:        vit.Age,
		MaxAge:     vit.MaxAge,
		Generation: org.Generation,
		BirthTick:  org.BirthTick,
		Reach:      body.Reach,
		PerCritter: body.PerCritter,
		PerFood:    body.PerFood,
		Heading:    org.Heading,
		Gestating:  gest.Active,
		LastAction: org.LastAction,
		Traits:     gen.Traits,
	}
}

// Agent returns a snapshot of one critter.
func (w *World) Agent(e ecs.Entity) (Agent, bool) {
	if !w.isCritter(e) {
		return Agent{}, false
	}
	return w.agentView(e), true
}

// AllAgents returns snapshots of every live critter, ordered by ID.
func (w *World) AllAgents() []Agent {
	out := make([]Agent, 0, w.critterGrid.Len())
	query := w.critterFilter.Query()
	for query.Next() {
		out = append(out, w.agentView(query.Entity()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllFood returns snapshots of every food item.
func (w *World) AllFood() []FoodItem {
	out := make([]FoodItem, 0, w.foodGrid.Len())
	query := w.foodFilter.Query()
	for query.Next() {
		pos, food := query.Get()
		out = append(out, FoodItem{
			Entity:     query.Entity(),
			Kind:       w.foodKinds[food.Kind].Name,
			X:          pos.X,
			Y:          pos.Y,
			Amount:     food.Amount,
			Original:   food.Original,
			Expiration: food.Expiration,
		})
	}
	return out
}

// isCritter reports whether e is a live, tracked critter.
func (w *World) isCritter(e ecs.Entity) bool {
	if _, _, ok := w.critterGrid.Locate(e); !ok {
		return false
	}
	return w.world.Alive(e)
}

// isFood reports whether e is a live, tracked food item.
func (w *World) isFood(e ecs.Entity) bool {
	if _, _, ok := w.foodGrid.Locate(e); !ok {
		return false
	}
	return w.world.Alive(e)
}

func (w *World) clampToWorld(v float64) float64 {
	return systems.Clamp(v, 0, w.size)
}

func (w *World) randomPosition() components.Position {
	return components.Position{X: w.rng.Float64() * w.size, Y: w.rng.Float64() * w.size}
}
