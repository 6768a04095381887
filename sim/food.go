package sim

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/mlange-42/ark/ecs"
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/critters/components"
	"github.com/pthm-cable/critters/systems"
)

// Food placement modes.
const (
	PlaceUniform = "uniform"
	PlacePerlin  = "perlin"
	PlaceSimplex = "simplex"
)

// placementTries bounds rejection sampling for patchy placement.
const placementTries = 64

// FoodKind describes one kind of food item.
type FoodKind struct {
	Name           string
	Amount         float64 // energy per item
	GoodFor        int     // ticks until expiration
	DecayRemaining float64
	DecayOriginal  float64
	Placement      string
	Patchiness     float64 // noise cycles across the world
}

// DefaultFoodKind returns the standard food item.
func DefaultFoodKind() FoodKind {
	return FoodKind{
		Name:           "berry",
		Amount:         25,
		GoodFor:        30,
		DecayRemaining: 0.02,
		DecayOriginal:  0.0004,
		Placement:      PlaceUniform,
	}
}

// noiseField samples a density value in roughly [-1, 1].
type noiseField interface {
	Noise2D(x, y float64) float64
}

// simplexField adapts OpenSimplex noise to noiseField.
type simplexField struct {
	noise opensimplex.Noise
}

func (s simplexField) Noise2D(x, y float64) float64 {
	return s.noise.Eval2(x, y)
}

type dropRule struct {
	kind  uint8
	mean  float64 // items per tick per 100x100 area at reference resolution
	cv    float64
	noise noiseField
}

// AddFoodKind registers a food kind so drop rules and diets can refer to it.
func (w *World) AddFoodKind(k FoodKind) error {
	if k.Name == "" {
		return fmt.Errorf("%w: food kind has no name", ErrInvalidConfig)
	}
	if _, dup := w.foodIndex[k.Name]; dup {
		return fmt.Errorf("%w: food kind %q registered twice", ErrInvalidConfig, k.Name)
	}
	if !(k.Amount > 0) || math.IsInf(k.Amount, 0) {
		return fmt.Errorf("%w: food kind %q: amount %v must be positive and finite", ErrInvalidConfig, k.Name, k.Amount)
	}
	if k.GoodFor <= 0 {
		return fmt.Errorf("%w: food kind %q: good_for must be positive", ErrInvalidConfig, k.Name)
	}
	if k.DecayRemaining < 0 || k.DecayOriginal < 0 {
		return fmt.Errorf("%w: food kind %q: negative decay", ErrInvalidConfig, k.Name)
	}
	switch k.Placement {
	case "":
		k.Placement = PlaceUniform
	case PlaceUniform, PlacePerlin, PlaceSimplex:
	default:
		return fmt.Errorf("%w: food kind %q: unknown placement %q", ErrInvalidConfig, k.Name, k.Placement)
	}
	if k.Patchiness <= 0 {
		k.Patchiness = 4
	}
	if len(w.foodKinds) > math.MaxUint8 {
		return fmt.Errorf("%w: too many food kinds", ErrInvalidConfig)
	}
	w.foodIndex[k.Name] = len(w.foodKinds)
	w.foodKinds = append(w.foodKinds, k)
	return nil
}

// FoodKinds returns the registered food kinds.
func (w *World) FoodKinds() []FoodKind {
	return append([]FoodKind(nil), w.foodKinds...)
}

// RegisterFoodDropRule adds a periodic drop of the named kind. mean is the
// expected number of items per tick per 100x100 area at abundance 1 and the
// reference time resolution; cv scales the Gaussian spread of the count.
func (w *World) RegisterFoodDropRule(kind string, mean, cv float64) error {
	idx, ok := w.foodIndex[kind]
	if !ok {
		return fmt.Errorf("%w: drop rule for unknown food kind %q", ErrInvalidConfig, kind)
	}
	if mean < 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return fmt.Errorf("%w: drop rule %q: mean %v must be finite and non-negative", ErrInvalidConfig, kind, mean)
	}
	if cv < 0 || math.IsNaN(cv) {
		return fmt.Errorf("%w: drop rule %q: cv %v is negative", ErrInvalidConfig, kind, cv)
	}

	rule := dropRule{kind: uint8(idx), mean: mean, cv: cv}
	switch w.foodKinds[idx].Placement {
	case PlacePerlin:
		rule.noise = perlin.NewPerlin(2, 2, 3, w.rng.Int63())
	case PlaceSimplex:
		rule.noise = simplexField{noise: opensimplex.New(w.rng.Int63())}
	}
	w.dropRules = append(w.dropRules, rule)
	return nil
}

// dropMean is the expected number of items a rule drops this tick.
func (w *World) dropMean(r dropRule) float64 {
	area := w.size * w.size / 10000
	return w.abundance * r.mean * area * w.timeResolution / 10
}

// dropFood runs every drop rule once.
func (w *World) dropFood() {
	for _, r := range w.dropRules {
		mean := w.dropMean(r)
		count := int(math.Round(mean + w.rng.NormFloat64()*mean*r.cv))
		for i := 0; i < count; i++ {
			w.spawnFood(r, w.placeFood(r))
		}
	}
}

// placeFood picks a location for a new item. Patchy kinds accept a uniform
// candidate with probability ((noise+1)/2)^2.
func (w *World) placeFood(r dropRule) components.Position {
	pos := w.randomPosition()
	if r.noise == nil {
		return pos
	}
	freq := w.foodKinds[r.kind].Patchiness / w.size
	for i := 0; i < placementTries; i++ {
		density := systems.Clamp((r.noise.Noise2D(pos.X*freq, pos.Y*freq)+1)/2, 0, 1)
		if w.rng.Float64() < density*density {
			break
		}
		pos = w.randomPosition()
	}
	return pos
}

func (w *World) spawnFood(r dropRule, pos components.Position) ecs.Entity {
	k := w.foodKinds[r.kind]
	food := components.Food{
		Kind:           r.kind,
		Amount:         k.Amount,
		Original:       k.Amount,
		Expiration:     w.tick + k.GoodFor,
		DecayRemaining: k.DecayRemaining,
		DecayOriginal:  k.DecayOriginal,
	}
	e := w.foods.NewEntity(&pos, &food)
	w.foodGrid.Insert(e, pos.X, pos.Y)
	w.stats.FoodDropped++
	return e
}

// AddFood places one item of the named kind at a fixed location.
func (w *World) AddFood(kind string, x, y float64) (ecs.Entity, error) {
	idx, ok := w.foodIndex[kind]
	if !ok {
		return ecs.Entity{}, fmt.Errorf("%w: unknown food kind %q", ErrInvalidConfig, kind)
	}
	pos := components.Position{X: w.clampToWorld(x), Y: w.clampToWorld(y)}
	return w.spawnFood(dropRule{kind: uint8(idx)}, pos), nil
}

// decayFood applies decay to every item and removes the spoiled ones.
func (w *World) decayFood() {
	spoiled := w.scratch[:0]
	query := w.foodFilter.Query()
	for query.Next() {
		_, food := query.Get()
		food.Amount = math.Max(food.Amount-food.Decay(), 0)
		if food.Depleted() || food.Expired(w.tick) {
			spoiled = append(spoiled, query.Entity())
		}
	}
	for _, e := range spoiled {
		w.removeFood(e)
		w.stats.FoodSpoiled++
	}
	w.scratch = spoiled[:0]
}

func (w *World) removeFood(e ecs.Entity) {
	w.foodGrid.Remove(e)
	w.world.RemoveEntity(e)
}

// SetupInitialFood seeds the world before critters arrive. It runs passes
// rounds of decay and drops ending at tick 0, so the initial items carry
// staggered ages. It fails once the world has started or holds critters.
func (w *World) SetupInitialFood(passes int) error {
	if w.tick != 0 || w.PopulationCount() > 0 {
		return fmt.Errorf("%w: initial food must be set up on an empty world at tick 0 (tick %d, %d critters)",
			ErrInvalidConfig, w.tick, w.PopulationCount())
	}
	if passes <= 0 {
		passes = 10
	}
	w.tick = -passes
	for w.tick < 0 {
		w.tick++
		w.decayFood()
		w.dropFood()
	}
	w.stats = TickStats{Food: w.foodGrid.Len()}
	return nil
}
