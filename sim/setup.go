package sim

import (
	"fmt"
	"sort"

	"github.com/pthm-cable/critters/biology"
	"github.com/pthm-cable/critters/config"
)

// OptionsFromConfig maps the world section of cfg to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	wc := cfg.World
	abundance := wc.Abundance
	return Options{
		Size:           wc.Size,
		TimeResolution: wc.TimeResolution,
		ChunkSize:      wc.ChunkSize,
		Seed:           wc.Seed,
		Abundance:      &abundance,
		AbundanceDecay: wc.AbundanceDecay,
		AbundanceEvery: wc.AbundanceEvery,
		AbundanceFloor: wc.AbundanceFloor,
	}
}

// KleiberFromConfig builds the default biology profile from cfg.
func KleiberFromConfig(cfg *config.Config) biology.Kleiber {
	bc := cfg.Biology
	k := biology.DefaultKleiber(cfg.World.TimeResolution)
	set := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	set(&k.ReferenceMass, bc.ReferenceMass)
	set(&k.ReachFactor, bc.ReachFactor)
	set(&k.EnergyPerMass, bc.EnergyPerMass)
	set(&k.UpkeepFactor, bc.UpkeepFactor)
	set(&k.MoveFactor, bc.MoveFactor)
	set(&k.ReproFraction, bc.ReproFraction)
	set(&k.AdultFraction, bc.AdultFraction)
	set(&k.GestationShare, bc.GestationShare)
	return k
}

// FromConfig builds a populated world: food kinds and drop rules, species,
// pre-seeded food and the initial population.
func FromConfig(cfg *config.Config, opts Options) (*World, error) {
	base := OptionsFromConfig(cfg)
	base.Rand = opts.Rand
	base.Debug = opts.Debug
	base.Observer = opts.Observer
	if opts.Seed != 0 {
		base.Seed = opts.Seed
	}

	w, err := NewWorld(base)
	if err != nil {
		return nil, err
	}
	if err := w.Configure(cfg); err != nil {
		return nil, err
	}

	if err := w.SetupInitialFood(cfg.World.SetupTicks); err != nil {
		return nil, err
	}

	// Sorted so a seed always yields the same founders.
	names := make([]string, 0, len(cfg.Population.Counts))
	for name := range cfg.Population.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.Spawn(name, cfg.Population.Counts[name], cfg.Population.InitialEnergy); err != nil {
			return nil, fmt.Errorf("spawning %s: %w", name, err)
		}
	}
	return w, nil
}

// Configure registers the food kinds, drop rules and species declared in cfg.
func (w *World) Configure(cfg *config.Config) error {
	for _, f := range cfg.Food {
		kind := FoodKind{
			Name:           f.Name,
			Amount:         f.Amount,
			GoodFor:        f.GoodFor,
			DecayRemaining: f.DecayRemaining,
			DecayOriginal:  f.DecayOriginal,
			Placement:      f.Placement,
			Patchiness:     f.Patchiness,
		}
		if err := w.AddFoodKind(kind); err != nil {
			return err
		}
		if err := w.RegisterFoodDropRule(f.Name, f.DropRate, f.DropCV); err != nil {
			return err
		}
	}

	base := KleiberFromConfig(cfg)
	for _, sc := range cfg.Derived.Species {
		sp, err := NewSpecies(sc, base)
		if err != nil {
			return err
		}
		if err := w.AddSpecies(sp); err != nil {
			return err
		}
	}
	return nil
}
