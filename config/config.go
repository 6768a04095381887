// Package config provides configuration loading and access for the simulation.
package config

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Biology    BiologyConfig    `yaml:"biology"`
	Food       []FoodConfig     `yaml:"food"`
	Species    []SpeciesConfig  `yaml:"species"`
	Population PopulationConfig `yaml:"population"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds world geometry and the food scarcity schedule.
type WorldConfig struct {
	Size           float64 `yaml:"size"`            // side length of the square world
	ChunkSize      float64 `yaml:"chunk_size"`      // must divide size
	TimeResolution float64 `yaml:"time_resolution"` // 10 = reference resolution
	Abundance      float64 `yaml:"abundance"`       // food drop multiplier
	AbundanceDecay float64 `yaml:"abundance_decay"` // subtracted every abundance_every ticks
	AbundanceEvery int     `yaml:"abundance_every"`
	AbundanceFloor float64 `yaml:"abundance_floor"`
	SetupTicks     int     `yaml:"setup_ticks"` // food pre-seeding passes before critters arrive
	Seed           int64   `yaml:"seed"`
	MaxTicks       int     `yaml:"max_ticks"`
}

// BiologyConfig holds the coefficients of the default biology profile.
type BiologyConfig struct {
	ReferenceMass  float64 `yaml:"reference_mass"`
	ReachFactor    float64 `yaml:"reach_factor"`
	EnergyPerMass  float64 `yaml:"energy_per_mass"`
	UpkeepFactor   float64 `yaml:"upkeep_factor"`
	MoveFactor     float64 `yaml:"move_factor"`
	ReproFraction  float64 `yaml:"repro_fraction"`
	AdultFraction  float64 `yaml:"adult_fraction"`
	GestationShare float64 `yaml:"gestation_share"`
}

// FoodConfig declares a food kind and its drop rule.
type FoodConfig struct {
	Name           string  `yaml:"name"`
	Amount         float64 `yaml:"amount"`          // energy per item
	GoodFor        int     `yaml:"good_for"`        // ticks until expiration
	DecayRemaining float64 `yaml:"decay_remaining"` // per-tick fraction of what is left
	DecayOriginal  float64 `yaml:"decay_original"`  // per-tick fraction of the original amount
	DropRate       float64 `yaml:"drop_rate"`       // mean items per tick per 100x100 area
	DropCV         float64 `yaml:"drop_cv"`
	Placement      string  `yaml:"placement"`  // uniform | perlin | simplex
	Patchiness     float64 `yaml:"patchiness"` // noise frequency, cycles across the world
}

// SpeciesConfig declares a species. A species may extend another; its maps
// are layered over the parent's and its non-zero scalars replace the parent's.
type SpeciesConfig struct {
	Name         string               `yaml:"name"`
	Extends      string               `yaml:"extends,omitempty"`
	Tag          string               `yaml:"tag,omitempty"`          // predation hierarchy tag
	Hunts        []string             `yaml:"hunts,omitempty"`        // tags this species preys on
	Eats         []string             `yaml:"eats,omitempty"`         // food kinds in the diet
	Reproduction string               `yaml:"reproduction,omitempty"` // sexual | asexual
	Biology      string               `yaml:"biology,omitempty"`      // biology profile name
	MaxAge       int                  `yaml:"max_age,omitempty"`
	Threat       float64              `yaml:"threat,omitempty"`   // danger posed to prey
	Immortal     bool                 `yaml:"immortal,omitempty"` // never ages, never hungry
	Traits       map[string]float64   `yaml:"traits,omitempty"`
	Mutability   map[string]float64   `yaml:"mutability,omitempty"`
	DefaultCV    float64              `yaml:"default_cv,omitempty"`
	Limits       map[string][]float64 `yaml:"limits,omitempty"` // [lower, upper]
}

// PopulationConfig holds the initial population.
type PopulationConfig struct {
	InitialEnergy float64        `yaml:"initial_energy"` // fraction of max energy
	Counts        map[string]int `yaml:"counts"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogEvery  int    `yaml:"log_every"` // ticks between stats log lines
	OutputDir string `yaml:"output_dir"`
	StatsDB   string `yaml:"stats_db"`
	Report    bool   `yaml:"report"` // log the species trait report at exit
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Species      []SpeciesConfig // with extends resolved
	SpeciesIndex map[string]int
	FoodIndex    map[string]int
}

// global holds the loaded configuration.
var global *Config

// Init loads the named scenario and the file at path over the embedded
// defaults and installs the result as the global configuration. Either
// argument may be empty. Must be called before Cfg().
func Init(scenario, path string) error {
	cfg, err := LoadScenario(scenario, path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(scenario, path string) {
	if err := Init(scenario, path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	return LoadScenario("", path)
}

// LoadScenario layers embedded defaults, then the named scenario, then the
// user file at path. Either name or path may be empty. Lists (food, species)
// in a later layer replace earlier ones; maps merge key by key.
func LoadScenario(name, path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if name != "" {
		data, err := scenarioFS.ReadFile("scenarios/" + name + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("unknown scenario %q (known: %s)", name, strings.Join(Scenarios(), ", "))
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing scenario %q: %w", name, err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Scenarios lists the embedded scenario names.
func Scenarios() []string {
	entries, err := scenarioFS.ReadDir("scenarios")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// computeDerived resolves species inheritance and builds lookup indices.
func (c *Config) computeDerived() error {
	c.Derived.FoodIndex = make(map[string]int, len(c.Food))
	for i, f := range c.Food {
		if f.Name == "" {
			return fmt.Errorf("food kind %d has no name", i)
		}
		if _, dup := c.Derived.FoodIndex[f.Name]; dup {
			return fmt.Errorf("food kind %q declared twice", f.Name)
		}
		c.Derived.FoodIndex[f.Name] = i
	}

	byName := make(map[string]SpeciesConfig, len(c.Species))
	for i, s := range c.Species {
		if s.Name == "" {
			return fmt.Errorf("species %d has no name", i)
		}
		if _, dup := byName[s.Name]; dup {
			return fmt.Errorf("species %q declared twice", s.Name)
		}
		byName[s.Name] = s
	}

	c.Derived.Species = make([]SpeciesConfig, 0, len(c.Species))
	c.Derived.SpeciesIndex = make(map[string]int, len(c.Species))
	for _, s := range c.Species {
		resolved, err := resolveSpecies(s, byName, map[string]bool{})
		if err != nil {
			return err
		}
		for _, kind := range resolved.Eats {
			if _, ok := c.Derived.FoodIndex[kind]; !ok {
				return fmt.Errorf("species %q eats unknown food kind %q", s.Name, kind)
			}
		}
		c.Derived.SpeciesIndex[s.Name] = len(c.Derived.Species)
		c.Derived.Species = append(c.Derived.Species, resolved)
	}

	for name, n := range c.Population.Counts {
		if _, ok := c.Derived.SpeciesIndex[name]; !ok && n > 0 {
			return fmt.Errorf("population references unknown species %q", name)
		}
	}
	return nil
}

// resolveSpecies flattens the extends chain of s.
func resolveSpecies(s SpeciesConfig, byName map[string]SpeciesConfig, visiting map[string]bool) (SpeciesConfig, error) {
	if s.Extends == "" {
		return s, nil
	}
	if visiting[s.Name] {
		return SpeciesConfig{}, fmt.Errorf("species %q extends itself through a cycle", s.Name)
	}
	visiting[s.Name] = true

	parent, ok := byName[s.Extends]
	if !ok {
		return SpeciesConfig{}, fmt.Errorf("species %q extends unknown species %q", s.Name, s.Extends)
	}
	base, err := resolveSpecies(parent, byName, visiting)
	if err != nil {
		return SpeciesConfig{}, err
	}
	return MergeSpecies(base, s), nil
}

// MergeSpecies layers override on top of base. Neither input is modified.
func MergeSpecies(base, override SpeciesConfig) SpeciesConfig {
	out := base
	out.Name = override.Name
	out.Extends = ""
	if override.Tag != "" {
		out.Tag = override.Tag
	}
	if override.Hunts != nil {
		out.Hunts = append([]string(nil), override.Hunts...)
	}
	if override.Eats != nil {
		out.Eats = append([]string(nil), override.Eats...)
	}
	if override.Reproduction != "" {
		out.Reproduction = override.Reproduction
	}
	if override.Biology != "" {
		out.Biology = override.Biology
	}
	if override.MaxAge != 0 {
		out.MaxAge = override.MaxAge
	}
	if override.Threat != 0 {
		out.Threat = override.Threat
	}
	if override.DefaultCV != 0 {
		out.DefaultCV = override.DefaultCV
	}
	out.Immortal = base.Immortal || override.Immortal
	out.Traits = mergeFloats(base.Traits, override.Traits)
	out.Mutability = mergeFloats(base.Mutability, override.Mutability)

	out.Limits = make(map[string][]float64, len(base.Limits)+len(override.Limits))
	for k, v := range base.Limits {
		out.Limits[k] = v
	}
	for k, v := range override.Limits {
		out.Limits[k] = v
	}
	return out
}

func mergeFloats(base, override map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
