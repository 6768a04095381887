// Package main provides CMA-ES optimization for critter simulation parameters.
package main

import (
	"github.com/pthm-cable/critters/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value

	get func(cfg *config.Config) float64
	set func(cfg *config.Config, v float64)
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// eachFood builds accessors for one field shared by every food kind.
func eachFood(field func(f *config.FoodConfig) *float64) (func(*config.Config) float64, func(*config.Config, float64)) {
	get := func(cfg *config.Config) float64 {
		if len(cfg.Food) == 0 {
			return 0
		}
		return *field(&cfg.Food[0])
	}
	set := func(cfg *config.Config, v float64) {
		for i := range cfg.Food {
			*field(&cfg.Food[i]) = v
		}
	}
	return get, set
}

// NewParamVector creates the standard set of optimizable parameters: food
// supply and the metabolic costs it has to cover.
func NewParamVector() *ParamVector {
	dropGet, dropSet := eachFood(func(f *config.FoodConfig) *float64 { return &f.DropRate })
	amountGet, amountSet := eachFood(func(f *config.FoodConfig) *float64 { return &f.Amount })

	return &ParamVector{
		Specs: []ParamSpec{
			// Food supply
			{Name: "abundance", Path: "world.abundance", Min: 0.2, Max: 3.0, Default: 1.0,
				get: func(c *config.Config) float64 { return c.World.Abundance },
				set: func(c *config.Config, v float64) { c.World.Abundance = v }},
			{Name: "drop_rate", Path: "food[*].drop_rate", Min: 2, Max: 40, Default: 15,
				get: dropGet, set: dropSet},
			{Name: "food_amount", Path: "food[*].amount", Min: 5, Max: 60, Default: 25,
				get: amountGet, set: amountSet},
			// Biology
			{Name: "upkeep_factor", Path: "biology.upkeep_factor", Min: 0.05, Max: 0.4, Default: 0.15,
				get: func(c *config.Config) float64 { return c.Biology.UpkeepFactor },
				set: func(c *config.Config, v float64) { c.Biology.UpkeepFactor = v }},
			{Name: "move_factor", Path: "biology.move_factor", Min: 0.005, Max: 0.1, Default: 0.03,
				get: func(c *config.Config) float64 { return c.Biology.MoveFactor },
				set: func(c *config.Config, v float64) { c.Biology.MoveFactor = v }},
			{Name: "repro_fraction", Path: "biology.repro_fraction", Min: 0.02, Max: 0.3, Default: 0.1,
				get: func(c *config.Config) float64 { return c.Biology.ReproFraction },
				set: func(c *config.Config, v float64) { c.Biology.ReproFraction = v }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = spec.get(cfg)
	}
	return out
}
