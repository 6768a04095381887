package sim

import (
	"fmt"
	"math"

	"github.com/pthm-cable/critters/biology"
	"github.com/pthm-cable/critters/config"
	"github.com/pthm-cable/critters/traits"
)

// Reproduction modes.
const (
	ReproSexual  = "sexual"
	ReproAsexual = "asexual"
)

// Species is the shared configuration of a group of critters. Behavior is
// driven by tags and weights rather than per-species code: a critter treats
// another as prey when its species hunts the other's tag, and as a threat
// when the reverse holds.
type Species struct {
	Name         string
	Tag          string
	Hunts        []string
	Eats         []string // food kind names
	Reproduction string
	MaxAge       int
	Threat       float64 // danger posed to prey
	Immortal     bool    // never ages, never hungry

	Traits traits.Set // starting values
	Spec   traits.Spec
	Bio    biology.Assumptions

	eats map[uint8]bool // resolved when the species joins a world
}

// NewSpecies builds a species from a resolved config entry.
func NewSpecies(cfg config.SpeciesConfig, base biology.Kleiber) (*Species, error) {
	bio, err := biology.Lookup(cfg.Biology, base)
	if err != nil {
		return nil, fmt.Errorf("%w: species %q: %v", ErrInvalidConfig, cfg.Name, err)
	}

	limits := make(map[string]traits.Bounds, len(cfg.Limits))
	for name, lim := range cfg.Limits {
		if len(lim) != 2 {
			return nil, fmt.Errorf("%w: species %q: limits for %q need [lower, upper], got %v", ErrInvalidConfig, cfg.Name, name, lim)
		}
		limits[name] = traits.Bounds{Lower: lim[0], Upper: lim[1]}
	}

	sp := &Species{
		Name:         cfg.Name,
		Tag:          cfg.Tag,
		Hunts:        cfg.Hunts,
		Eats:         cfg.Eats,
		Reproduction: cfg.Reproduction,
		MaxAge:       cfg.MaxAge,
		Threat:       cfg.Threat,
		Immortal:     cfg.Immortal,
		Traits:       traits.Set(cfg.Traits).Copy(),
		Spec: traits.Spec{
			Mutability: cfg.Mutability,
			DefaultCV:  cfg.DefaultCV,
			Limits:     limits,
		},
		Bio: bio,
	}
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	return sp, nil
}

// Validate checks the species for configuration errors.
func (s *Species) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: species has no name", ErrInvalidConfig)
	}
	if s.Bio == nil {
		return fmt.Errorf("%w: species %q has no biology", ErrInvalidConfig, s.Name)
	}
	switch s.Reproduction {
	case ReproSexual, ReproAsexual:
	case "":
		s.Reproduction = ReproSexual
	default:
		return fmt.Errorf("%w: species %q: unknown reproduction %q", ErrInvalidConfig, s.Name, s.Reproduction)
	}
	if s.MaxAge < 0 {
		return fmt.Errorf("%w: species %q: negative max age", ErrInvalidConfig, s.Name)
	}
	for _, name := range traits.NavConstants {
		if b, ok := s.Spec.Limits[name]; ok && b.Lower <= 0 {
			return fmt.Errorf("%w: species %q: lower bound of %s must be positive", ErrInvalidConfig, s.Name, name)
		}
	}
	if err := s.checkTraits(s.Traits); err != nil {
		return err
	}
	if err := s.Spec.Validate(s.Traits); err != nil {
		return fmt.Errorf("%w: species %q: %v", ErrInvalidConfig, s.Name, err)
	}
	return nil
}

// checkTraits rejects trait values no critter of this species may carry:
// non-positive nav constants or mass, and values outside the species limits.
func (s *Species) checkTraits(t traits.Set) error {
	for _, name := range traits.NavConstants {
		v := t.Value(name)
		if !(v > 0) || math.IsInf(v, 1) {
			return fmt.Errorf("%w: species %q: %s must be positive and finite, got %v", ErrInvalidConfig, s.Name, name, v)
		}
	}
	if m := t.Value(traits.Mass); !(m > 0) || math.IsInf(m, 1) {
		return fmt.Errorf("%w: species %q: mass must be positive and finite, got %v", ErrInvalidConfig, s.Name, m)
	}
	for name, b := range s.Spec.Limits {
		if v, ok := t[name]; ok && !b.Contains(v) {
			return fmt.Errorf("%w: species %q: %s = %v outside [%v, %v]", ErrInvalidConfig, s.Name, name, v, b.Lower, b.Upper)
		}
	}
	return nil
}

// Sexual reports whether offspring need a mate.
func (s *Species) Sexual() bool {
	return s.Reproduction != ReproAsexual
}

// HuntsTag reports whether this species preys on critters with the given tag.
func (s *Species) HuntsTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, h := range s.Hunts {
		if h == tag {
			return true
		}
	}
	return false
}

// Preys reports whether s hunts other.
func (s *Species) Preys(other *Species) bool {
	return s.HuntsTag(other.Tag)
}

// Competes reports whether s and other contend for the same food or prey.
func (s *Species) Competes(other *Species) bool {
	for k := range s.eats {
		if other.eats[k] {
			return true
		}
	}
	for _, h := range s.Hunts {
		if other.HuntsTag(h) {
			return true
		}
	}
	return false
}

// Danger is the threat this species poses to its prey. Hunters without a
// configured threat count as 1.
func (s *Species) Danger() float64 {
	if s.Threat > 0 {
		return s.Threat
	}
	return 1
}

// EatsKind reports whether food of the given kind is in the diet.
func (s *Species) EatsKind(kind uint8) bool {
	return s.eats[kind]
}
