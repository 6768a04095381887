package sim

import "github.com/pthm-cable/critters/components"

// Observer receives lifecycle events synchronously from Step.
type Observer interface {
	// OnBirth is called when a critter enters the world. parentID is 0 for founders.
	OnBirth(child Agent, parentID uint32)
	// OnEat is called when a critter gains energy from food or prey.
	OnEat(id uint32, amount float64, prey bool)
	// OnMove is called after a critter moves.
	OnMove(id uint32, dist float64)
	// OnDeath is called just before a critter is removed.
	OnDeath(a Agent, cause components.Cause)
}

type nopObserver struct{}

func (nopObserver) OnBirth(Agent, uint32) {}
func (nopObserver) OnEat(uint32, float64, bool) {}
func (nopObserver) OnMove(uint32, float64) {}
func (nopObserver) OnDeath(Agent, components.Cause) {}
