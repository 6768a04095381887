// Package components defines ECS components for the simulation.
package components

// Food is a decaying energy resource lying at a Position.
type Food struct {
	Kind       uint8   // index into the world's food kind table
	Amount     float64 // remaining energy
	Original   float64 // energy at drop time
	Expiration int     // tick at which the item rots away

	// Per-tick decay: DecayRemaining × Amount + DecayOriginal × Original.
	DecayRemaining float64
	DecayOriginal  float64
}

// Decay returns how much the item loses this tick.
func (f *Food) Decay() float64 {
	return f.DecayRemaining*f.Amount + f.DecayOriginal*f.Original
}

// Bite removes up to size from the item and returns the amount actually taken.
// Amount never goes below zero.
func (f *Food) Bite(size float64) float64 {
	if size <= 0 {
		return 0
	}
	if size > f.Amount {
		size = f.Amount
	}
	f.Amount -= size
	if f.Amount < 0 {
		f.Amount = 0
	}
	return size
}

// Depleted reports whether nothing is left.
func (f *Food) Depleted() bool {
	return f.Amount <= 0
}

// Expired reports whether the item has reached its expiration tick.
func (f *Food) Expired(tick int) bool {
	return tick >= f.Expiration
}
