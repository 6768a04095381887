package sim

import "errors"

var (
	// ErrInvalidConfig marks a setup error: bad geometry, nav constants or trait bounds.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrAgentRemoved is returned when acting on a critter no longer in the world.
	ErrAgentRemoved = errors.New("agent removed from world")
	// ErrInvariant marks a broken engine invariant.
	ErrInvariant = errors.New("invariant violated")
)
