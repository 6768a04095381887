package components

// Action is what a critter did on its last turn.
type Action uint8

const (
	ActionNone       Action = iota // every behavior failed, idled
	ActionBirth                    // delivered pending offspring
	ActionEat                      // ate a food item in reach
	ActionHunt                     // ate a prey critter in reach
	ActionSeekFood                 // moved toward food or prey
	ActionWander                   // correlated random walk
	ActionFlee                     // moved away from threats
	ActionMate                     // conceived with a mate in reach
	ActionSeekMate                 // moved toward a mate
	ActionReproduce                // conceived asexually

	NumActions = int(ActionReproduce) + 1
)

// String returns the display name for an Action.
func (a Action) String() string {
	names := ActionNames()
	if int(a) < len(names) {
		return names[a]
	}
	return "unknown"
}

// ActionNames returns the names for all actions.
// The order matches the Action constants.
func ActionNames() []string {
	return []string{"none", "birth", "eat", "hunt", "seek_food", "wander", "flee", "mate", "seek_mate", "reproduce"}
}

// ActionCount returns the number of actions.
func ActionCount() int {
	return len(ActionNames())
}

// Cause is why a critter died.
type Cause uint8

const (
	CauseStarved Cause = iota
	CauseOldAge
	CausePredation
)

// String returns the display name for a Cause.
func (c Cause) String() string {
	switch c {
	case CauseStarved:
		return "starved"
	case CauseOldAge:
		return "old_age"
	case CausePredation:
		return "predation"
	default:
		return "unknown"
	}
}
