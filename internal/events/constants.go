package events

// Priority levels for listener order (lower runs first)
const (
	PriorityBaseline  = 0   // Set base values
	PrioritySources   = 100 // Stacked effect sources
	PriorityEquipment = 200 // Equipment and passive modifiers
	PriorityOverrides = 400 // Immunities, consumption
	PriorityObservers = 500 // Logging, metrics, read-only listeners
)
