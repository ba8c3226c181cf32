package kinds

import (
	"fmt"

	"github.com/KirkDiggler/effect-engine/internal/effects"
)

// Effect names of the default catalogue
const (
	WalkSpeed    = "WalkSpeed"
	JumpSpeed    = "JumpSpeed"
	SwimSpeed    = "SwimSpeed"
	Stun         = "Stun"
	Glue         = "Glue"
	ResistDamage = "ResistDamage"
	BuffDamage   = "BuffDamage"
	Regenerate   = "Regeneration"
)

// Defaults returns the default catalogue. bus receives the domain events
// some kinds emit.
func Defaults(bus effects.Broadcaster) []effects.Kind {
	return []effects.Kind{
		NewScalar(WalkSpeed, "walk_speed"),
		NewScalar(JumpSpeed, "jump_speed"),
		NewScalar(SwimSpeed, "swim_speed"),
		NewScalar(Stun, "stun"),
		NewScalar(Glue, "glue"),
		NewSubTyped(ResistDamage, "resist_damage"),
		NewSubTyped(BuffDamage, "buff_damage"),
		NewRegeneration(bus),
	}
}

// RegisterDefaults registers the default catalogue
func RegisterDefaults(registry *effects.Registry, bus effects.Broadcaster) error {
	for _, kind := range Defaults(bus) {
		if err := registry.Register(kind); err != nil {
			return fmt.Errorf("register %s: %w", kind.Name(), err)
		}
	}
	return nil
}
