package effectstate

import "github.com/KirkDiggler/effect-engine/internal/effects"

// Repository persists per-target effect state
type Repository interface {
	effects.StateStore
}
