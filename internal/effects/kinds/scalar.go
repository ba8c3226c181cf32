package kinds

import (
	"github.com/KirkDiggler/effect-engine/internal/clock"
	"github.com/KirkDiggler/effect-engine/internal/effects"
)

// Scalar stores the applied magnitude as-is. Speed kinds read it as a
// multiplier, Stun and Glue as an on/off flag, resistances and buffs as an
// amount.
type Scalar struct {
	name      string
	stateKind string
	subTyped  bool
}

// NewScalar creates a kind with one state per target
func NewScalar(name, stateKind string) *Scalar {
	return &Scalar{name: name, stateKind: stateKind}
}

// NewSubTyped creates a kind with one state per target and sub id, such as
// a damage type
func NewSubTyped(name, stateKind string) *Scalar {
	return &Scalar{name: name, stateKind: stateKind, subTyped: true}
}

func (k *Scalar) Name() string      { return k.name }
func (k *Scalar) StateKind() string { return k.stateKind }
func (k *Scalar) SubTyped() bool    { return k.subTyped }

// Upsert overwrites the magnitude and requested duration of the state
func (k *Scalar) Upsert(existing *effects.State, app effects.Application) *effects.State {
	state := existing
	if state == nil {
		state = &effects.State{Kind: k.stateKind}
		if k.subTyped {
			state.SubID = app.SubID
		}
	}

	state.Magnitude = app.Magnitude
	state.DurationMs = requestedMillis(app)
	state.Instigator = app.Instigator
	state.UpdatedAt = app.Now
	return state
}

// Update takes the resolved magnitude and duration
func (k *Scalar) Update(state *effects.State, app effects.Application, res effects.Resolution) {
	state.Magnitude = res.Magnitude
	state.DurationMs = res.Duration
	state.UpdatedAt = app.Now
}

func requestedMillis(app effects.Application) float64 {
	if app.Duration == effects.Indefinite {
		return effects.Indefinite
	}
	return clock.Millis(app.Duration)
}
