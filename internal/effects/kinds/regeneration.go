package kinds

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/effect-engine/internal/effects"
	"github.com/KirkDiggler/effect-engine/internal/events"
)

// EventTypeRegenerationChanged announces a new heal rate for a target
const EventTypeRegenerationChanged events.EventType = "regeneration_changed"

// RegenerationChangedEvent carries the heal rate a target now regenerates
// at. Rate is zero once the effect is gone.
type RegenerationChangedEvent struct {
	events.BaseEvent
	Rate   float64
	Active bool
}

// Regeneration keeps a heal rate on the target and tells the bus whenever
// the rate changes, so a health system can pick it up.
type Regeneration struct {
	*Scalar
	bus effects.Broadcaster
}

// NewRegeneration creates the kind; bus receives rate changes
func NewRegeneration(bus effects.Broadcaster) *Regeneration {
	return &Regeneration{
		Scalar: NewScalar(Regenerate, "regeneration"),
		bus:    bus,
	}
}

// Upsert stores the rate and announces it
func (k *Regeneration) Upsert(existing *effects.State, app effects.Application) *effects.State {
	state := k.Scalar.Upsert(existing, app)
	k.announce(app.Instigator, app.Target, state.Magnitude, true)
	return state
}

// Update stores the resolved rate and announces it
func (k *Regeneration) Update(state *effects.State, app effects.Application, res effects.Resolution) {
	k.Scalar.Update(state, app, res)
	k.announce(app.Instigator, app.Target, state.Magnitude, true)
}

// Removed announces that the target stopped regenerating
func (k *Regeneration) Removed(ctx context.Context, target string, state *effects.State) error {
	return k.bus.Emit(newRegenerationChanged(state.Instigator, target, 0, false))
}

// announce is called from inside a store write, so delivery failures are
// logged rather than returned
func (k *Regeneration) announce(instigator, target string, rate float64, active bool) {
	if err := k.bus.Emit(newRegenerationChanged(instigator, target, rate, active)); err != nil {
		slog.Warn("failed to announce regeneration change",
			"component", "effects_kinds",
			"target", target,
			"error", err)
	}
}

func newRegenerationChanged(instigator, target string, rate float64, active bool) *RegenerationChangedEvent {
	return &RegenerationChangedEvent{
		BaseEvent: events.BaseEvent{
			Type:   EventTypeRegenerationChanged,
			Actor:  instigator,
			Target: target,
		},
		Rate:   rate,
		Active: active,
	}
}
