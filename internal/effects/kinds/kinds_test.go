package kinds_test

import (
	"context"
	"testing"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/effects"
	"github.com/KirkDiggler/effect-engine/internal/effects/kinds"
	"github.com/KirkDiggler/effect-engine/internal/errors"
	"github.com/KirkDiggler/effect-engine/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaults(t *testing.T) {
	registry := effects.NewRegistry()
	require.NoError(t, kinds.RegisterDefaults(registry, events.NewBus()))

	assert.Equal(t, []string{
		"BuffDamage", "Glue", "JumpSpeed", "Regeneration",
		"ResistDamage", "Stun", "SwimSpeed", "WalkSpeed",
	}, registry.Names())

	resist, err := registry.Lookup(kinds.ResistDamage)
	require.NoError(t, err)
	assert.True(t, resist.SubTyped())

	// A second registration collides
	err = kinds.RegisterDefaults(registry, events.NewBus())
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestScalar_Upsert(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	kind := kinds.NewScalar(kinds.WalkSpeed, "walk_speed")

	state := kind.Upsert(nil, effects.Application{
		Instigator: "wizard",
		Target:     "npc-1",
		SubID:      "ignored",
		Magnitude:  1.5,
		Duration:   5 * time.Second,
		Now:        now,
	})

	assert.Equal(t, &effects.State{
		Kind:       "walk_speed",
		Magnitude:  1.5,
		DurationMs: 5000,
		Instigator: "wizard",
		UpdatedAt:  now,
	}, state)

	t.Run("overwrites existing", func(t *testing.T) {
		next := kind.Upsert(state, effects.Application{Magnitude: 0.5, Duration: effects.Indefinite, Now: now})
		assert.Equal(t, 0.5, next.Magnitude)
		assert.Equal(t, -1.0, next.DurationMs)
	})
}

func TestSubTyped_KeepsSubID(t *testing.T) {
	kind := kinds.NewSubTyped(kinds.ResistDamage, "resist_damage")

	state := kind.Upsert(nil, effects.Application{SubID: "fire", Magnitude: 10})
	assert.Equal(t, "fire", state.SubID)
	assert.Equal(t, effects.StateKey{Kind: "resist_damage", SubID: "fire"}, state.Key())
}

func TestScalar_Update(t *testing.T) {
	kind := kinds.NewScalar(kinds.WalkSpeed, "walk_speed")
	state := &effects.State{Kind: "walk_speed", Magnitude: 1}

	kind.Update(state, effects.Application{}, effects.Resolution{Magnitude: 2.5, Duration: 3000})
	assert.Equal(t, 2.5, state.Magnitude)
	assert.Equal(t, 3000.0, state.DurationMs)
}

func TestRegeneration_AnnouncesRate(t *testing.T) {
	bus := events.NewBus()
	var got []*kinds.RegenerationChangedEvent
	bus.Subscribe(kinds.EventTypeRegenerationChanged, events.NewListener("health", events.PriorityObservers, func(e events.Event) error {
		got = append(got, e.(*kinds.RegenerationChangedEvent))
		return nil
	}))

	kind := kinds.NewRegeneration(bus)
	app := effects.Application{Instigator: "cleric", Target: "pc-1", Magnitude: 3}

	state := kind.Upsert(nil, app)
	kind.Update(state, app, effects.Resolution{Magnitude: 5})
	require.NoError(t, kind.Removed(context.Background(), "pc-1", state))

	require.Len(t, got, 3)
	assert.Equal(t, 3.0, got[0].Rate)
	assert.True(t, got[0].Active)
	assert.Equal(t, "pc-1", got[0].GetTarget())
	assert.Equal(t, 5.0, got[1].Rate)
	assert.Equal(t, "pc-1", got[2].GetTarget())
	assert.False(t, got[2].Active)
	assert.Equal(t, 0.0, got[2].Rate)
}

func TestRegeneration_ListenerFailureDoesNotBlockUpsert(t *testing.T) {
	bus := events.NewBus()
	bus.Subscribe(kinds.EventTypeRegenerationChanged, events.NewListener("broken", events.PriorityObservers, func(events.Event) error {
		return assert.AnError
	}))

	kind := kinds.NewRegeneration(bus)
	state := kind.Upsert(nil, effects.Application{Target: "pc-1", Magnitude: 3})
	assert.Equal(t, 3.0, state.Magnitude)

	assert.Error(t, kind.Removed(context.Background(), "pc-1", state))
}
