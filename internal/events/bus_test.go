package events_test

import (
	"errors"
	"testing"

	"github.com/KirkDiggler/effect-engine/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventType events.EventType = "test_event"

type counterEvent struct {
	events.BaseEvent
	Total int
}

func TestBus_ListenersMutateEvent(t *testing.T) {
	bus := events.NewBus()

	bus.Subscribe(testEventType, events.NewListener("plus-two", events.PrioritySources, func(e events.Event) error {
		if ce, ok := e.(*counterEvent); ok {
			ce.Total += 2
		}
		return nil
	}))
	bus.Subscribe(testEventType, events.NewListener("times-three", events.PriorityOverrides, func(e events.Event) error {
		if ce, ok := e.(*counterEvent); ok {
			ce.Total *= 3
		}
		return nil
	}))

	event := &counterEvent{BaseEvent: events.BaseEvent{Type: testEventType, Target: "npc-1"}, Total: 1}
	require.NoError(t, bus.Emit(event))

	// (1 + 2) * 3, so the additive listener ran first
	assert.Equal(t, 9, event.Total)
}

func TestBus_Priority(t *testing.T) {
	bus := events.NewBus()

	var executionOrder []string
	record := func(id string) func(events.Event) error {
		return func(events.Event) error {
			executionOrder = append(executionOrder, id)
			return nil
		}
	}

	// Subscribe in random order
	bus.Subscribe(testEventType, events.NewListener("low", 300, record("low")))
	bus.Subscribe(testEventType, events.NewListener("high", 100, record("high")))
	bus.Subscribe(testEventType, events.NewListener("medium", 200, record("medium")))
	bus.Subscribe(testEventType, events.NewListener("medium-2", 200, record("medium-2")))

	require.NoError(t, bus.Emit(&events.BaseEvent{Type: testEventType}))

	assert.Equal(t, []string{"high", "medium", "medium-2", "low"}, executionOrder)
}

func TestBus_Cancellation(t *testing.T) {
	bus := events.NewBus()

	var firstExecuted, secondExecuted bool

	bus.Subscribe(testEventType, events.NewListener("first", 100, func(e events.Event) error {
		firstExecuted = true
		e.Cancel()
		return nil
	}))
	bus.Subscribe(testEventType, events.NewListener("second", 200, func(e events.Event) error {
		secondExecuted = true
		return nil
	}))

	event := &events.BaseEvent{Type: testEventType}
	require.NoError(t, bus.Emit(event))

	assert.True(t, firstExecuted)
	assert.False(t, secondExecuted)
	assert.True(t, event.IsCancelled())
}

func TestBus_ListenerErrorAborts(t *testing.T) {
	bus := events.NewBus()
	boom := errors.New("boom")

	var laterExecuted bool
	bus.Subscribe(testEventType, events.NewListener("broken", 100, func(events.Event) error {
		return boom
	}))
	bus.Subscribe(testEventType, events.NewListener("later", 200, func(events.Event) error {
		laterExecuted = true
		return nil
	}))

	err := bus.Emit(&events.BaseEvent{Type: testEventType})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "listener broken failed")
	assert.False(t, laterExecuted)
}

func TestBus_UnsubscribeAndClear(t *testing.T) {
	bus := events.NewBus()
	noop := func(events.Event) error { return nil }

	bus.Subscribe(testEventType, events.NewListener("a", 100, noop))
	bus.Subscribe(testEventType, events.NewListener("b", 100, noop))
	assert.Equal(t, 2, bus.ListenerCount(testEventType))

	bus.Unsubscribe(testEventType, "a")
	assert.Equal(t, 1, bus.ListenerCount(testEventType))

	bus.Unsubscribe(testEventType, "missing")
	assert.Equal(t, 1, bus.ListenerCount(testEventType))

	bus.Clear()
	assert.Equal(t, 0, bus.ListenerCount(testEventType))
}

func TestBus_EmitNil(t *testing.T) {
	assert.Error(t, events.NewBus().Emit(nil))
}
