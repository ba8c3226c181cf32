package effects

import "github.com/KirkDiggler/effect-engine/internal/events"

const (
	// EventTypeCollectModifiers asks listeners to contribute modifiers
	EventTypeCollectModifiers events.EventType = "effect_collect_modifiers"

	// EventTypeEffectRemoved announces a removed effect
	EventTypeEffectRemoved events.EventType = "effect_removed"
)

// Broadcaster delivers events synchronously to every listener
type Broadcaster interface {
	Emit(event events.Event) error
}

// CollectEvent is broadcast once per apply. Listeners contribute through
// Modifiers; cancelling the event consumes the pass.
type CollectEvent struct {
	events.BaseEvent
	Effect    string
	SubID     string
	Modifiers *ModifierCollection
}

// NewCollectEvent creates a collection event over zero base values
func NewCollectEvent(instigator, target, effect, subID string) *CollectEvent {
	return &CollectEvent{
		BaseEvent: events.BaseEvent{
			Type:   EventTypeCollectModifiers,
			Actor:  instigator,
			Target: target,
		},
		Effect:    effect,
		SubID:     subID,
		Modifiers: NewModifierCollection(0, 0),
	}
}

// Cancel consumes the collection pass
func (e *CollectEvent) Cancel() { e.Modifiers.Consume() }

// IsCancelled reports whether the pass was consumed
func (e *CollectEvent) IsCancelled() bool { return e.Modifiers.Consumed() }

// RemovedEvent announces that an effect's state was removed. Expired is true
// when the removal came from a fired timer.
type RemovedEvent struct {
	events.BaseEvent
	Effect  string
	SubID   string
	Owner   Identity
	Expired bool
}

// NewRemovedEvent creates a removal notification
func NewRemovedEvent(instigator, target, effect, subID string, owner Identity, expired bool) *RemovedEvent {
	return &RemovedEvent{
		BaseEvent: events.BaseEvent{
			Type:   EventTypeEffectRemoved,
			Actor:  instigator,
			Target: target,
		},
		Effect:  effect,
		SubID:   subID,
		Owner:   owner,
		Expired: expired,
	}
}
