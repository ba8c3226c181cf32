package events

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// EventListener processes events
type EventListener interface {
	HandleEvent(event Event) error
	Priority() int
	ID() string
}

// Bus manages synchronous event distribution. Emit returns only after every
// listener has run, so listeners may mutate the event they receive.
type Bus struct {
	listeners map[EventType][]EventListener
	mu        sync.RWMutex
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[EventType][]EventListener),
	}
}

// Subscribe adds a listener for specific event types
func (b *Bus) Subscribe(eventType EventType, listener EventListener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners[eventType] = append(b.listeners[eventType], listener)

	// Stable so equal priorities keep subscription order
	sort.SliceStable(b.listeners[eventType], func(i, j int) bool {
		return b.listeners[eventType][i].Priority() < b.listeners[eventType][j].Priority()
	})

	slog.Debug("subscribed listener",
		"component", "event_bus",
		"listener", listener.ID(),
		"event", eventType,
		"priority", listener.Priority())
}

// Unsubscribe removes a listener
func (b *Bus) Unsubscribe(eventType EventType, listenerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	listeners := b.listeners[eventType]
	for i, l := range listeners {
		if l.ID() != listenerID {
			continue
		}
		// Copy so in-flight emits keep their snapshot
		remaining := make([]EventListener, 0, len(listeners)-1)
		remaining = append(remaining, listeners[:i]...)
		remaining = append(remaining, listeners[i+1:]...)
		b.listeners[eventType] = remaining

		slog.Debug("unsubscribed listener",
			"component", "event_bus",
			"listener", listenerID,
			"event", eventType)
		return
	}
}

// Emit sends an event to all registered listeners in priority order.
// Propagation stops once a listener cancels the event. A listener error
// aborts the emit; listeners that already ran keep their effects.
func (b *Bus) Emit(event Event) error {
	if event == nil {
		return fmt.Errorf("cannot emit nil event")
	}

	b.mu.RLock()
	listeners := make([]EventListener, len(b.listeners[event.GetType()]))
	copy(listeners, b.listeners[event.GetType()])
	b.mu.RUnlock()

	for _, listener := range listeners {
		if event.IsCancelled() {
			slog.Debug("event cancelled, stopping propagation",
				"component", "event_bus",
				"event", event.GetType(),
				"target", event.GetTarget())
			break
		}

		if err := listener.HandleEvent(event); err != nil {
			return fmt.Errorf("listener %s failed: %w", listener.ID(), err)
		}
	}

	return nil
}

// Clear removes all listeners
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = make(map[EventType][]EventListener)
}

// ListenerCount returns the number of listeners for an event type
func (b *Bus) ListenerCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.listeners[eventType])
}

// funcListener adapts a function to EventListener
type funcListener struct {
	id       string
	priority int
	fn       func(Event) error
}

// NewListener wraps fn as a listener
func NewListener(id string, priority int, fn func(Event) error) EventListener {
	return &funcListener{id: id, priority: priority, fn: fn}
}

func (l *funcListener) ID() string                    { return l.id }
func (l *funcListener) Priority() int                 { return l.priority }
func (l *funcListener) HandleEvent(event Event) error { return l.fn(event) }
