package events

// EventType represents the type of event broadcast on the bus
type EventType string

// Event is the base interface for all events
type Event interface {
	GetType() EventType
	GetActor() string
	GetTarget() string
	IsCancelled() bool
	Cancel()
}

// BaseEvent provides common implementation for all events
type BaseEvent struct {
	Type      EventType
	Actor     string
	Target    string
	Cancelled bool
}

func (e *BaseEvent) GetType() EventType { return e.Type }
func (e *BaseEvent) GetActor() string   { return e.Actor }
func (e *BaseEvent) GetTarget() string  { return e.Target }
func (e *BaseEvent) IsCancelled() bool  { return e.Cancelled }
func (e *BaseEvent) Cancel()            { e.Cancelled = true }
