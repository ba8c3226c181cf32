package effects

import (
	"context"
	"time"
)

// State is the per-target record an effect kind keeps while active. Kinds
// decide what Magnitude means (a speed multiplier, a resistance amount, a
// heal rate).
type State struct {
	Kind       string    `json:"kind"`
	SubID      string    `json:"sub_id,omitempty"`
	Magnitude  float64   `json:"magnitude"`
	DurationMs float64   `json:"duration_ms"`
	Instigator string    `json:"instigator,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Key returns the store key for this state
func (s *State) Key() StateKey {
	return StateKey{Kind: s.Kind, SubID: s.SubID}
}

// StateKey addresses one state on a target
type StateKey struct {
	Kind  string
	SubID string
}

// String encodes the key as "<kind>" or "<kind>:<subId>"
func (k StateKey) String() string {
	if k.SubID == "" {
		return k.Kind
	}
	return k.Kind + subIDSeparator + k.SubID
}

// StateStore is the per-target keyed state the engine reads and writes
// through. Unknown targets are created on demand.
type StateStore interface {
	// Get returns the state and whether it exists
	Get(ctx context.Context, target string, key StateKey) (*State, bool, error)

	// Upsert replaces the state with fn's result; existing is nil when absent
	Upsert(ctx context.Context, target string, key StateKey, fn func(existing *State) *State) error

	// Update mutates an existing state in place; absent state is left absent
	Update(ctx context.Context, target string, key StateKey, fn func(state *State)) error

	// Remove deletes the state; removing an absent state is not an error
	Remove(ctx context.Context, target string, key StateKey) error

	// List returns every state held by the target
	List(ctx context.Context, target string) ([]*State, error)
}
