package effects

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/errors"
)

// Application is what a kind sees when its state is upserted
type Application struct {
	Instigator string
	Target     string
	SubID      string
	Magnitude  float64
	Duration   time.Duration
	Now        time.Time
}

// Kind is the behaviour of one effect kind
type Kind interface {
	// Name is the effect name callers apply
	Name() string

	// StateKind names the state this kind manages
	StateKind() string

	// SubTyped reports whether sub ids address separate states
	SubTyped() bool

	// Upsert returns the baseline state; existing is nil when absent.
	// It runs inside the store write and must not call back into the store.
	Upsert(existing *State, app Application) *State

	// Update recomputes the state from resolved modifiers. Same store
	// restriction as Upsert.
	Update(state *State, app Application, res Resolution)
}

// Remover is implemented by kinds that clean up outside the state store
// when their state is removed
type Remover interface {
	Removed(ctx context.Context, target string, state *State) error
}

// StateKeyFor returns the store key kind uses for subID
func StateKeyFor(kind Kind, subID string) StateKey {
	if !kind.SubTyped() {
		return StateKey{Kind: kind.StateKind()}
	}
	return StateKey{Kind: kind.StateKind(), SubID: subID}
}

// Registry maps effect names to kinds. Build it once at startup.
type Registry struct {
	mu         sync.RWMutex
	kinds      map[string]Kind
	stateKinds map[string]Kind
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		kinds:      make(map[string]Kind),
		stateKinds: make(map[string]Kind),
	}
}

// Register adds a kind. Names and state kinds must be unique.
func (r *Registry) Register(kind Kind) error {
	if kind == nil || kind.Name() == "" {
		return errors.InvalidArgument("effect kind must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[kind.Name()]; exists {
		return errors.AlreadyExistsf("effect %s already registered", kind.Name()).
			WithMeta("effect", kind.Name())
	}
	if owner, exists := r.stateKinds[kind.StateKind()]; exists {
		return errors.AlreadyExistsf("state kind %s already managed by %s", kind.StateKind(), owner.Name()).
			WithMeta("effect", kind.Name())
	}

	r.kinds[kind.Name()] = kind
	r.stateKinds[kind.StateKind()] = kind
	return nil
}

// Lookup returns the kind registered under name
func (r *Registry) Lookup(name string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, ok := r.kinds[name]
	if !ok {
		return nil, errors.NotFoundf("unknown effect id: %s", name).WithMeta("effect", name)
	}
	return kind, nil
}

// ForStateKind returns the kind that manages stateKind
func (r *Registry) ForStateKind(stateKind string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, ok := r.stateKinds[stateKind]
	return kind, ok
}

// Names returns the registered effect names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
