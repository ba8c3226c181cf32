package effectstate

import (
	"context"
	"sort"
	"sync"

	"github.com/KirkDiggler/effect-engine/internal/effects"
)

// inMemoryRepository implements Repository using in-memory storage
type inMemoryRepository struct {
	mu     sync.RWMutex
	states map[string]map[effects.StateKey]*effects.State // target -> key -> state
}

// NewInMemoryRepository creates a new in-memory state repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		states: make(map[string]map[effects.StateKey]*effects.State),
	}
}

// Get returns a copy of the state
func (r *inMemoryRepository) Get(ctx context.Context, target string, key effects.StateKey) (*effects.State, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.states[target][key]
	if !exists {
		return nil, false, nil
	}

	stateCopy := *state
	return &stateCopy, true, nil
}

// Upsert stores fn's result, creating the target on demand
func (r *inMemoryRepository) Upsert(ctx context.Context, target string, key effects.StateKey, fn func(existing *effects.State) *effects.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var existing *effects.State
	if state, exists := r.states[target][key]; exists {
		stateCopy := *state
		existing = &stateCopy
	}

	next := fn(existing)
	if next == nil {
		r.delete(target, key)
		return nil
	}

	if r.states[target] == nil {
		r.states[target] = make(map[effects.StateKey]*effects.State)
	}
	stored := *next
	r.states[target][key] = &stored
	return nil
}

// Update mutates an existing state; absent state is ignored
func (r *inMemoryRepository) Update(ctx context.Context, target string, key effects.StateKey, fn func(state *effects.State)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, exists := r.states[target][key]
	if !exists {
		return nil
	}

	stateCopy := *state
	fn(&stateCopy)
	r.states[target][key] = &stateCopy
	return nil
}

// Remove deletes the state
func (r *inMemoryRepository) Remove(ctx context.Context, target string, key effects.StateKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.delete(target, key)
	return nil
}

// List returns copies of the target's states ordered by key
func (r *inMemoryRepository) List(ctx context.Context, target string) ([]*effects.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]*effects.State, 0, len(r.states[target]))
	for _, state := range r.states[target] {
		stateCopy := *state
		states = append(states, &stateCopy)
	}
	sortStates(states)
	return states, nil
}

func (r *inMemoryRepository) delete(target string, key effects.StateKey) {
	delete(r.states[target], key)
	if len(r.states[target]) == 0 {
		delete(r.states, target)
	}
}

func sortStates(states []*effects.State) {
	sort.Slice(states, func(i, j int) bool {
		return states[i].Key().String() < states[j].Key().String()
	})
}
