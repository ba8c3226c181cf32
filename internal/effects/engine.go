package effects

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/clock"
	"github.com/KirkDiggler/effect-engine/internal/errors"
)

// EngineConfig holds the collaborators of an Engine
type EngineConfig struct {
	Registry  *Registry
	Store     StateStore
	Bus       Broadcaster
	Scheduler Scheduler
	Clock     clock.TimeProvider // defaults to the system clock
}

// Engine applies effects to targets: it upserts state, runs the modifier
// collection pass, resolves the outcome and arms or cancels expiration.
//
// Engine is not safe for concurrent use. Callers run it from a single
// simulation step or serialize access (see services/effect).
type Engine struct {
	registry  *Registry
	store     StateStore
	bus       Broadcaster
	scheduler Scheduler
	clock     clock.TimeProvider

	// armed holds the key of the pending timer for each state
	armed map[armedSlot]ExpirationKey
}

type armedSlot struct {
	target string
	key    StateKey
}

// NewEngine validates cfg and creates an engine
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg == nil {
		return nil, errors.MissingParam("config")
	}
	if cfg.Registry == nil {
		return nil, errors.MissingParam("Registry")
	}
	if cfg.Store == nil {
		return nil, errors.MissingParam("Store")
	}
	if cfg.Bus == nil {
		return nil, errors.MissingParam("Bus")
	}
	if cfg.Scheduler == nil {
		return nil, errors.MissingParam("Scheduler")
	}

	tp := cfg.Clock
	if tp == nil {
		tp = clock.System{}
	}

	return &Engine{
		registry:  cfg.Registry,
		store:     cfg.Store,
		bus:       cfg.Bus,
		scheduler: cfg.Scheduler,
		clock:     tp,
		armed:     make(map[armedSlot]ExpirationKey),
	}, nil
}

// Registry returns the registry the engine resolves effect names with
func (e *Engine) Registry() *Registry { return e.registry }

// Apply applies effect to target. duration may be Indefinite.
//
// The baseline state is upserted before modifiers are collected, so when a
// listener fails the baseline stays and the error is returned. A consumed
// collection pass leaves the baseline without touching timers.
func (e *Engine) Apply(ctx context.Context, instigator, target, effect, subID string, magnitude float64, duration time.Duration) error {
	if err := CheckSubID(subID); err != nil {
		return err
	}
	kind, err := e.registry.Lookup(effect)
	if err != nil {
		return err
	}
	stateKey := StateKeyFor(kind, subID)

	app := Application{
		Instigator: instigator,
		Target:     target,
		SubID:      subID,
		Magnitude:  magnitude,
		Duration:   duration,
		Now:        e.clock.Now(),
	}
	if err := e.store.Upsert(ctx, target, stateKey, func(existing *State) *State {
		return kind.Upsert(existing, app)
	}); err != nil {
		return fmt.Errorf("upsert %s on %s: %w", stateKey, target, err)
	}

	event := NewCollectEvent(instigator, target, effect, subID)
	if err := e.bus.Emit(event); err != nil {
		return fmt.Errorf("collect modifiers for %s: %w", effect, err)
	}

	res := event.Modifiers.Resolve()
	if res.Consumed {
		slog.Debug("collection consumed, keeping baseline",
			"component", "effects_engine",
			"target", target,
			"effect", effect,
			"sub_id", subID)
		return nil
	}

	if res.ModifiersFound {
		if err := e.store.Update(ctx, target, stateKey, func(state *State) {
			kind.Update(state, app, res)
		}); err != nil {
			return fmt.Errorf("update %s on %s: %w", stateKey, target, err)
		}
	}

	switch {
	case res.HasTimer() && duration != Indefinite:
		key := ExpirationKey{Effect: effect, SubID: subID, Owner: res.ShortestOwner}
		return e.arm(ctx, target, stateKey, key, clock.FromMillis(res.ShortestDuration))

	case duration > 0 && !res.ModifiersFound:
		key := ExpirationKey{Effect: effect, SubID: subID}
		return e.arm(ctx, target, stateKey, key, duration)

	case duration == Indefinite:
		slog.Debug("indefinite effect, no timer",
			"component", "effects_engine",
			"target", target,
			"effect", effect,
			"sub_id", subID)
		return e.disarm(ctx, target, stateKey)

	case !res.ModifiersFound || !res.HasInfinite:
		slog.Debug("effect resolved to no duration, removing",
			"component", "effects_engine",
			"target", target,
			"effect", effect,
			"sub_id", subID,
			"zero_duration", res.HasZero)
		return e.removeState(ctx, target, kind, stateKey)

	default:
		slog.Debug("infinite modifier present, effect persists",
			"component", "effects_engine",
			"target", target,
			"effect", effect,
			"sub_id", subID,
			"owner", res.InfiniteOwner.String())
		return e.disarm(ctx, target, stateKey)
	}
}

// Remove ends an active effect ahead of its timer, for cures and dispels.
// It cancels the pending timer and announces the removal as not expired.
func (e *Engine) Remove(ctx context.Context, instigator, target, effect, subID string) error {
	if err := CheckSubID(subID); err != nil {
		return err
	}
	kind, err := e.registry.Lookup(effect)
	if err != nil {
		return err
	}
	stateKey := StateKeyFor(kind, subID)

	_, exists, err := e.store.Get(ctx, target, stateKey)
	if err != nil {
		return fmt.Errorf("get %s on %s: %w", stateKey, target, err)
	}
	if !exists {
		return errors.NotFoundf("effect %s is not active on %s", stateKey, target).
			WithMeta("effect", effect).
			WithMeta("target", target)
	}

	if err := e.removeState(ctx, target, kind, stateKey); err != nil {
		return err
	}

	return e.bus.Emit(NewRemovedEvent(instigator, target, effect, subID, Identity{}, false))
}

// expire handles a fired key: the state is removed, the removal announced,
// and the effect re-applied with neutral values so remaining modifiers can
// re-arm their own timers.
func (e *Engine) expire(ctx context.Context, target string, kind Kind, key ExpirationKey) error {
	stateKey := StateKeyFor(kind, key.SubID)
	slot := armedSlot{target: target, key: stateKey}
	if armed, ok := e.armed[slot]; ok && armed == key {
		delete(e.armed, slot)
	}

	if err := e.dropState(ctx, target, kind, stateKey); err != nil {
		return err
	}

	removed := NewRemovedEvent(target, target, key.Effect, key.SubID, key.Owner, true)
	if err := e.bus.Emit(removed); err != nil {
		return fmt.Errorf("announce expiry of %s: %w", key.Effect, err)
	}

	return e.Apply(ctx, target, target, key.Effect, key.SubID, 0, 0)
}

// arm schedules key, cancelling a pending timer of the same state that was
// armed under a different key
func (e *Engine) arm(ctx context.Context, target string, stateKey StateKey, key ExpirationKey, delay time.Duration) error {
	slot := armedSlot{target: target, key: stateKey}
	if prev, ok := e.armed[slot]; ok && prev != key {
		if err := e.scheduler.Cancel(ctx, target, prev); err != nil {
			return fmt.Errorf("cancel %s: %w", prev, err)
		}
	}

	if err := e.scheduler.Schedule(ctx, target, key, delay); err != nil {
		return fmt.Errorf("schedule %s: %w", key, err)
	}
	e.armed[slot] = key

	slog.Debug("scheduled expiration",
		"component", "effects_engine",
		"target", target,
		"key", key.String(),
		"delay", delay)
	return nil
}

// disarm cancels the pending timer of a state, if any
func (e *Engine) disarm(ctx context.Context, target string, stateKey StateKey) error {
	slot := armedSlot{target: target, key: stateKey}
	prev, ok := e.armed[slot]
	if !ok {
		return nil
	}
	delete(e.armed, slot)

	if err := e.scheduler.Cancel(ctx, target, prev); err != nil {
		return fmt.Errorf("cancel %s: %w", prev, err)
	}
	return nil
}

func (e *Engine) removeState(ctx context.Context, target string, kind Kind, stateKey StateKey) error {
	if err := e.disarm(ctx, target, stateKey); err != nil {
		return err
	}
	return e.dropState(ctx, target, kind, stateKey)
}

// dropState deletes the state and runs the kind's removal hook
func (e *Engine) dropState(ctx context.Context, target string, kind Kind, stateKey StateKey) error {
	state, exists, err := e.store.Get(ctx, target, stateKey)
	if err != nil {
		return fmt.Errorf("get %s on %s: %w", stateKey, target, err)
	}
	if !exists {
		return nil
	}

	if err := e.store.Remove(ctx, target, stateKey); err != nil {
		return fmt.Errorf("remove %s on %s: %w", stateKey, target, err)
	}

	if remover, ok := kind.(Remover); ok {
		if err := remover.Removed(ctx, target, state); err != nil {
			return fmt.Errorf("clean up %s on %s: %w", stateKey, target, err)
		}
	}
	return nil
}
