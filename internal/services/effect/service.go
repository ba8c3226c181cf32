package effect

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/effects"
	"github.com/KirkDiggler/effect-engine/internal/effects/stacking"
	effecterr "github.com/KirkDiggler/effect-engine/internal/errors"
)

// Service is the entry point hosts use to drive effects. Calls are
// serialized, so timers and commands arriving on different goroutines never
// interleave inside the engine.
type Service interface {
	// Apply applies an effect with the requested magnitude and duration
	Apply(ctx context.Context, input *ApplyInput) error

	// Stack adds an independent source to an effect and re-evaluates it
	Stack(ctx context.Context, input *StackInput) (effects.Identity, error)

	// Remove ends an active effect ahead of its timer
	Remove(ctx context.Context, input *RemoveInput) error

	// List returns the active effect states of a target
	List(ctx context.Context, target string) ([]*effects.State, error)

	// Kinds lists the registered effect names
	Kinds() []string

	// HandleTimer processes a fired expiration trigger
	HandleTimer(ctx context.Context, target, key string) error
}

// ApplyInput contains data for applying an effect
type ApplyInput struct {
	Instigator string
	Target     string
	Effect     string
	SubID      string
	Magnitude  float64
	Duration   time.Duration // effects.Indefinite for no timer
}

// StackInput contains data for adding a stacked source
type StackInput struct {
	Instigator string
	Target     string
	Effect     string
	SubID      string
	Source     string
	Magnitude  float64
	Duration   time.Duration // effects.Indefinite for a permanent source
}

// RemoveInput identifies the effect to remove
type RemoveInput struct {
	Instigator string
	Target     string
	Effect     string
	SubID      string
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Engine     *effects.Engine     // Required
	Dispatcher *effects.Dispatcher // Required
	Store      effects.StateStore  // Required
	Tracker    *stacking.Tracker   // Required
}

type service struct {
	mu         sync.Mutex
	engine     *effects.Engine
	dispatcher *effects.Dispatcher
	store      effects.StateStore
	tracker    *stacking.Tracker
}

// NewService creates a new effect service
func NewService(cfg *ServiceConfig) Service {
	if cfg.Engine == nil {
		panic("engine is required")
	}
	if cfg.Dispatcher == nil {
		panic("dispatcher is required")
	}
	if cfg.Store == nil {
		panic("store is required")
	}
	if cfg.Tracker == nil {
		panic("tracker is required")
	}

	return &service{
		engine:     cfg.Engine,
		dispatcher: cfg.Dispatcher,
		store:      cfg.Store,
		tracker:    cfg.Tracker,
	}
}

// Apply applies an effect
func (s *service) Apply(ctx context.Context, input *ApplyInput) error {
	if input == nil {
		return effecterr.InvalidArgument("input cannot be nil")
	}
	if err := validateTarget(input.Target, input.Effect, input.SubID); err != nil {
		return err
	}
	if input.Duration < 0 && input.Duration != effects.Indefinite {
		return effecterr.InvalidArgumentf("duration must not be negative, got %s", input.Duration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Apply(ctx, input.Instigator, input.Target, input.Effect, input.SubID, input.Magnitude, input.Duration); err != nil {
		return effecterr.Wrapf(err, "failed to apply %s to %s", input.Effect, input.Target).
			WithMeta("target", input.Target)
	}
	return nil
}

// Stack records the source, then re-applies the effect with neutral values
// so the stacked sources alone decide magnitude and expiry
func (s *service) Stack(ctx context.Context, input *StackInput) (effects.Identity, error) {
	if input == nil {
		return effects.Identity{}, effecterr.InvalidArgument("input cannot be nil")
	}
	if err := validateTarget(input.Target, input.Effect, input.SubID); err != nil {
		return effects.Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Unknown effects must fail before a source is recorded
	if _, err := s.engine.Registry().Lookup(input.Effect); err != nil {
		return effects.Identity{}, err
	}

	owner, err := s.tracker.Add(input.Target, input.Effect, input.SubID, input.Source, input.Magnitude, input.Duration)
	if err != nil {
		return effects.Identity{}, err
	}

	if err := s.engine.Apply(ctx, input.Instigator, input.Target, input.Effect, input.SubID, 0, 0); err != nil {
		return effects.Identity{}, effecterr.Wrapf(err, "failed to stack %s on %s", input.Effect, input.Target).
			WithMeta("target", input.Target).
			WithMeta("owner", owner.String())
	}
	return owner, nil
}

// Remove ends an active effect
func (s *service) Remove(ctx context.Context, input *RemoveInput) error {
	if input == nil {
		return effecterr.InvalidArgument("input cannot be nil")
	}
	if err := validateTarget(input.Target, input.Effect, input.SubID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engine.Remove(ctx, input.Instigator, input.Target, input.Effect, input.SubID)
}

// List returns the active states of target
func (s *service) List(ctx context.Context, target string) ([]*effects.State, error) {
	if strings.TrimSpace(target) == "" {
		return nil, effecterr.InvalidArgument("target is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	states, err := s.store.List(ctx, target)
	if err != nil {
		return nil, effecterr.Wrapf(err, "failed to list effects on %s", target)
	}
	return states, nil
}

// Kinds lists the registered effect names
func (s *service) Kinds() []string {
	return s.engine.Registry().Names()
}

// HandleTimer hands a fired trigger to the dispatcher
func (s *service) HandleTimer(ctx context.Context, target, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dispatcher.OnTimerFired(ctx, target, key)
}

func validateTarget(target, effect, subID string) error {
	if strings.TrimSpace(target) == "" {
		return effecterr.InvalidArgument("target is required")
	}
	if strings.TrimSpace(effect) == "" {
		return effecterr.InvalidArgument("effect is required")
	}
	return effects.CheckSubID(subID)
}
