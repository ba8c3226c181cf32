package services

import (
	"fmt"
	"log/slog"

	"github.com/KirkDiggler/effect-engine/internal/clock"
	"github.com/KirkDiggler/effect-engine/internal/effects"
	"github.com/KirkDiggler/effect-engine/internal/effects/kinds"
	"github.com/KirkDiggler/effect-engine/internal/effects/stacking"
	"github.com/KirkDiggler/effect-engine/internal/events"
	"github.com/KirkDiggler/effect-engine/internal/repositories/effectstate"
	effectService "github.com/KirkDiggler/effect-engine/internal/services/effect"
	"github.com/KirkDiggler/effect-engine/internal/uuid"
)

// Provider holds all service instances
type Provider struct {
	EffectService effectService.Service
	Registry      *effects.Registry
	Bus           *events.Bus
	Tracker       *stacking.Tracker
	Dispatcher    *effects.Dispatcher
}

// ProviderConfig holds configuration for creating services
type ProviderConfig struct {
	StateRepository effectstate.Repository // Optional, in-memory if nil
	Scheduler       effects.Scheduler      // Required
	Clock           clock.TimeProvider     // Optional, system clock if nil
	UUIDGenerator   uuid.Generator         // Optional
}

// NewProvider wires the registry, bus, engine and services
func NewProvider(cfg *ProviderConfig) (*Provider, error) {
	if cfg == nil || cfg.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}

	// Use in-memory repository if none provided
	stateRepo := cfg.StateRepository
	if stateRepo == nil {
		stateRepo = effectstate.NewInMemoryRepository()
	}

	tp := cfg.Clock
	if tp == nil {
		tp = clock.System{}
	}

	bus := events.NewBus()
	registry := effects.NewRegistry()
	if err := kinds.RegisterDefaults(registry, bus); err != nil {
		return nil, err
	}

	tracker, err := stacking.New(&stacking.Config{Clock: tp, UUIDGenerator: cfg.UUIDGenerator})
	if err != nil {
		return nil, err
	}
	tracker.Subscribe(bus)
	subscribeObservers(bus)

	engine, err := effects.NewEngine(&effects.EngineConfig{
		Registry:  registry,
		Store:     stateRepo,
		Bus:       bus,
		Scheduler: cfg.Scheduler,
		Clock:     tp,
	})
	if err != nil {
		return nil, err
	}

	dispatcher, err := effects.NewDispatcher(engine)
	if err != nil {
		return nil, err
	}

	svc := effectService.NewService(&effectService.ServiceConfig{
		Engine:     engine,
		Dispatcher: dispatcher,
		Store:      stateRepo,
		Tracker:    tracker,
	})

	return &Provider{
		EffectService: svc,
		Registry:      registry,
		Bus:           bus,
		Tracker:       tracker,
		Dispatcher:    dispatcher,
	}, nil
}

// subscribeObservers logs removals and regeneration changes
func subscribeObservers(bus *events.Bus) {
	bus.Subscribe(effects.EventTypeEffectRemoved, events.NewListener("removal_log", events.PriorityObservers, func(e events.Event) error {
		removed, ok := e.(*effects.RemovedEvent)
		if !ok {
			return nil
		}
		slog.Info("effect removed",
			"component", "effects",
			"target", removed.GetTarget(),
			"effect", removed.Effect,
			"sub_id", removed.SubID,
			"owner", removed.Owner.String(),
			"expired", removed.Expired)
		return nil
	}))

	bus.Subscribe(kinds.EventTypeRegenerationChanged, events.NewListener("regeneration_log", events.PriorityObservers, func(e events.Event) error {
		changed, ok := e.(*kinds.RegenerationChangedEvent)
		if !ok {
			return nil
		}
		slog.Debug("regeneration changed",
			"component", "effects",
			"target", changed.GetTarget(),
			"rate", changed.Rate,
			"active", changed.Active)
		return nil
	}))
}
