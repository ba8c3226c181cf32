// Package stacking lets several independent sources hold the same effect on
// a target. Each source contributes its magnitude and remaining duration to
// every collection pass; the shortest source governs the next expiration.
package stacking

import (
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/clock"
	"github.com/KirkDiggler/effect-engine/internal/effects"
	"github.com/KirkDiggler/effect-engine/internal/errors"
	"github.com/KirkDiggler/effect-engine/internal/events"
	"github.com/KirkDiggler/effect-engine/internal/uuid"
)

const listenerID = "stacking_tracker"

// Source is one contribution to a stacked effect
type Source struct {
	Owner     effects.Identity
	Magnitude float64
	Duration  time.Duration // may be effects.Indefinite
	AddedAt   time.Time
}

// Indefinite reports whether the source never runs out
func (s *Source) Indefinite() bool {
	return s.Duration == effects.Indefinite
}

// RemainingMillis is the time left at now, -1 for an indefinite source
func (s *Source) RemainingMillis(now time.Time) float64 {
	if s.Indefinite() {
		return effects.Indefinite
	}
	return math.Max(0, clock.Millis(s.Duration-now.Sub(s.AddedAt)))
}

type slot struct {
	target string
	effect string
	subID  string
}

// Tracker records sources per (target, effect, sub id) and answers
// collection passes for them
type Tracker struct {
	mu      sync.Mutex
	clock   clock.TimeProvider
	uuids   uuid.Generator
	sources map[slot][]*Source
}

// Config holds the collaborators of a Tracker
type Config struct {
	Clock         clock.TimeProvider // Required
	UUIDGenerator uuid.Generator     // Optional, will use default if nil
}

// New creates a tracker
func New(cfg *Config) (*Tracker, error) {
	if cfg == nil || cfg.Clock == nil {
		return nil, errors.MissingParam("Clock")
	}

	t := &Tracker{
		clock:   cfg.Clock,
		uuids:   cfg.UUIDGenerator,
		sources: make(map[slot][]*Source),
	}
	if t.uuids == nil {
		t.uuids = uuid.NewGoogleUUIDGenerator()
	}
	return t, nil
}

// Add records a source and returns the owner identity its expiration timer
// will carry. The caller applies the effect afterwards so the new source is
// collected.
func (t *Tracker) Add(target, effect, subID, source string, magnitude float64, duration time.Duration) (effects.Identity, error) {
	if source == "" {
		return effects.Identity{}, errors.MissingParam("source")
	}
	if strings.Contains(source, "|") {
		return effects.Identity{}, errors.InvalidArgumentf("source %q must not contain '|'", source)
	}
	if duration <= 0 && duration != effects.Indefinite {
		return effects.Identity{}, errors.InvalidArgumentf("duration must be positive or indefinite, got %s", duration)
	}

	owner := effects.Identity{Name: source, SubID: t.uuids.New()}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := slot{target: target, effect: effect, subID: subID}
	t.sources[key] = append(t.sources[key], &Source{
		Owner:     owner,
		Magnitude: magnitude,
		Duration:  duration,
		AddedAt:   t.clock.Now(),
	})

	slog.Debug("stacked source added",
		"component", "stacking",
		"target", target,
		"effect", effect,
		"sub_id", subID,
		"owner", owner.String())

	return owner, nil
}

// Sources returns copies of the live sources of an effect on target
func (t *Tracker) Sources(target, effect, subID string) []Source {
	t.mu.Lock()
	defer t.mu.Unlock()

	live := t.sources[slot{target: target, effect: effect, subID: subID}]
	out := make([]Source, 0, len(live))
	for _, s := range live {
		out = append(out, *s)
	}
	return out
}

// Subscribe registers the tracker for collection and removal events
func (t *Tracker) Subscribe(bus *events.Bus) {
	bus.Subscribe(effects.EventTypeCollectModifiers, t)
	bus.Subscribe(effects.EventTypeEffectRemoved, t)
}

// ID implements events.EventListener
func (t *Tracker) ID() string { return listenerID }

// Priority implements events.EventListener
func (t *Tracker) Priority() int { return events.PrioritySources }

// HandleEvent contributes to collection passes and forgets sources of
// removed effects
func (t *Tracker) HandleEvent(event events.Event) error {
	switch e := event.(type) {
	case *effects.CollectEvent:
		t.collect(e)
	case *effects.RemovedEvent:
		t.removed(e)
	}
	return nil
}

func (t *Tracker) collect(e *effects.CollectEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	for _, s := range t.sources[slot{target: e.GetTarget(), effect: e.Effect, subID: e.SubID}] {
		e.Modifiers.AddMagnitudeModifier(s.Magnitude)
		e.Modifiers.AddDurationModifier(s.RemainingMillis(now), s.Owner)
	}
}

// removed drops the expired owner along with any other source that has run
// out by now. An explicit removal drops every source of the effect.
func (t *Tracker) removed(e *effects.RemovedEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := slot{target: e.GetTarget(), effect: e.Effect, subID: e.SubID}
	if !e.Expired {
		delete(t.sources, key)
		return
	}

	now := t.clock.Now()
	kept := t.sources[key][:0]
	for _, s := range t.sources[key] {
		if s.Owner == e.Owner || s.RemainingMillis(now) == 0 {
			continue
		}
		kept = append(kept, s)
	}

	if len(kept) == 0 {
		delete(t.sources, key)
		return
	}
	t.sources[key] = kept
}
