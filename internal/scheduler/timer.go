package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/effects"
)

type firing struct {
	id  string
	gen uint64
}

type pendingTimer struct {
	timer *time.Timer
	gen   uint64
	due   time.Time
}

// Timer schedules on wall-clock time. Timer goroutines only queue fired
// keys; Run delivers them to the handler on the caller's goroutine so the
// engine keeps a single thread of execution.
type Timer struct {
	mu     sync.Mutex
	gen    uint64
	timers map[string]*pendingTimer
	fired  chan firing
	done   chan struct{}
	once   sync.Once
}

// NewTimer creates a wall-clock scheduler
func NewTimer() *Timer {
	return &Timer{
		timers: make(map[string]*pendingTimer),
		fired:  make(chan firing, 64),
		done:   make(chan struct{}),
	}
}

// Schedule arms key for target, replacing a pending timer of the same key
func (s *Timer) Schedule(ctx context.Context, target string, key effects.ExpirationKey, delay time.Duration) error {
	id := timerID(target, key.String())

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[id]; ok {
		prev.timer.Stop()
	}

	s.gen++
	gen := s.gen
	s.timers[id] = &pendingTimer{
		gen: gen,
		due: time.Now().Add(delay),
		timer: time.AfterFunc(delay, func() {
			select {
			case s.fired <- firing{id: id, gen: gen}:
			case <-s.done:
			}
		}),
	}
	return nil
}

// Cancel disarms key for target
func (s *Timer) Cancel(ctx context.Context, target string, key effects.ExpirationKey) error {
	id := timerID(target, key.String())

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[id]; ok {
		prev.timer.Stop()
		delete(s.timers, id)
	}
	return nil
}

// Run delivers fired keys to handler until ctx is done. Handler errors are
// logged and do not stop the loop.
func (s *Timer) Run(ctx context.Context, handler effects.FiredHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case f := <-s.fired:
			if !s.claim(f) {
				continue
			}

			target, key, _ := splitTimerID(f.id)
			if err := handler(ctx, target, key); err != nil {
				slog.Warn("expiration handler failed",
					"component", "scheduler",
					"target", target,
					"key", key,
					"error", err)
			}
		}
	}
}

// claim removes the timer if f is its latest generation. A fire that raced
// with Cancel or a replacing Schedule is stale.
func (s *Timer) claim(f firing) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.timers[f.id]
	if !ok || current.gen != f.gen {
		return false
	}
	delete(s.timers, f.id)
	return true
}

// Pending lists the armed timers
func (s *Timer) Pending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]Pending, 0, len(s.timers))
	for id, t := range s.timers {
		target, key, _ := splitTimerID(id)
		pending = append(pending, Pending{Target: target, Key: key, Due: t.due})
	}
	sortPending(pending)
	return pending
}

// Close stops every pending timer and ends Run
func (s *Timer) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for id, t := range s.timers {
			t.timer.Stop()
			delete(s.timers, id)
		}
		close(s.done)
	})
}
