package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/effects"
)

type virtualTimer struct {
	target string
	key    string
	due    time.Time
	seq    uint64
}

// Virtual is a deterministic scheduler driven by Advance. It doubles as the
// clock of everything it schedules for, so tests can step simulated time.
type Virtual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	timers  map[string]*virtualTimer
	handler effects.FiredHandler
}

// NewVirtual creates a virtual scheduler starting at start
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{
		now:    start,
		timers: make(map[string]*virtualTimer),
	}
}

// SetHandler sets the receiver of fired keys
func (v *Virtual) SetHandler(handler effects.FiredHandler) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.handler = handler
}

// Now returns the virtual time
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Schedule arms key for target, replacing a pending timer of the same key
func (v *Virtual) Schedule(ctx context.Context, target string, key effects.ExpirationKey, delay time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	raw := key.String()
	v.seq++
	v.timers[timerID(target, raw)] = &virtualTimer{
		target: target,
		key:    raw,
		due:    v.now.Add(delay),
		seq:    v.seq,
	}
	return nil
}

// Cancel disarms key for target
func (v *Virtual) Cancel(ctx context.Context, target string, key effects.ExpirationKey) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.timers, timerID(target, key.String()))
	return nil
}

// Advance moves time forward by d, firing due timers in deadline order.
// Timers with equal deadlines fire in the order they were scheduled. Timers
// armed by the handler fire within the same call when they fall due before
// the end of the step. The first handler error stops the advance.
func (v *Virtual) Advance(ctx context.Context, d time.Duration) error {
	v.mu.Lock()
	end := v.now.Add(d)
	v.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		v.mu.Lock()
		next := v.nextDue(end)
		if next == nil {
			v.now = end
			v.mu.Unlock()
			return nil
		}
		delete(v.timers, timerID(next.target, next.key))
		v.now = next.due
		handler := v.handler
		v.mu.Unlock()

		if handler == nil {
			continue
		}
		if err := handler(ctx, next.target, next.key); err != nil {
			return err
		}
	}
}

// nextDue returns the earliest timer due at or before end
func (v *Virtual) nextDue(end time.Time) *virtualTimer {
	var next *virtualTimer
	for _, t := range v.timers {
		if t.due.After(end) {
			continue
		}
		if next == nil || t.due.Before(next.due) || (t.due.Equal(next.due) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

// Pending lists the armed timers in firing order
func (v *Virtual) Pending() []Pending {
	v.mu.Lock()
	defer v.mu.Unlock()

	timers := make([]*virtualTimer, 0, len(v.timers))
	for _, t := range v.timers {
		timers = append(timers, t)
	}
	sort.Slice(timers, func(i, j int) bool {
		if !timers[i].due.Equal(timers[j].due) {
			return timers[i].due.Before(timers[j].due)
		}
		return timers[i].seq < timers[j].seq
	})

	pending := make([]Pending, 0, len(timers))
	for _, t := range timers {
		pending = append(pending, Pending{Target: t.target, Key: t.key, Due: t.due})
	}
	return pending
}
