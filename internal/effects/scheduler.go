package effects

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_scheduler.go -package=mocks github.com/KirkDiggler/effect-engine/internal/effects Scheduler

// Scheduler registers one-shot expiration timers. Scheduling an existing
// (target, key) pair replaces the pending timer. When a timer fires the
// scheduler hands the encoded key to a FiredHandler.
type Scheduler interface {
	Schedule(ctx context.Context, target string, key ExpirationKey, delay time.Duration) error
	Cancel(ctx context.Context, target string, key ExpirationKey) error
}

// FiredHandler receives the raw trigger key of a fired timer
type FiredHandler func(ctx context.Context, target, key string) error
