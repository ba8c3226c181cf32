package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/clock"
	"github.com/KirkDiggler/effect-engine/internal/effects"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix    = "effects"
	defaultPollInterval = 100 * time.Millisecond
	defaultBatchSize    = 100
)

// RedisConfig holds configuration for the Redis scheduler
type RedisConfig struct {
	Client       redis.UniversalClient // Required
	KeyPrefix    string                // Optional, defaults to "effects"
	Clock        clock.TimeProvider    // Optional, defaults to the system clock
	PollInterval time.Duration         // Optional, defaults to 100ms
	BatchSize    int64                 // Optional, max timers claimed per poll
}

// Redis keeps timers in a sorted set scored by due time in unix
// milliseconds, so pending expirations survive a restart. Members are
// target and trigger key joined by a unit separator. Several processes may
// poll the same set; a timer is dispatched by whichever one removes it.
type Redis struct {
	client       redis.UniversalClient
	key          string
	clock        clock.TimeProvider
	pollInterval time.Duration
	batchSize    int64
}

// NewRedis creates a Redis-backed scheduler
func NewRedis(cfg *RedisConfig) *Redis {
	if cfg == nil || cfg.Client == nil {
		panic("redis client is required")
	}

	s := &Redis{
		client:       cfg.Client,
		key:          defaultKeyPrefix + ":timers",
		clock:        cfg.Clock,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
	}
	if cfg.KeyPrefix != "" {
		s.key = cfg.KeyPrefix + ":timers"
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	return s
}

// Schedule arms key for target. ZADD overwrites the score of an existing
// member, which replaces the pending timer.
func (s *Redis) Schedule(ctx context.Context, target string, key effects.ExpirationKey, delay time.Duration) error {
	due := s.clock.Now().Add(delay).UnixMilli()

	err := s.client.ZAdd(ctx, s.key, redis.Z{
		Score:  float64(due),
		Member: timerID(target, key.String()),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule %s for %s: %w", key, target, err)
	}
	return nil
}

// Cancel disarms key for target
func (s *Redis) Cancel(ctx context.Context, target string, key effects.ExpirationKey) error {
	if err := s.client.ZRem(ctx, s.key, timerID(target, key.String())).Err(); err != nil {
		return fmt.Errorf("failed to cancel %s for %s: %w", key, target, err)
	}
	return nil
}

// Poll dispatches every timer due now and returns how many it fired. Each
// timer is claimed with ZREM first so concurrent pollers never fire it twice.
func (s *Redis) Poll(ctx context.Context, handler effects.FiredHandler) (int, error) {
	now := s.clock.Now().UnixMilli()

	members, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: s.batchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due timers: %w", err)
	}

	fired := 0
	for _, member := range members {
		removed, err := s.client.ZRem(ctx, s.key, member).Result()
		if err != nil {
			return fired, fmt.Errorf("failed to claim timer: %w", err)
		}
		if removed == 0 {
			continue
		}

		target, key, ok := splitTimerID(member)
		if !ok {
			slog.Warn("dropping malformed timer",
				"component", "scheduler",
				"member", member)
			continue
		}

		fired++
		if err := handler(ctx, target, key); err != nil {
			slog.Warn("expiration handler failed",
				"component", "scheduler",
				"target", target,
				"key", key,
				"error", err)
		}
	}
	return fired, nil
}

// Pending lists the armed timers
func (s *Redis) Pending(ctx context.Context) ([]Pending, error) {
	entries, err := s.client.ZRangeWithScores(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}

	pending := make([]Pending, 0, len(entries))
	for _, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		target, key, ok := splitTimerID(member)
		if !ok {
			continue
		}
		pending = append(pending, Pending{
			Target: target,
			Key:    key,
			Due:    time.UnixMilli(int64(entry.Score)),
		})
	}
	sortPending(pending)
	return pending, nil
}

// Run polls on the configured interval until ctx is done. Poll errors are
// logged and retried on the next tick.
func (s *Redis) Run(ctx context.Context, handler effects.FiredHandler) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Poll(ctx, handler); err != nil {
				slog.Error("timer poll failed",
					"component", "scheduler",
					"error", err)
			}
		}
	}
}
