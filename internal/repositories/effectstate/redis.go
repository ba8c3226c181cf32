package effectstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KirkDiggler/effect-engine/internal/effects"
	effecterr "github.com/KirkDiggler/effect-engine/internal/errors"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "effects"

// RedisConfig holds configuration for the Redis repository
type RedisConfig struct {
	Client    redis.UniversalClient
	KeyPrefix string
}

// redisRepository stores one hash per target; fields are state keys and
// values are JSON encoded states
type redisRepository struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRepository creates a new Redis-backed state repository
func NewRedisRepository(cfg *RedisConfig) Repository {
	if cfg == nil || cfg.Client == nil {
		panic("redis client is required")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &redisRepository{
		client:    cfg.Client,
		keyPrefix: prefix,
	}
}

func (r *redisRepository) targetKey(target string) string {
	return fmt.Sprintf("%s:state:%s", r.keyPrefix, target)
}

// Get loads and decodes a state
func (r *redisRepository) Get(ctx context.Context, target string, key effects.StateKey) (*effects.State, bool, error) {
	data, err := r.client.HGet(ctx, r.targetKey(target), key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get state %s for %s: %w", key, target, err)
	}

	var state effects.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, corruptState(err, key.String(), target)
	}
	return &state, true, nil
}

// Upsert reads the current state, applies fn and writes the result back
func (r *redisRepository) Upsert(ctx context.Context, target string, key effects.StateKey, fn func(existing *effects.State) *effects.State) error {
	existing, _, err := r.Get(ctx, target, key)
	if err != nil {
		return err
	}

	next := fn(existing)
	if next == nil {
		return r.Remove(ctx, target, key)
	}
	return r.set(ctx, target, key, next)
}

// Update applies fn to an existing state; absent state is ignored
func (r *redisRepository) Update(ctx context.Context, target string, key effects.StateKey, fn func(state *effects.State)) error {
	state, exists, err := r.Get(ctx, target, key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	fn(state)
	return r.set(ctx, target, key, state)
}

// Remove deletes the state field
func (r *redisRepository) Remove(ctx context.Context, target string, key effects.StateKey) error {
	if err := r.client.HDel(ctx, r.targetKey(target), key.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove state %s for %s: %w", key, target, err)
	}
	return nil
}

// List returns every state of the target ordered by key
func (r *redisRepository) List(ctx context.Context, target string) ([]*effects.State, error) {
	fields, err := r.client.HGetAll(ctx, r.targetKey(target)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list states for %s: %w", target, err)
	}

	states := make([]*effects.State, 0, len(fields))
	for field, data := range fields {
		var state effects.State
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			return nil, corruptState(err, field, target)
		}
		states = append(states, &state)
	}
	sortStates(states)
	return states, nil
}

func (r *redisRepository) set(ctx context.Context, target string, key effects.StateKey, state *effects.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize state %s for %s: %w", key, target, err)
	}

	if err := r.client.HSet(ctx, r.targetKey(target), key.String(), string(data)).Err(); err != nil {
		return fmt.Errorf("failed to store state %s for %s: %w", key, target, err)
	}
	return nil
}

// corruptState reports a stored value that no longer decodes
func corruptState(err error, field, target string) error {
	appErr := effecterr.Internalf("failed to deserialize state %s for %s", field, target).
		WithMeta("target", target).
		WithMeta("field", field)
	appErr.Cause = err
	return appErr
}
