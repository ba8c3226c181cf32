package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/effects"
	"github.com/KirkDiggler/effect-engine/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timerFire struct {
	target string
	key    string
}

func runTimer(t *testing.T, s *scheduler.Timer) <-chan timerFire {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan timerFire, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = s.Run(ctx, func(ctx context.Context, target, key string) error {
			fired <- timerFire{target: target, key: key}
			return nil
		})
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		s.Close()
	})
	return fired
}

func TestTimer_Fires(t *testing.T) {
	s := scheduler.NewTimer()
	fired := runTimer(t, s)
	key := effects.ExpirationKey{Effect: "WalkSpeed"}

	require.NoError(t, s.Schedule(context.Background(), "npc-1", key, 10*time.Millisecond))

	select {
	case f := <-fired:
		assert.Equal(t, timerFire{target: "npc-1", key: key.String()}, f)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	assert.Empty(t, s.Pending())
}

func TestTimer_CancelPreventsFire(t *testing.T) {
	s := scheduler.NewTimer()
	fired := runTimer(t, s)
	ctx := context.Background()

	cancelled := effects.ExpirationKey{Effect: "Stun"}
	kept := effects.ExpirationKey{Effect: "Glue"}

	require.NoError(t, s.Schedule(ctx, "npc-1", cancelled, 20*time.Millisecond))
	require.NoError(t, s.Schedule(ctx, "npc-1", kept, 60*time.Millisecond))
	require.Len(t, s.Pending(), 2)
	require.NoError(t, s.Cancel(ctx, "npc-1", cancelled))

	select {
	case f := <-fired:
		// Only the kept timer may arrive
		assert.Equal(t, kept.String(), f.key)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestTimer_ReplaceKeepsOneFire(t *testing.T) {
	s := scheduler.NewTimer()
	fired := runTimer(t, s)
	ctx := context.Background()
	key := effects.ExpirationKey{Effect: "SwimSpeed"}

	require.NoError(t, s.Schedule(ctx, "npc-1", key, 10*time.Millisecond))
	require.NoError(t, s.Schedule(ctx, "npc-1", key, 30*time.Millisecond))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	select {
	case f := <-fired:
		t.Fatalf("unexpected second fire: %v", f)
	case <-time.After(100 * time.Millisecond):
	}
}
