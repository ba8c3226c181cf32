package effectstate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/KirkDiggler/effect-engine/internal/effects"
	effecterr "github.com/KirkDiggler/effect-engine/internal/errors"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisRepoTestSuite struct {
	suite.Suite
	mockClient *redis.Client
	mock       redismock.ClientMock
	repo       Repository
	ctx        context.Context
}

func (s *RedisRepoTestSuite) SetupTest() {
	s.mockClient, s.mock = redismock.NewClientMock()
	s.repo = NewRedisRepository(&RedisConfig{Client: s.mockClient, KeyPrefix: "test"})
	s.ctx = context.Background()
}

func (s *RedisRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func TestRedisRepoTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepoTestSuite))
}

func (s *RedisRepoTestSuite) encode(state *effects.State) string {
	data, err := json.Marshal(state)
	s.Require().NoError(err)
	return string(data)
}

func (s *RedisRepoTestSuite) TestGet() {
	key := effects.StateKey{Kind: "resist_damage", SubID: "fire"}
	stored := &effects.State{Kind: "resist_damage", SubID: "fire", Magnitude: 5, UpdatedAt: time.Unix(100, 0).UTC()}

	// Happy path
	s.mock.ExpectHGet("test:state:npc-1", "resist_damage:fire").SetVal(s.encode(stored))
	state, exists, err := s.repo.Get(s.ctx, "npc-1", key)
	s.Require().NoError(err)
	s.True(exists)
	s.Equal(5.0, state.Magnitude)
	s.True(stored.UpdatedAt.Equal(state.UpdatedAt))

	// Absent
	s.mock.ExpectHGet("test:state:npc-1", "resist_damage:fire").RedisNil()
	_, exists, err = s.repo.Get(s.ctx, "npc-1", key)
	s.NoError(err)
	s.False(exists)

	// Dependency error
	s.mock.ExpectHGet("test:state:npc-1", "resist_damage:fire").SetErr(errors.New("redis error"))
	_, _, err = s.repo.Get(s.ctx, "npc-1", key)
	s.Error(err)

	// Corrupt payload
	s.mock.ExpectHGet("test:state:npc-1", "resist_damage:fire").SetVal("{not json")
	_, _, err = s.repo.Get(s.ctx, "npc-1", key)
	s.Require().Error(err)
	s.True(effecterr.IsInternal(err))
	s.Equal("resist_damage:fire", effecterr.GetMeta(err)["field"])
}

func (s *RedisRepoTestSuite) TestUpsertCreates() {
	key := effects.StateKey{Kind: "walk_speed"}
	next := &effects.State{Kind: "walk_speed", Magnitude: 1.5, UpdatedAt: time.Unix(200, 0).UTC()}

	s.mock.ExpectHGet("test:state:npc-1", "walk_speed").RedisNil()
	s.mock.ExpectHSet("test:state:npc-1", "walk_speed", s.encode(next)).SetVal(1)

	err := s.repo.Upsert(s.ctx, "npc-1", key, func(existing *effects.State) *effects.State {
		s.Nil(existing)
		return next
	})
	s.NoError(err)
}

func (s *RedisRepoTestSuite) TestUpsertNilRemoves() {
	key := effects.StateKey{Kind: "walk_speed"}
	existing := &effects.State{Kind: "walk_speed", Magnitude: 1.5}

	s.mock.ExpectHGet("test:state:npc-1", "walk_speed").SetVal(s.encode(existing))
	s.mock.ExpectHDel("test:state:npc-1", "walk_speed").SetVal(1)

	err := s.repo.Upsert(s.ctx, "npc-1", key, func(*effects.State) *effects.State { return nil })
	s.NoError(err)
}

func (s *RedisRepoTestSuite) TestUpdate() {
	key := effects.StateKey{Kind: "walk_speed"}
	existing := &effects.State{Kind: "walk_speed", Magnitude: 1.5}
	updated := &effects.State{Kind: "walk_speed", Magnitude: 2.5}

	s.mock.ExpectHGet("test:state:npc-1", "walk_speed").SetVal(s.encode(existing))
	s.mock.ExpectHSet("test:state:npc-1", "walk_speed", s.encode(updated)).SetVal(0)

	err := s.repo.Update(s.ctx, "npc-1", key, func(state *effects.State) { state.Magnitude = 2.5 })
	s.NoError(err)

	// Absent state is left alone
	s.mock.ExpectHGet("test:state:npc-1", "walk_speed").RedisNil()
	err = s.repo.Update(s.ctx, "npc-1", key, func(*effects.State) { s.Fail("must not be called") })
	s.NoError(err)
}

func (s *RedisRepoTestSuite) TestRemove() {
	key := effects.StateKey{Kind: "walk_speed"}

	s.mock.ExpectHDel("test:state:npc-1", "walk_speed").SetVal(1)
	s.NoError(s.repo.Remove(s.ctx, "npc-1", key))

	s.mock.ExpectHDel("test:state:npc-1", "walk_speed").SetErr(errors.New("redis error"))
	s.Error(s.repo.Remove(s.ctx, "npc-1", key))
}

func (s *RedisRepoTestSuite) TestList() {
	fire := &effects.State{Kind: "resist_damage", SubID: "fire", Magnitude: 5}
	walk := &effects.State{Kind: "walk_speed", Magnitude: 1.5}

	s.mock.ExpectHGetAll("test:state:npc-1").SetVal(map[string]string{
		"walk_speed":         s.encode(walk),
		"resist_damage:fire": s.encode(fire),
	})

	states, err := s.repo.List(s.ctx, "npc-1")
	s.Require().NoError(err)
	s.Require().Len(states, 2)
	s.Equal("resist_damage", states[0].Kind)
	s.Equal("walk_speed", states[1].Kind)

	s.mock.ExpectHGetAll("test:state:npc-1").SetErr(errors.New("redis error"))
	_, err = s.repo.List(s.ctx, "npc-1")
	s.Error(err)
	s.mock.ExpectHGetAll("test:state:npc-1").SetVal(map[string]string{"walk_speed": "{not json"})
	_, err = s.repo.List(s.ctx, "npc-1")
	s.True(effecterr.IsInternal(err))
}

func (s *RedisRepoTestSuite) TestDefaultPrefix() {
	repo := NewRedisRepository(&RedisConfig{Client: s.mockClient})

	s.mock.ExpectHDel("effects:state:npc-1", "walk_speed").SetVal(0)
	s.NoError(repo.Remove(s.ctx, "npc-1", effects.StateKey{Kind: "walk_speed"}))
}

func (s *RedisRepoTestSuite) TestRequiresClient() {
	s.Panics(func() { NewRedisRepository(&RedisConfig{}) })
}
