package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const chat = int64(42)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	st, err := s.Get(ctx, chat)
	require.NoError(t, err)
	assert.True(t, st.IsIdle())

	require.NoError(t, s.Set(ctx, chat, State{Kind: AwaitingScheduleText, Day: 4}))
	st, err = s.Get(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, State{Kind: AwaitingScheduleText, Day: 4}, st)

	other, err := s.Get(ctx, chat+1)
	require.NoError(t, err)
	assert.True(t, other.IsIdle())

	require.NoError(t, s.Set(ctx, chat, State{Kind: Idle}))
	st, err = s.Get(ctx, chat)
	require.NoError(t, err)
	assert.True(t, st.IsIdle())

	require.NoError(t, s.Set(ctx, chat, State{Kind: AwaitingNoteText}))
	require.NoError(t, s.Clear(ctx, chat))
	st, err = s.Get(ctx, chat)
	require.NoError(t, err)
	assert.True(t, st.IsIdle())
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStore(t *testing.T) {
	_, rdb := newRedis(t)
	exerciseStore(t, NewRedisStore(rdb, time.Minute, zap.NewNop()))
}

func TestRedisStoreExpires(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewRedisStore(rdb, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, chat, State{Kind: AwaitingHabitName}))
	assert.Equal(t, time.Minute, mr.TTL(sessionKey(chat)))

	mr.FastForward(2 * time.Minute)
	st, err := s.Get(ctx, chat)
	require.NoError(t, err)
	assert.True(t, st.IsIdle())
}

func TestRedisStoreDropsGarbage(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewRedisStore(rdb, time.Minute, zap.NewNop())
	require.NoError(t, mr.Set(sessionKey(chat), "{not json"))

	st, err := s.Get(context.Background(), chat)
	require.NoError(t, err)
	assert.True(t, st.IsIdle())
	assert.False(t, mr.Exists(sessionKey(chat)))
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewRedisStore(rdb, time.Minute, zap.NewNop())
	mr.Close()

	_, err := s.Get(context.Background(), chat)
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Minute))
}

func TestMemoryStoreExpires(t *testing.T) {
	now := time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, chat, State{Kind: AwaitingNoteText}))
	now = now.Add(59 * time.Second)
	st, err := s.Get(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, AwaitingNoteText, st.Kind)

	now = now.Add(time.Second)
	st, err = s.Get(ctx, chat)
	require.NoError(t, err)
	assert.True(t, st.IsIdle())
}
