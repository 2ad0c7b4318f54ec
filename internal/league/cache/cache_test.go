package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/league-bet-platform/internal/league/model"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStandingsCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	c := NewStandingsCache(rdb, time.Minute)

	_, ok, err := c.Get(ctx, "2025")
	require.NoError(t, err)
	assert.False(t, ok)

	table := []model.Standing{{Season: "2025", TeamID: uuid.New(), TeamCode: "GRY", Position: 1, Points: 6}}
	require.NoError(t, c.Set(ctx, "2025", table))
	assert.Equal(t, time.Minute, mr.TTL("standings:2025"))

	got, ok, err := c.Get(ctx, "2025")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, table, got)

	require.NoError(t, c.Invalidate(ctx, "2025"))
	_, ok, err = c.Get(ctx, "2025")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockerIsExclusive(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	l := NewLocker(rdb)

	release, err := l.Acquire(ctx, "league:advance", 30*time.Second)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "league:advance", 30*time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	release()
	assert.False(t, mr.Exists("lock:league:advance"))

	again, err := l.Acquire(ctx, "league:advance", 30*time.Second)
	require.NoError(t, err)
	again()
}

func TestLockerDoesNotReleaseForeignToken(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	l := NewLocker(rdb)

	release, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	// expira e outra instância pega o lock
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	release()
	v, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}
