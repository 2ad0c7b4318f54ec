package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/league-bet-platform/pkg/contracts/live"
)

func TestSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	c := New(rdb, "2025")
	ctx := context.Background()

	_, ok := c.Snapshot(ctx, "match:m-1")
	assert.False(t, ok)

	require.NoError(t, mr.Set(live.MatchKey("m-1"), `{"match_id":"m-1"}`))
	require.NoError(t, mr.Set(live.StandingsKey("2025"), `{"season":"2025"}`))

	upd, ok := c.Snapshot(ctx, "match:m-1")
	require.True(t, ok)
	assert.Equal(t, live.TypeMatchFinished, upd.Type)
	assert.Equal(t, "match:m-1", upd.Channel)

	upd, ok = c.Snapshot(ctx, live.StandingsChannel)
	require.True(t, ok)
	assert.Equal(t, live.TypeStandingsUpdated, upd.Type)
	assert.JSONEq(t, `{"season":"2025"}`, string(upd.Payload))

	_, ok = c.Snapshot(ctx, "odds:1")
	assert.False(t, ok)
}
