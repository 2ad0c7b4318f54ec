package odds

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/model"
)

func TestCurrentOddDefaults(t *testing.T) {
	q := NewQuoter(zap.NewNop(), nil)
	ctx := context.Background()

	v, err := q.CurrentOdd(ctx, uuid.New(), model.WagerMatchWinner, "draw")
	require.NoError(t, err)
	assert.Equal(t, "3.5", v.String())

	v, err = q.CurrentOdd(ctx, uuid.New(), model.WagerMargin, "150+")
	require.NoError(t, err)
	assert.Equal(t, "6", v.String())

	_, err = q.CurrentOdd(ctx, uuid.New(), model.WagerBonusEvent, "draw")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestOverrideWins(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewQuoter(zap.NewNop(), rdb)
	matchID := uuid.New()

	require.NoError(t, q.SetOverride(ctx, matchID, model.WagerMatchWinner, "home", decimal.RequireFromString("2.35"), 0))
	assert.True(t, mr.Exists("odds:"+matchID.String()+":match_winner:home"))

	v, err := q.CurrentOdd(ctx, matchID, model.WagerMatchWinner, "home")
	require.NoError(t, err)
	assert.Equal(t, "2.35", v.String())

	// outra partida segue na tabela padrão
	v, err = q.CurrentOdd(ctx, uuid.New(), model.WagerMatchWinner, "home")
	require.NoError(t, err)
	assert.Equal(t, "1.9", v.String())

	err = q.SetOverride(ctx, matchID, model.WagerMatchWinner, "home", decimal.RequireFromString("0.9"), 0)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestOverrideRejectsExtraPrecision(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewQuoter(zap.NewNop(), rdb)
	matchID := uuid.New()

	err := q.SetOverride(ctx, matchID, model.WagerMatchWinner, "away", decimal.RequireFromString("2.12345"), 0)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.False(t, mr.Exists("odds:"+matchID.String()+":match_winner:away"))

	require.NoError(t, q.SetOverride(ctx, matchID, model.WagerMatchWinner, "away", decimal.RequireFromString("2.1234"), 0))
	v, err := q.CurrentOdd(ctx, matchID, model.WagerMatchWinner, "away")
	require.NoError(t, err)
	assert.Equal(t, "2.1234", v.String())
}

func TestMalformedOverrideFallsBack(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewQuoter(zap.NewNop(), rdb)
	matchID := uuid.New()
	require.NoError(t, mr.Set("odds:"+matchID.String()+":bonus_event:away", "abc"))

	v, err := q.CurrentOdd(ctx, matchID, model.WagerBonusEvent, "away")
	require.NoError(t, err)
	assert.Equal(t, "1.85", v.String())
}

func TestMarketListsEverySelection(t *testing.T) {
	q := NewQuoter(zap.NewNop(), nil)
	quotes, err := q.Market(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, quotes, 9)
	assert.Equal(t, "150+", quotes[len(quotes)-1].Selection)
}
