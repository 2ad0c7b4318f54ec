package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/memstore"
	"github.com/radieske/league-bet-platform/internal/league/model"
)

var leagueNow = time.Date(2025, 9, 6, 17, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return leagueNow }

func seedMatch(t *testing.T, st *memstore.Store, status model.MatchStatus) *model.Match {
	t.Helper()
	m := &model.Match{
		ID:          uuid.New(),
		Season:      "2025",
		Round:       1,
		HomeTeamID:  uuid.New(),
		AwayTeamID:  uuid.New(),
		ScheduledAt: leagueNow.Add(-time.Hour),
		Status:      status,
	}
	require.NoError(t, st.InsertMatches(context.Background(), []*model.Match{m}))
	return m
}

func TestSimulateFinishesAndPersists(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	m := seedMatch(t, st, model.MatchLive)

	sim := New(zap.NewNop(), st, DefaultConfig(), 42, fixedNow)
	out, err := sim.Simulate(ctx, m.ID)
	require.NoError(t, err)

	assert.Equal(t, model.MatchFinished, out.Status)
	require.NotNil(t, out.Bonus)
	require.NotNil(t, out.FinishedAt)
	assert.Equal(t, leagueNow, *out.FinishedAt)

	stored, err := st.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, out, stored)
}

func TestSimulateRejectsTerminalMatch(t *testing.T) {
	for _, status := range []model.MatchStatus{model.MatchFinished, model.MatchCancelled} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			st := memstore.New()
			m := seedMatch(t, st, status)

			sim := New(zap.NewNop(), st, DefaultConfig(), 1, fixedNow)
			_, err := sim.Simulate(ctx, m.ID)
			assert.ErrorIs(t, err, model.ErrInvalidState)

			stored, err := st.GetMatch(ctx, m.ID)
			require.NoError(t, err)
			assert.Equal(t, status, stored.Status)
			assert.Nil(t, stored.Bonus)
		})
	}
}

func TestSimulateUnknownMatch(t *testing.T) {
	sim := New(zap.NewNop(), memstore.New(), DefaultConfig(), 1, fixedNow)
	_, err := sim.Simulate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPlayInvariants(t *testing.T) {
	cfg := DefaultConfig()
	sim := New(zap.NewNop(), memstore.New(), cfg, 7, fixedNow)
	in := &model.Match{ID: uuid.New(), Status: model.MatchScheduled}

	for i := 0; i < 500; i++ {
		out := sim.Play(in)

		assert.GreaterOrEqual(t, out.HomeScore, 0)
		assert.GreaterOrEqual(t, out.AwayScore, 0)
		require.NotNil(t, out.Bonus)
		assert.GreaterOrEqual(t, out.Bonus.Minute, cfg.BonusWindowMin)
		assert.LessOrEqual(t, out.Bonus.Minute, cfg.BonusWindowMax)

		catches, home, away := 0, 0, 0
		for j, ev := range out.Events {
			if j > 0 {
				assert.LessOrEqual(t, out.Events[j-1].Minute, ev.Minute)
			}
			if ev.Kind == model.EventBonusCatch {
				catches++
				assert.Equal(t, out.Bonus.Side, ev.Side)
			} else {
				assert.Less(t, ev.Minute, out.Bonus.Minute)
			}
			if ev.Side == model.SideHome {
				home += ev.Points
			} else {
				away += ev.Points
			}
		}
		assert.Equal(t, 1, catches)
		assert.Equal(t, out.HomeScore, home)
		assert.Equal(t, out.AwayScore, away)
	}
	assert.Equal(t, model.MatchScheduled, in.Status, "input is not mutated")
}

func TestPlayIsReproducibleWithSameSeed(t *testing.T) {
	in := &model.Match{ID: uuid.New(), Status: model.MatchScheduled}
	a := New(zap.NewNop(), memstore.New(), DefaultConfig(), 99, fixedNow)
	b := New(zap.NewNop(), memstore.New(), DefaultConfig(), 99, fixedNow)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Play(in), b.Play(in))
	}
}
