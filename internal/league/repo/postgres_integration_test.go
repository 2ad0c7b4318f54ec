//go:build integration

package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/ledger"
	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
	"github.com/radieske/league-bet-platform/internal/shared/db"
)

func setupPostgres(t *testing.T) *Postgres {
	t.Helper()
	ctx := context.Background()

	c, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("league_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{"test": "league-repo"}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = c.Terminate(ctx)
	})

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	version, err := db.Migrate(ctx, dsn)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	conn, err := db.ConnectPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPostgres(conn)
}

func seedMatch(t *testing.T, p *Postgres, kickoff time.Time) *model.Match {
	t.Helper()
	ctx := context.Background()
	home := &model.Team{ID: uuid.New(), Season: "2025", Code: "H" + uuid.NewString()[:4], Name: "Home"}
	away := &model.Team{ID: uuid.New(), Season: "2025", Code: "A" + uuid.NewString()[:4], Name: "Away"}
	require.NoError(t, p.InsertTeams(ctx, []*model.Team{home, away}))

	m := &model.Match{ID: uuid.New(), Season: "2025", Round: 1, HomeTeamID: home.ID, AwayTeamID: away.ID,
		ScheduledAt: kickoff, Status: model.MatchScheduled}
	require.NoError(t, p.InsertMatches(ctx, []*model.Match{m}))
	return m
}

func TestPostgresMatchRoundTrip(t *testing.T) {
	p := setupPostgres(t)
	ctx := context.Background()
	kickoff := time.Date(2025, 9, 6, 15, 0, 0, 0, time.UTC)
	m := seedMatch(t, p, kickoff)

	next, err := p.NextScheduledMatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.ID, next.ID)

	due, err := p.ListDueMatches(ctx, kickoff.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)

	fin := kickoff.Add(2 * time.Hour)
	m.Status = model.MatchFinished
	m.HomeScore, m.AwayScore = 160, 20
	m.Bonus = &model.BonusEvent{Side: model.SideHome, Minute: 47}
	m.Events = []model.MatchEvent{{Minute: 12, Side: model.SideAway, Kind: model.EventGoal, Points: 10}}
	m.FinishedAt = &fin
	require.NoError(t, p.UpdateMatch(ctx, m))

	got, err := p.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchFinished, got.Status)
	assert.Equal(t, m.Bonus, got.Bonus)
	assert.Equal(t, m.Events, got.Events)
	assert.True(t, fin.Equal(*got.FinishedAt))

	_, err = p.NextScheduledMatch(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPostgresLedgerFlow(t *testing.T) {
	p := setupPostgres(t)
	ctx := context.Background()
	m := seedMatch(t, p, time.Now().Add(time.Hour))
	l := ledger.New(zap.NewNop(), p)

	_, err := l.Deposit(ctx, "u1", decimal.NewFromInt(50), "seed")
	require.NoError(t, err)

	bet := &model.Bet{ID: uuid.New(), UserID: "u1", MatchID: m.ID, WagerType: model.WagerMatchWinner,
		Selection: "home", Stake: decimal.NewFromInt(20), Odds: decimal.RequireFromString("1.90"),
		Status: model.BetPending, PlacedAt: time.Now().UTC()}
	acc, err := l.PlaceStake(ctx, bet)
	require.NoError(t, err)
	assert.Equal(t, "30", acc.Balance.String())

	payout := decimal.NewFromInt(38)
	now := time.Now().UTC()
	won := bet.Clone()
	won.Status, won.Payout, won.ResolvedAt = model.BetWon, &payout, &now
	require.NoError(t, l.ApplyResolution(ctx, won))
	assert.ErrorIs(t, l.ApplyResolution(ctx, won), model.ErrAlreadyResolved)

	acc, err = p.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "68", acc.Balance.String())

	entries, err := p.ListLedger(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.LedgerPayout, entries[0].Kind)
	require.NotNil(t, entries[0].BetID)
	assert.Equal(t, bet.ID, *entries[0].BetID)
}

func TestPostgresWithTxRollsBack(t *testing.T) {
	p := setupPostgres(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := p.WithTx(ctx, func(tx store.Store) error {
		if err := tx.SaveClock(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok, err := p.LoadClock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
