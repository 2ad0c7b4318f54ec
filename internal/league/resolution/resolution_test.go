package resolution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/ledger"
	"github.com/radieske/league-bet-platform/internal/league/memstore"
	"github.com/radieske/league-bet-platform/internal/league/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var leagueNow = time.Date(2025, 9, 6, 18, 0, 0, 0, time.UTC)

func finished(home, away int, bonus model.Side) *model.Match {
	return &model.Match{
		ID:        uuid.New(),
		Season:    "2025",
		Status:    model.MatchFinished,
		HomeScore: home,
		AwayScore: away,
		Bonus:     &model.BonusEvent{Side: bonus, Minute: 60},
	}
}

func bet(t model.WagerType, sel, stake, odds string) *model.Bet {
	return &model.Bet{
		ID:        uuid.New(),
		UserID:    "u1",
		WagerType: t,
		Selection: sel,
		Stake:     dec(stake),
		Odds:      dec(odds),
		Status:    model.BetPending,
	}
}

func TestDecide(t *testing.T) {
	homeWin := finished(190, 40, model.SideHome) // margem 150
	draw := finished(60, 60, model.SideAway)
	cancelled := &model.Match{ID: uuid.New(), Status: model.MatchCancelled}

	tests := []struct {
		name    string
		bet     *model.Bet
		match   *model.Match
		status  model.BetStatus
		payout  string
		wantErr bool
	}{
		{name: "winner hit", bet: bet(model.WagerMatchWinner, "home", "10", "1.85"), match: homeWin, status: model.BetWon, payout: "18.5"},
		{name: "winner miss", bet: bet(model.WagerMatchWinner, "away", "10", "1.85"), match: homeWin, status: model.BetLost, payout: "0"},
		{name: "draw hit", bet: bet(model.WagerMatchWinner, "draw", "10", "3.4"), match: draw, status: model.BetWon, payout: "34"},
		{name: "draw miss", bet: bet(model.WagerMatchWinner, "draw", "10", "3.4"), match: homeWin, status: model.BetLost, payout: "0"},
		{name: "bonus hit", bet: bet(model.WagerBonusEvent, "away", "5", "1.9"), match: draw, status: model.BetWon, payout: "9.5"},
		{name: "bonus miss", bet: bet(model.WagerBonusEvent, "away", "5", "1.9"), match: homeWin, status: model.BetLost, payout: "0"},
		{name: "margin open bracket", bet: bet(model.WagerMargin, "150+", "4", "5"), match: homeWin, status: model.BetWon, payout: "20"},
		{name: "margin miss", bet: bet(model.WagerMargin, "100-149", "4", "4"), match: homeWin, status: model.BetLost, payout: "0"},
		{name: "margin zero on draw", bet: bet(model.WagerMargin, "0-49", "4", "2.2"), match: draw, status: model.BetWon, payout: "8.8"},
		{name: "payout rounds to cents", bet: bet(model.WagerMatchWinner, "home", "3.33", "1.333"), match: homeWin, status: model.BetWon, payout: "4.44"},
		{name: "cancelled voids", bet: bet(model.WagerMatchWinner, "home", "12.5", "2"), match: cancelled, status: model.BetVoid, payout: "12.5"},
		{name: "odds below one", bet: bet(model.WagerMatchWinner, "home", "10", "0.5"), match: homeWin, wantErr: true},
		{name: "zero stake", bet: bet(model.WagerMatchWinner, "home", "0", "2"), match: homeWin, wantErr: true},
		{name: "unknown selection", bet: bet(model.WagerBonusEvent, "draw", "10", "2"), match: homeWin, wantErr: true},
		{name: "unknown wager type", bet: bet(model.WagerType("parlay"), "home", "10", "2"), match: homeWin, wantErr: true},
		{name: "match not finished", bet: bet(model.WagerMatchWinner, "home", "10", "2"), match: &model.Match{Status: model.MatchLive}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payout, err := Decide(tt.bet, tt.match)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
			assert.True(t, dec(tt.payout).Equal(payout), payout.String())
		})
	}
}

type fixture struct {
	ctx    context.Context
	st     *memstore.Store
	ledger *ledger.Ledger
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), st: memstore.New()}
	f.ledger = ledger.New(zap.NewNop(), f.st)
	f.engine = New(zap.NewNop(), f.st, f.ledger, func() time.Time { return leagueNow })
	return f
}

func (f *fixture) insertMatch(t *testing.T, m *model.Match) *model.Match {
	t.Helper()
	require.NoError(t, f.st.InsertMatches(f.ctx, []*model.Match{m}))
	return m
}

func (f *fixture) place(t *testing.T, m *model.Match, b *model.Bet) *model.Bet {
	t.Helper()
	b.MatchID = m.ID
	b.PlacedAt = leagueNow.Add(-time.Hour)
	_, err := f.ledger.PlaceStake(f.ctx, b)
	require.NoError(t, err)
	return b
}

func (f *fixture) balance(t *testing.T, user string) decimal.Decimal {
	t.Helper()
	a, err := f.st.GetAccount(f.ctx, user)
	require.NoError(t, err)
	return a.Balance
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	m := f.insertMatch(t, finished(100, 20, model.SideHome))
	_, err := f.ledger.Deposit(f.ctx, "u1", dec("100"), "seed")
	require.NoError(t, err)
	f.place(t, m, bet(model.WagerMatchWinner, "home", "10", "2"))
	f.place(t, m, bet(model.WagerMatchWinner, "away", "10", "2"))
	f.place(t, m, bet(model.WagerBonusEvent, "home", "10", "1.5"))

	first, err := f.engine.ResolveBetsForMatch(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Resolved)
	assert.Empty(t, first.Errors)
	balanceAfterFirst := f.balance(t, "u1")

	second, err := f.engine.ResolveBetsForMatch(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Resolved)
	assert.Empty(t, second.Errors)
	assert.True(t, balanceAfterFirst.Equal(f.balance(t, "u1")))
}

func TestResolvePayoutsMatchRuleAndConserveMoney(t *testing.T) {
	f := newFixture(t)
	m := f.insertMatch(t, finished(130, 70, model.SideAway))
	for _, u := range []string{"u1", "u2"} {
		_, err := f.ledger.Deposit(f.ctx, u, dec("200"), "seed")
		require.NoError(t, err)
	}
	placed := []*model.Bet{
		f.place(t, m, bet(model.WagerMatchWinner, "home", "25", "1.75")),
		f.place(t, m, bet(model.WagerMargin, "50-99", "10", "3.2")),
		f.place(t, m, bet(model.WagerBonusEvent, "home", "15", "2")),
	}
	other := bet(model.WagerMatchWinner, "draw", "40", "4")
	other.UserID = "u2"
	placed = append(placed, f.place(t, m, other))

	before := f.balance(t, "u1").Add(f.balance(t, "u2"))
	res, err := f.engine.ResolveBetsForMatch(f.ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 4, res.Resolved)
	after := f.balance(t, "u1").Add(f.balance(t, "u2"))

	credited := decimal.Zero
	for _, b := range placed {
		stored, err := f.st.GetBet(f.ctx, b.ID)
		require.NoError(t, err)
		require.True(t, stored.Status.Resolved())
		require.NoError(t, stored.CheckConsistency())
		require.NotNil(t, stored.ResolvedAt)
		assert.Equal(t, leagueNow, *stored.ResolvedAt)
		if stored.Status != model.BetLost {
			credited = credited.Add(*stored.Payout)
		}
	}
	assert.True(t, after.Sub(before).Equal(credited), "delta %s credited %s", after.Sub(before), credited)
	// 25*1.75 + 10*3.2
	assert.True(t, dec("75.75").Equal(credited))
}

func TestResolveOneMalformedAmongFive(t *testing.T) {
	f := newFixture(t)
	m := f.insertMatch(t, finished(80, 30, model.SideHome))
	_, err := f.ledger.Deposit(f.ctx, "u1", dec("100"), "seed")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		f.place(t, m, bet(model.WagerMatchWinner, "home", "5", "2"))
	}
	bad := bet(model.WagerMatchWinner, "home", "5", "0.2")
	bad.MatchID = m.ID
	require.NoError(t, f.st.InsertBet(f.ctx, bad))

	var res *Result
	require.NotPanics(t, func() {
		res, err = f.engine.ResolveBetsForMatch(f.ctx, m.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Resolved)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "bet "+bad.ID.String()+": ")

	stored, err := f.st.GetBet(f.ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BetPending, stored.Status)
}

func TestResolveCancelledMatchRefunds(t *testing.T) {
	f := newFixture(t)
	m := f.insertMatch(t, &model.Match{ID: uuid.New(), Status: model.MatchScheduled})
	_, err := f.ledger.Deposit(f.ctx, "u1", dec("50"), "seed")
	require.NoError(t, err)
	f.place(t, m, bet(model.WagerMatchWinner, "home", "20", "2"))
	f.place(t, m, bet(model.WagerMargin, "0-49", "30", "2"))
	assert.True(t, decimal.Zero.Equal(f.balance(t, "u1")))

	m.Status = model.MatchCancelled
	require.NoError(t, f.st.UpdateMatch(f.ctx, m))

	res, err := f.engine.ResolveBetsForMatch(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Resolved)
	assert.True(t, dec("50").Equal(f.balance(t, "u1")))
	for _, b := range res.Settled {
		assert.Equal(t, model.BetVoid, b.Status)
	}
}

func TestResolveRejectsUnfinishedMatch(t *testing.T) {
	for _, status := range []model.MatchStatus{model.MatchScheduled, model.MatchLive} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			m := f.insertMatch(t, &model.Match{ID: uuid.New(), Status: status})
			_, err := f.ledger.Deposit(f.ctx, "u1", dec("10"), "seed")
			require.NoError(t, err)
			b := f.place(t, m, bet(model.WagerMatchWinner, "home", "10", "2"))

			_, err = f.engine.ResolveBetsForMatch(f.ctx, m.ID)
			assert.ErrorIs(t, err, model.ErrInvalidState)

			stored, err := f.st.GetBet(f.ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, model.BetPending, stored.Status)
		})
	}
}

func TestResolveUnknownMatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.ResolveBetsForMatch(f.ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestResolveSurfacesInconsistentResolvedBet(t *testing.T) {
	f := newFixture(t)
	m := f.insertMatch(t, finished(50, 10, model.SideHome))
	broken := bet(model.WagerMatchWinner, "home", "10", "2")
	broken.MatchID = m.ID
	broken.Status = model.BetWon
	require.NoError(t, f.st.InsertBet(f.ctx, broken))

	flagged := 0
	f.engine.OnInconsistent = func() { flagged++ }

	res, err := f.engine.ResolveBetsForMatch(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Resolved)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "consistency violation")
	assert.Equal(t, 1, flagged)

	stored, err := f.st.GetBet(f.ctx, broken.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Payout, "never repaired")
}

type applierMock struct{ mock.Mock }

func (m *applierMock) ApplyResolution(ctx context.Context, b *model.Bet) error {
	return m.Called(ctx, b).Error(0)
}

func TestResolveSkipsBetResolvedConcurrently(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	m := finished(20, 10, model.SideHome)
	require.NoError(t, st.InsertMatches(ctx, []*model.Match{m}))
	b := bet(model.WagerMatchWinner, "home", "10", "2")
	b.MatchID = m.ID
	require.NoError(t, st.InsertBet(ctx, b))

	applier := new(applierMock)
	applier.On("ApplyResolution", mock.Anything, mock.MatchedBy(func(x *model.Bet) bool { return x.ID == b.ID })).
		Return(model.ErrAlreadyResolved).Once()

	res, err := New(zap.NewNop(), st, applier, nil).ResolveBetsForMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Resolved)
	assert.Empty(t, res.Errors)
	applier.AssertExpectations(t)
}
