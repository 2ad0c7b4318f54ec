package standings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/memstore"
	"github.com/radieske/league-bet-platform/internal/league/model"
)

func team(code string) *model.Team {
	return &model.Team{ID: uuid.New(), Season: "2025", Code: code, Name: code}
}

func game(home, away *model.Team, hs, as int, status model.MatchStatus) *model.Match {
	return &model.Match{
		ID:         uuid.New(),
		Season:     "2025",
		HomeTeamID: home.ID,
		AwayTeamID: away.ID,
		HomeScore:  hs,
		AwayScore:  as,
		Status:     status,
	}
}

func TestCompute(t *testing.T) {
	a, b, c, d := team("AAA"), team("BBB"), team("CCC"), team("DDD")
	matches := []*model.Match{
		game(a, b, 200, 50, model.MatchFinished), // A vence
		game(c, a, 60, 60, model.MatchFinished),  // empate
		game(b, c, 170, 20, model.MatchFinished), // B vence
		game(c, b, 0, 0, model.MatchScheduled),   // ignorada
		game(a, c, 500, 0, model.MatchCancelled), // ignorada
	}

	table := Compute("2025", []*model.Team{d, c, b, a}, matches)
	require.Len(t, table, 4)

	// A: 4 pts, saldo +150; B: 3 pts, saldo 0; C: 1 pt; D: sem jogos
	assert.Equal(t, "AAA", table[0].TeamCode)
	assert.Equal(t, 4, table[0].Points)
	assert.Equal(t, 2, table[0].Played)
	assert.Equal(t, 1, table[0].Wins)
	assert.Equal(t, 1, table[0].Draws)
	assert.Equal(t, 150, table[0].PointDiff)

	assert.Equal(t, "BBB", table[1].TeamCode)
	assert.Equal(t, 3, table[1].Points)
	assert.Equal(t, 1, table[1].Losses)

	assert.Equal(t, "CCC", table[2].TeamCode)
	assert.Equal(t, 1, table[2].Points)
	assert.Equal(t, 80, table[2].PointsFor)

	assert.Equal(t, "DDD", table[3].TeamCode)
	assert.Equal(t, 0, table[3].Played)
	for i, row := range table {
		assert.Equal(t, i+1, row.Position)
	}
}

func TestComputeTieBreakers(t *testing.T) {
	a, b, c, d := team("AAA"), team("BBB"), team("CCC"), team("DDD")
	matches := []*model.Match{
		game(a, c, 100, 50, model.MatchFinished), // A +50, pf 100
		game(b, d, 80, 30, model.MatchFinished),  // B +50, pf 80
	}
	table := Compute("2025", []*model.Team{a, b, c, d}, matches)
	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD"}, codes(table))

	// tudo igual: ordena pelo código
	table = Compute("2025", []*model.Team{d, c, b, a}, nil)
	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD"}, codes(table))
}

func codes(table []model.Standing) []string {
	out := make([]string, len(table))
	for i, r := range table {
		out[i] = r.TeamCode
	}
	return out
}

func TestServiceRecomputeReplacesTable(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	a, b := team("AAA"), team("BBB")
	require.NoError(t, st.InsertTeams(ctx, []*model.Team{a, b}))
	require.NoError(t, st.InsertMatches(ctx, []*model.Match{game(b, a, 90, 10, model.MatchFinished)}))

	svc := NewService(zap.NewNop(), st)
	table, err := svc.Recompute(ctx, "2025")
	require.NoError(t, err)
	assert.Equal(t, "BBB", table[0].TeamCode)

	stored, err := st.ListStandings(ctx, "2025")
	require.NoError(t, err)
	assert.Equal(t, table, stored)
}

func TestServiceRecomputeKeepsOldTableOnFailure(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	a, b := team("AAA"), team("BBB")
	require.NoError(t, st.InsertTeams(ctx, []*model.Team{a, b}))
	svc := NewService(zap.NewNop(), st)
	before, err := svc.Recompute(ctx, "2025")
	require.NoError(t, err)

	require.NoError(t, st.InsertMatches(ctx, []*model.Match{game(b, a, 90, 10, model.MatchFinished)}))
	st.FailOn("ReplaceStandings", errors.New("timeout"))
	_, err = svc.Recompute(ctx, "2025")
	assert.ErrorIs(t, err, model.ErrTransaction)

	st.ClearFaults()
	stored, err := st.ListStandings(ctx, "2025")
	require.NoError(t, err)
	assert.Equal(t, before, stored)
}
