// Package standings recalcula a tabela a partir das partidas finalizadas.
// Nunca há atualização incremental: cada recálculo parte do zero.
package standings

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

const (
	PointsWin  = 3
	PointsDraw = 1
	PointsLoss = 0
)

// Compute agrega só partidas finished da temporada. Times sem jogos entram
// zerados. Desempate: pontos, saldo, pontos marcados, código do time.
func Compute(season string, teams []*model.Team, matches []*model.Match) []model.Standing {
	rows := make(map[uuid.UUID]*model.Standing, len(teams))
	for _, t := range teams {
		rows[t.ID] = &model.Standing{
			Season:   season,
			TeamID:   t.ID,
			TeamCode: t.Code,
			TeamName: t.Name,
		}
	}

	for _, m := range matches {
		if m.Status != model.MatchFinished || m.Season != season {
			continue
		}
		home, okH := rows[m.HomeTeamID]
		away, okA := rows[m.AwayTeamID]
		if !okH || !okA {
			continue
		}

		home.Played++
		away.Played++
		home.PointsFor += m.HomeScore
		home.PointsAgainst += m.AwayScore
		away.PointsFor += m.AwayScore
		away.PointsAgainst += m.HomeScore

		switch m.Winner() {
		case model.SideHome:
			home.Wins++
			away.Losses++
		case model.SideAway:
			away.Wins++
			home.Losses++
		default:
			home.Draws++
			away.Draws++
		}
	}

	out := make([]model.Standing, 0, len(rows))
	for _, r := range rows {
		r.PointDiff = r.PointsFor - r.PointsAgainst
		r.Points = r.Wins*PointsWin + r.Draws*PointsDraw + r.Losses*PointsLoss
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.PointDiff != b.PointDiff {
			return a.PointDiff > b.PointDiff
		}
		if a.PointsFor != b.PointsFor {
			return a.PointsFor > b.PointsFor
		}
		return a.TeamCode < b.TeamCode
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

type Service struct {
	log *zap.Logger
	st  store.Store
}

func NewService(log *zap.Logger, st store.Store) *Service {
	return &Service{log: log, st: st}
}

// Recompute lê times e partidas finalizadas e substitui a tabela numa transação
func (s *Service) Recompute(ctx context.Context, season string) ([]model.Standing, error) {
	var table []model.Standing
	err := s.st.WithTx(ctx, func(tx store.Store) error {
		teams, err := tx.ListTeams(ctx, season)
		if err != nil {
			return fmt.Errorf("list teams: %w", err)
		}
		matches, err := tx.ListMatches(ctx, store.MatchFilter{Season: season, Status: model.MatchFinished})
		if err != nil {
			return fmt.Errorf("list finished matches: %w", err)
		}
		table = Compute(season, teams, matches)
		if err := tx.ReplaceStandings(ctx, season, table); err != nil {
			return &model.TransactionError{Op: "replace standings", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("standings recomputed", zap.String("season", season), zap.Int("teams", len(table)))
	return table, nil
}
