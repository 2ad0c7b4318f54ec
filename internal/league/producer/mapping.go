package producer

import (
	"time"

	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/pkg/contracts/events"
)

func MatchFinishedEvent(m *model.Match, resolved, errs int, leagueTime time.Time) events.MatchFinished {
	e := events.MatchFinished{
		MatchID:    m.ID.String(),
		Season:     m.Season,
		Round:      m.Round,
		HomeTeamID: m.HomeTeamID.String(),
		AwayTeamID: m.AwayTeamID.String(),
		Status:     string(m.Status),
		HomeScore:  m.HomeScore,
		AwayScore:  m.AwayScore,
		LeagueTime: leagueTime,
		Resolved:   resolved,
		Errors:     errs,
	}
	if m.Bonus != nil {
		e.BonusSide = string(m.Bonus.Side)
		e.BonusMinute = m.Bonus.Minute
	}
	return e
}

func BetsSettledEvent(m *model.Match, bets []*model.Bet) events.BetsSettled {
	e := events.BetsSettled{MatchID: m.ID.String(), Bets: make([]events.SettledBet, 0, len(bets))}
	for _, b := range bets {
		payout := "0"
		if b.Payout != nil {
			payout = b.Payout.StringFixed(2)
		}
		e.Bets = append(e.Bets, events.SettledBet{
			BetID:  b.ID.String(),
			UserID: b.UserID,
			Status: string(b.Status),
			Payout: payout,
		})
	}
	return e
}

func StandingsUpdatedEvent(season string, table []model.Standing, leagueTime time.Time) events.StandingsUpdated {
	e := events.StandingsUpdated{Season: season, LeagueTime: leagueTime, Rows: make([]events.StandingRow, 0, len(table))}
	for _, s := range table {
		e.Rows = append(e.Rows, events.StandingRow{
			Position:      s.Position,
			TeamID:        s.TeamID.String(),
			TeamCode:      s.TeamCode,
			TeamName:      s.TeamName,
			Played:        s.Played,
			Wins:          s.Wins,
			Draws:         s.Draws,
			Losses:        s.Losses,
			PointsFor:     s.PointsFor,
			PointsAgainst: s.PointsAgainst,
			PointDiff:     s.PointDiff,
			Points:        s.Points,
		})
	}
	return e
}

func BetPlacedEvent(b *model.Bet) events.BetPlaced {
	return events.BetPlaced{
		BetID:     b.ID.String(),
		UserID:    b.UserID,
		MatchID:   b.MatchID.String(),
		WagerType: string(b.WagerType),
		Selection: b.Selection,
		Stake:     b.Stake.StringFixed(2),
		Odds:      b.Odds.String(),
		TsUnixMs:  b.PlacedAt.UnixMilli(),
	}
}
