package events

import "time"

// Evento publicado no tópico "match_finished" quando a partida é simulada
// (status "finished") ou cancelada (status "cancelled") e suas apostas resolvidas.
type MatchFinished struct {
	MatchID     string    `json:"match_id"`
	Season      string    `json:"season"`
	Round       int       `json:"round"`
	HomeTeamID  string    `json:"home_team_id"`
	AwayTeamID  string    `json:"away_team_id"`
	Status      string    `json:"status"`
	HomeScore   int       `json:"home_score"`
	AwayScore   int       `json:"away_score"`
	BonusSide   string    `json:"bonus_side,omitempty"`
	BonusMinute int       `json:"bonus_minute,omitempty"`
	LeagueTime  time.Time `json:"league_time"`
	Resolved    int       `json:"resolved"`
	Errors      int       `json:"errors"`
}

type SettledBet struct {
	BetID  string `json:"bet_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"` // "won" | "lost" | "void"
	Payout string `json:"payout"`
}

// Evento publicado no tópico "bets_settled" com as apostas resolvidas numa rodada
type BetsSettled struct {
	MatchID string       `json:"match_id"`
	Bets    []SettledBet `json:"bets"`
	Ts      time.Time    `json:"ts"`
}
