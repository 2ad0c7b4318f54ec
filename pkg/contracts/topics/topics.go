package topics

const (
	// Partidas
	MatchFinished = "match_finished"

	// Apostas
	BetPlaced   = "bet_placed"
	BetsSettled = "bets_settled"

	// Tabela
	StandingsUpdated = "standings_updated"

	// DLQ do league-events-worker
	LeagueEventsDLQ = "league_events_dlq"
)
