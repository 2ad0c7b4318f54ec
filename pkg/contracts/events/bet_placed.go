package events

// Evento publicado no tópico "bet_placed" depois que o stake foi debitado.
// Valores monetários trafegam como string decimal.
type BetPlaced struct {
	BetID     string `json:"bet_id"`
	UserID    string `json:"user_id"`
	MatchID   string `json:"match_id"`
	WagerType string `json:"wager_type"`
	Selection string `json:"selection"`
	Stake     string `json:"stake"`
	Odds      string `json:"odds"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
