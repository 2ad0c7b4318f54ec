package dto

import (
	"time"

	"github.com/radieske/league-bet-platform/internal/league/model"
)

// Envelope é o formato de toda resposta da API: {success, data} ou {success, error}
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ClockResponse struct {
	Now    time.Time `json:"now"`
	Season string    `json:"season"`
}

type PlaceBetResponse struct {
	Bet     *model.Bet     `json:"bet"`
	Account *model.Account `json:"account"`
}

type MatchDetailResponse struct {
	Match *model.Match `json:"match"`
	Home  *model.Team  `json:"home,omitempty"`
	Away  *model.Team  `json:"away,omitempty"`
	Odds  any          `json:"odds,omitempty"`
}
