package model

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchFinished  MatchStatus = "finished"
	MatchCancelled MatchStatus = "cancelled"
)

// Terminal indica que a partida não muda mais de estado
func (s MatchStatus) Terminal() bool {
	return s == MatchFinished || s == MatchCancelled
}

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchScheduled, MatchLive, MatchFinished, MatchCancelled:
		return true
	}
	return false
}

// Side identifica o lado da partida (mandante/visitante)
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

type EventKind string

const (
	EventGoal       EventKind = "goal"
	EventBonusCatch EventKind = "bonus_catch"
)

// MatchEvent é uma entrada do log de eventos gerado pelo simulador
type MatchEvent struct {
	Minute int       `json:"minute"`
	Side   Side      `json:"side"`
	Kind   EventKind `json:"kind"`
	Points int       `json:"points"`
}

// BonusEvent registra quem conquistou o evento bônus e em que minuto
type BonusEvent struct {
	Side   Side `json:"side"`
	Minute int  `json:"minute"`
}

type Team struct {
	ID     uuid.UUID `json:"id"`
	Season string    `json:"season"`
	Code   string    `json:"code"`
	Name   string    `json:"name"`
}

// Match é a partida persistida. Só o simulador altera placar e status
// (scheduled -> live -> finished); uma partida finalizada nunca é reaberta.
type Match struct {
	ID          uuid.UUID    `json:"id"`
	Season      string       `json:"season"`
	Round       int          `json:"round"`
	HomeTeamID  uuid.UUID    `json:"homeTeamId"`
	AwayTeamID  uuid.UUID    `json:"awayTeamId"`
	ScheduledAt time.Time    `json:"scheduledAt"`
	Status      MatchStatus  `json:"status"`
	HomeScore   int          `json:"homeScore"`
	AwayScore   int          `json:"awayScore"`
	Bonus       *BonusEvent  `json:"bonus,omitempty"`
	Events      []MatchEvent `json:"events,omitempty"`
	FinishedAt  *time.Time   `json:"finishedAt,omitempty"`
}

// Winner retorna o lado vencedor, ou "" em caso de empate
func (m *Match) Winner() Side {
	switch {
	case m.HomeScore > m.AwayScore:
		return SideHome
	case m.AwayScore > m.HomeScore:
		return SideAway
	}
	return ""
}

// Margin é a diferença absoluta de pontos
func (m *Match) Margin() int {
	d := m.HomeScore - m.AwayScore
	if d < 0 {
		return -d
	}
	return d
}

// Clone devolve uma cópia profunda (slices e ponteiros inclusos)
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	if m.Bonus != nil {
		b := *m.Bonus
		c.Bonus = &b
	}
	if m.Events != nil {
		c.Events = append([]MatchEvent(nil), m.Events...)
	}
	if m.FinishedAt != nil {
		t := *m.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
