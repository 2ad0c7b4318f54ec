package events

import "time"

type StandingRow struct {
	Position      int    `json:"position"`
	TeamID        string `json:"team_id"`
	TeamCode      string `json:"team_code"`
	TeamName      string `json:"team_name"`
	Played        int    `json:"played"`
	Wins          int    `json:"wins"`
	Draws         int    `json:"draws"`
	Losses        int    `json:"losses"`
	PointsFor     int    `json:"points_for"`
	PointsAgainst int    `json:"points_against"`
	PointDiff     int    `json:"point_diff"`
	Points        int    `json:"points"`
}

// Evento publicado no tópico "standings_updated" após cada recálculo da tabela
type StandingsUpdated struct {
	Season     string        `json:"season"`
	Rows       []StandingRow `json:"rows"`
	LeagueTime time.Time     `json:"league_time"`
}
