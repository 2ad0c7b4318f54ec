// Package live define o contrato entre o league-events-worker e o
// live-service: canal Redis Pub/Sub, chaves de cache e o envelope enviado
// aos clientes WebSocket.
package live

import "encoding/json"

// BroadcastChannel é o canal Redis Pub/Sub padrão das atualizações ao vivo
const BroadcastChannel = "league_updates_broadcast"

// StandingsChannel é o canal WebSocket da tabela
const StandingsChannel = "standings"

// Tipos de Update
const (
	TypeMatchFinished    = "match_finished"
	TypeStandingsUpdated = "standings_updated"
)

// MatchChannel é o canal WebSocket de uma partida
func MatchChannel(matchID string) string { return "match:" + matchID }

// MatchKey guarda o último match_finished da partida
func MatchKey(matchID string) string { return "live:match:" + matchID }

// StandingsKey guarda o último standings_updated da temporada
func StandingsKey(season string) string { return "live:standings:" + season }

// Update é o que trafega no Pub/Sub e chega ao cliente WebSocket
type Update struct {
	Channel string          `json:"channel"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
