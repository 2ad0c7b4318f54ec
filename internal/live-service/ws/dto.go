package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Channel: obrigatório para subscribe/unsubscribe ("match:<id>" ou "standings")
type ClientMsg struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// ServerMsg é tudo que não é atualização: pong, ack e erro
type ServerMsg struct {
	Type    string `json:"type"` // pong | subscribed | unsubscribed | error
	Channel string `json:"channel,omitempty"`
	Error   string `json:"error,omitempty"`
}
