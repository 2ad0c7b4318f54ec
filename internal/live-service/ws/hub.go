package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/pkg/contracts/live"
)

const writeWait = 5 * time.Second

// SnapshotFunc devolve o último payload conhecido de um canal, enviado logo
// após o subscribe
type SnapshotFunc func(ctx context.Context, channel string) (live.Update, bool)

// client serializa as escritas: gorilla/websocket não aceita writers concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por canal
// subs: mapeia canal para o conjunto de clientes inscritos
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	snapshot SnapshotFunc

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS).
// snapshot pode ser nil.
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool, snapshot SnapshotFunc) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		snapshot: snapshot,
		subs:     make(map[string]map[*client]struct{}),
	}
}

func validChannel(ch string) bool {
	return ch == live.StandingsChannel || (strings.HasPrefix(ch, "match:") && len(ch) > len("match:"))
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Cada cliente pode se inscrever em vários canais
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.drop(c)
		_ = conn.Close()
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			if !validChannel(msg.Channel) {
				_ = c.write(ServerMsg{Type: "error", Channel: msg.Channel, Error: "unknown channel"})
				continue
			}
			h.subscribe(c, msg.Channel)
			_ = c.write(ServerMsg{Type: "subscribed", Channel: msg.Channel})
			if h.snapshot != nil {
				if upd, ok := h.snapshot(r.Context(), msg.Channel); ok {
					_ = c.write(upd)
				}
			}
		case "unsubscribe":
			h.unsubscribe(c, msg.Channel)
			_ = c.write(ServerMsg{Type: "unsubscribed", Channel: msg.Channel})
		case "ping":
			_ = c.write(ServerMsg{Type: "pong"})
		default:
			_ = c.write(ServerMsg{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Hub) subscribe(c *client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[channel]; !ok {
		h.subs[channel] = make(map[*client]struct{})
	}
	h.subs[channel][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[channel]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, channel)
		}
	}
}

// drop remove o cliente de todas as assinaturas ao desconectar
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, ch)
		}
	}
}

// Subscribers conta os clientes de um canal
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

// Broadcast envia a atualização para todos os inscritos no canal; devolve
// quantos clientes receberam
func (h *Hub) Broadcast(update live.Update) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.Channel]))
	for c := range h.subs[update.Channel] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.write(update); err != nil {
			h.log.Debug("ws write failed", zap.String("channel", update.Channel), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}
