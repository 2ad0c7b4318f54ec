// Package httpapi expõe o live-service: snapshots REST lidos do Redis e o
// endpoint WebSocket
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/dto"
	"github.com/radieske/league-bet-platform/internal/live-service/cache"
	"github.com/radieske/league-bet-platform/internal/live-service/ws"
)

type API struct {
	Log   *zap.Logger
	Cache *cache.Cache
	Hub   *ws.Hub
}

// Router retorna o roteador HTTP com os endpoints REST e o /ws
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ws", a.Hub.HandleWS)
	r.Get("/v1/live/matches/{id}", a.getMatch)  // último resultado da partida
	r.Get("/v1/live/standings", a.getStandings) // última tabela publicada
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) respond(w http.ResponseWriter, payload json.RawMessage, ok bool, err error) {
	if err != nil {
		a.Log.Error("live cache read failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.Envelope{Error: "internal error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, dto.Envelope{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, dto.Envelope{Success: true, Data: payload})
}

func (a *API) getMatch(w http.ResponseWriter, r *http.Request) {
	payload, ok, err := a.Cache.Match(r.Context(), chi.URLParam(r, "id"))
	a.respond(w, payload, ok, err)
}

func (a *API) getStandings(w http.ResponseWriter, r *http.Request) {
	payload, ok, err := a.Cache.Standings(r.Context(), r.URL.Query().Get("season"))
	a.respond(w, payload, ok, err)
}
