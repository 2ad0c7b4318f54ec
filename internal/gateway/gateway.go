// Package gateway é o ponto de entrada único: repassa /api/league/* ao
// league-service e /api/live/* (incluindo o upgrade do WebSocket) ao
// live-service.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Upstreams struct {
	League string
	Live   string
}

func rp(log *zap.Logger, name, to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s upstream %q", name, to)
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream unavailable", zap.String("upstream", name), zap.String("path", r.URL.Path), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"success":false,"error":"upstream unavailable"}`))
	}
	return p, nil
}

// Origins converte "a,b" (ou "*") na lista do middleware de CORS
func Origins(list string) []string {
	var out []string
	for _, o := range strings.Split(list, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// New monta o roteador do gateway
func New(log *zap.Logger, up Upstreams, origins []string) (http.Handler, error) {
	league, err := rp(log, "league", up.League)
	if err != nil {
		return nil, err
	}
	live, err := rp(log, "live", up.Live)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	// league (ex.: /api/league/v1/matches -> league-service /v1/matches)
	r.Mount("/api/league", http.StripPrefix("/api/league", league))
	// live (ex.: /api/live/ws -> live-service /ws)
	r.Mount("/api/live", http.StripPrefix("/api/live", live))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r, nil
}
