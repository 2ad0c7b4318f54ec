// Package httpapi expõe a API REST da liga: consultas públicas, apostas do
// usuário autenticado e operações de admin (avanço de tempo, resolução).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/advancer"
	"github.com/radieske/league-bet-platform/internal/league/clock"
	"github.com/radieske/league-bet-platform/internal/league/dto"
	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/odds"
	"github.com/radieske/league-bet-platform/internal/league/resolution"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

type Betting interface {
	Validate(v any) error
	PlaceBet(ctx context.Context, userID string, req dto.PlaceBetRequest) (*model.Bet, *model.Account, error)
	GetBet(ctx context.Context, userID string, isAdmin bool, id uuid.UUID) (*model.Bet, error)
	ListBets(ctx context.Context, userID string, limit int) ([]*model.Bet, error)
	Account(ctx context.Context, userID string) (*model.Account, error)
	Ledger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error)
}

// League são as operações de admin que mexem no tempo e nos resultados
type League interface {
	Advance(ctx context.Context, amount int, unit clock.Unit) (*advancer.Report, error)
	AdvanceToNextMatch(ctx context.Context) (*advancer.Report, error)
	ResolveMatch(ctx context.Context, matchID uuid.UUID) (*resolution.Result, error)
	CancelMatch(ctx context.Context, matchID uuid.UUID) (*resolution.Result, error)
	RecomputeStandings(ctx context.Context, season string) ([]model.Standing, error)
}

type Deposits interface {
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*model.Account, error)
}

type Odds interface {
	Market(ctx context.Context, matchID uuid.UUID) ([]odds.Quote, error)
	SetOverride(ctx context.Context, matchID uuid.UUID, t model.WagerType, selection string, odd decimal.Decimal, ttl time.Duration) error
}

type Clock interface {
	Now() time.Time
}

// StandingsCache é o read-through da tabela; opcional
type StandingsCache interface {
	Get(ctx context.Context, season string) ([]model.Standing, bool, error)
	Set(ctx context.Context, season string, table []model.Standing) error
}

// API agrupa as dependências dos handlers
type API struct {
	Log       *zap.Logger
	Store     store.Store
	Betting   Betting
	League    League
	Deposits  Deposits
	Odds      Odds
	Clock     Clock
	Cache     StandingsCache
	Season    string
	JWTSecret []byte

	// OnRequest recebe rota, método e status de cada resposta (métricas)
	OnRequest func(route, method string, status int)
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.observe)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/clock", a.getClock)
		r.Get("/teams", a.listTeams)
		r.Get("/matches", a.listMatches)
		r.Get("/matches/{id}", a.getMatch)
		r.Get("/standings", a.getStandings)

		r.Group(func(r chi.Router) {
			r.Use(a.Authenticate)
			r.Post("/bets", a.placeBet)
			r.Get("/bets/{id}", a.getBet)
			r.Get("/me/bets", a.myBets)
			r.Get("/me/account", a.myAccount)
			r.Get("/me/ledger", a.myLedger)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/advance", a.advance)
				r.Post("/advance/next", a.advanceNext)
				r.Post("/matches/{id}/resolve", a.resolveMatch)
				r.Post("/matches/{id}/cancel", a.cancelMatch)
				r.Post("/matches/{id}/odds", a.overrideOdds)
				r.Post("/accounts/deposit", a.deposit)
				r.Post("/standings/recompute", a.recomputeStandings)
			})
		})
	})
	return r
}

// observe loga cada request e alimenta OnRequest com o padrão da rota
func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		if a.OnRequest != nil {
			a.OnRequest(route, r.Method, ww.Status())
		}
		a.Log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())),
		)
	})
}
