package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/clock"
	"github.com/radieske/league-bet-platform/internal/league/dto"
	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

func pathID(r *http.Request, kind string) (uuid.UUID, error) {
	return model.ParseID(kind, chi.URLParam(r, "id"))
}

func (a *API) season(r *http.Request) string {
	if s := r.URL.Query().Get("season"); s != "" {
		return s
	}
	return a.Season
}

// ----- público -----

func (a *API) getClock(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, dto.ClockResponse{Now: a.Clock.Now(), Season: a.Season})
}

func (a *API) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := a.Store.ListTeams(r.Context(), a.season(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, teams)
}

func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	f := store.MatchFilter{Season: r.URL.Query().Get("season")}
	if s := r.URL.Query().Get("status"); s != "" {
		f.Status = model.MatchStatus(s)
		if !f.Status.Valid() {
			a.fail(w, r, fmt.Errorf("%w: unknown match status %q", model.ErrInvalidArgument, s))
			return
		}
	}
	ms, err := a.Store.ListMatches(r.Context(), f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, ms)
}

// getMatch devolve a partida, os dois times e o mercado vigente
func (a *API) getMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "match")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	m, err := a.Store.GetMatch(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := dto.MatchDetailResponse{Match: m}

	teams, err := a.Store.ListTeams(r.Context(), m.Season)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	for _, t := range teams {
		switch t.ID {
		case m.HomeTeamID:
			resp.Home = t
		case m.AwayTeamID:
			resp.Away = t
		}
	}

	if m.Status == model.MatchScheduled && a.Odds != nil {
		market, err := a.Odds.Market(r.Context(), m.ID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		resp.Odds = market
	}
	writeOK(w, http.StatusOK, resp)
}

// getStandings lê do cache e, em miss, do store (aquecendo o cache)
func (a *API) getStandings(w http.ResponseWriter, r *http.Request) {
	season := a.season(r)
	if a.Cache != nil {
		table, ok, err := a.Cache.Get(r.Context(), season)
		if err != nil {
			a.Log.Warn("standings cache read failed", zap.String("season", season), zap.Error(err))
		}
		if ok {
			writeOK(w, http.StatusOK, table)
			return
		}
	}

	table, err := a.Store.ListStandings(r.Context(), season)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if a.Cache != nil && len(table) > 0 {
		if err := a.Cache.Set(r.Context(), season, table); err != nil {
			a.Log.Warn("standings cache write failed", zap.String("season", season), zap.Error(err))
		}
	}
	writeOK(w, http.StatusOK, table)
}

// ----- usuário autenticado -----

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	c, _ := ClaimsFrom(r.Context())
	var req dto.PlaceBetRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	bet, acc, err := a.Betting.PlaceBet(r.Context(), c.UserID, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, dto.PlaceBetResponse{Bet: bet, Account: acc})
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	c, _ := ClaimsFrom(r.Context())
	id, err := pathID(r, "bet")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	bet, err := a.Betting.GetBet(r.Context(), c.UserID, c.Role == RoleAdmin, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, bet)
}

func (a *API) myBets(w http.ResponseWriter, r *http.Request) {
	c, _ := ClaimsFrom(r.Context())
	limit, err := queryLimit(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	bets, err := a.Betting.ListBets(r.Context(), c.UserID, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, bets)
}

func (a *API) myAccount(w http.ResponseWriter, r *http.Request) {
	c, _ := ClaimsFrom(r.Context())
	acc, err := a.Betting.Account(r.Context(), c.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, acc)
}

func (a *API) myLedger(w http.ResponseWriter, r *http.Request) {
	c, _ := ClaimsFrom(r.Context())
	limit, err := queryLimit(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries, err := a.Betting.Ledger(r.Context(), c.UserID, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, entries)
}

// ----- admin -----

func (a *API) advance(w http.ResponseWriter, r *http.Request) {
	var req dto.AdvanceRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Betting.Validate(req); err != nil {
		a.fail(w, r, err)
		return
	}
	unit, err := clock.ParseUnit(req.Unit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rep, err := a.League.Advance(r.Context(), req.Amount, unit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, rep)
}

func (a *API) advanceNext(w http.ResponseWriter, r *http.Request) {
	rep, err := a.League.AdvanceToNextMatch(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, rep)
}

func (a *API) resolveMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "match")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.League.ResolveMatch(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res)
}

func (a *API) cancelMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "match")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.League.CancelMatch(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res)
}

func (a *API) overrideOdds(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "match")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req dto.OddsOverrideRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Betting.Validate(req); err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.Store.GetMatch(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	ttl := time.Duration(req.TTLSecs) * time.Second
	if err := a.Odds.SetOverride(r.Context(), id, model.WagerType(req.WagerType), req.Selection, req.Odds, ttl); err != nil {
		a.fail(w, r, err)
		return
	}
	market, err := a.Odds.Market(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, market)
}

func (a *API) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Betting.Validate(req); err != nil {
		a.fail(w, r, err)
		return
	}
	acc, err := a.Deposits.Deposit(r.Context(), req.UserID, req.Amount, req.Reference)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, acc)
}

func (a *API) recomputeStandings(w http.ResponseWriter, r *http.Request) {
	table, err := a.League.RecomputeStandings(r.Context(), r.URL.Query().Get("season"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, table)
}
