// Package advancer avança a data da liga e processa, em sequência, cada
// partida que vence: marca live, simula, resolve apostas e publica eventos.
// Ao fim do lote recalcula a tabela. Falha numa partida vira entrada no
// relatório e o lote segue.
package advancer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/clock"
	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/producer"
	"github.com/radieske/league-bet-platform/internal/league/resolution"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

const (
	MsgNoMatchesRemaining = "no scheduled matches remaining"

	lockKey = "league:advance"
	lockTTL = 2 * time.Minute
)

type Simulator interface {
	Simulate(ctx context.Context, matchID uuid.UUID) (*model.Match, error)
}

type Resolver interface {
	ResolveBetsForMatch(ctx context.Context, matchID uuid.UUID) (*resolution.Result, error)
}

type StandingsService interface {
	Recompute(ctx context.Context, season string) ([]model.Standing, error)
}

type StandingsCache interface {
	Set(ctx context.Context, season string, table []model.Standing) error
	Invalidate(ctx context.Context, season string) error
}

// Locker é o lock entre instâncias (cache.Locker); opcional
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// MatchReport descreve o que aconteceu com uma partida do lote
type MatchReport struct {
	MatchID     uuid.UUID         `json:"matchId"`
	Season      string            `json:"season"`
	HomeTeamID  uuid.UUID         `json:"homeTeamId"`
	AwayTeamID  uuid.UUID         `json:"awayTeamId"`
	ScheduledAt time.Time         `json:"scheduledAt"`
	Status      model.MatchStatus `json:"status"`
	HomeScore   int               `json:"homeScore"`
	AwayScore   int               `json:"awayScore"`
	Bonus       *model.BonusEvent `json:"bonus,omitempty"`
	Resolved    int               `json:"resolved"`
	Errors      []string          `json:"errors"`
}

// Report é o resultado exposto em /v1/admin/advance
type Report struct {
	NewDate            time.Time     `json:"newDate"`
	SimulatedMatches   []MatchReport `json:"simulatedMatches"`
	Message            string        `json:"message"`
	NoMatchesRemaining bool          `json:"noMatchesRemaining"`
	StandingsError     string        `json:"standingsError,omitempty"`
}

type Deps struct {
	Store     store.Store
	Clock     *clock.LeagueClock
	Simulator Simulator
	Resolver  Resolver
	Standings StandingsService
	Cache     StandingsCache     // opcional
	Publisher producer.Publisher // opcional
	Locker    Locker             // opcional
	Season    string
}

type Advancer struct {
	log *zap.Logger
	Deps

	mu sync.Mutex

	// Hooks de métricas (setados no main)
	OnSimulated func()
	OnResolved  func(n int)
	OnError     func(stage string)
}

func New(log *zap.Logger, d Deps) *Advancer {
	if d.Publisher == nil {
		d.Publisher = producer.Noop{}
	}
	return &Advancer{log: log, Deps: d}
}

// Advance move o relógio e processa tudo o que venceu. O lote não é
// cancelável: o contexto do chamador só contribui com valores.
func (a *Advancer) Advance(ctx context.Context, amount int, unit clock.Unit) (*Report, error) {
	ctx = context.WithoutCancel(ctx)
	unlock, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now, err := a.Clock.Advance(ctx, amount, unit)
	if err != nil {
		return nil, err
	}
	return a.processDue(ctx, now)
}

// AdvanceToNextMatch pula para o horário da próxima partida agendada. Sem
// partidas restantes retorna sucesso com NoMatchesRemaining.
func (a *Advancer) AdvanceToNextMatch(ctx context.Context) (*Report, error) {
	ctx = context.WithoutCancel(ctx)
	unlock, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	next, err := a.Store.NextScheduledMatch(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return &Report{
			NewDate:            a.Clock.Now(),
			SimulatedMatches:   []MatchReport{},
			Message:            MsgNoMatchesRemaining,
			NoMatchesRemaining: true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next scheduled match: %w", err)
	}

	target := next.ScheduledAt
	if target.Before(a.Clock.Now()) {
		// partida atrasada: processa sem mexer no relógio
		target = a.Clock.Now()
	}
	now, err := a.Clock.AdvanceTo(ctx, target)
	if err != nil {
		return nil, err
	}
	return a.processDue(ctx, now)
}

// ResolveMatch reexecuta a resolução de uma partida (operação de admin)
func (a *Advancer) ResolveMatch(ctx context.Context, matchID uuid.UUID) (*resolution.Result, error) {
	ctx = context.WithoutCancel(ctx)
	unlock, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return a.Resolver.ResolveBetsForMatch(ctx, matchID)
}

// CancelMatch cancela uma partida ainda não jogada e anula (void) as apostas
func (a *Advancer) CancelMatch(ctx context.Context, matchID uuid.UUID) (*resolution.Result, error) {
	ctx = context.WithoutCancel(ctx)
	unlock, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var m *model.Match
	err = a.Store.WithTx(ctx, func(tx store.Store) error {
		cur, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if cur.Status != model.MatchScheduled {
			return &model.StateError{Entity: "match", ID: cur.ID.String(), Current: string(cur.Status), Want: string(model.MatchScheduled)}
		}
		cur.Status = model.MatchCancelled
		now := a.Clock.Now()
		cur.FinishedAt = &now
		if err := tx.UpdateMatch(ctx, cur); err != nil {
			return &model.TransactionError{Op: "cancel match", Err: err}
		}
		m = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("match cancelled", zap.String("matchId", matchID.String()))

	res, err := a.Resolver.ResolveBetsForMatch(ctx, matchID)
	if err != nil {
		a.hookError("resolve")
		return nil, err
	}
	a.publishMatch(ctx, m, res)
	return res, nil
}

func (a *Advancer) lock(ctx context.Context) (func(), error) {
	a.mu.Lock()
	if a.Locker == nil {
		return a.mu.Unlock, nil
	}
	release, err := a.Locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		a.mu.Unlock()
		return nil, fmt.Errorf("league advance is already running: %w", err)
	}
	// outra instância pode ter movido o relógio
	if err := a.Clock.Load(ctx); err != nil {
		release()
		a.mu.Unlock()
		return nil, err
	}
	return func() {
		release()
		a.mu.Unlock()
	}, nil
}

// processDue processa primeiro partidas presas em live (lote anterior
// interrompido) e depois as agendadas até now, em ordem de horário
func (a *Advancer) processDue(ctx context.Context, now time.Time) (*Report, error) {
	stuck, err := a.Store.ListMatches(ctx, store.MatchFilter{Status: model.MatchLive})
	if err != nil {
		return nil, fmt.Errorf("list live matches: %w", err)
	}
	due, err := a.Store.ListDueMatches(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due matches: %w", err)
	}
	batch := append(stuck, due...)

	rep := &Report{NewDate: now, SimulatedMatches: make([]MatchReport, 0, len(batch))}
	seasons := map[string]bool{}
	for _, m := range batch {
		entry := a.process(ctx, m)
		rep.SimulatedMatches = append(rep.SimulatedMatches, entry)
		seasons[m.Season] = true
	}

	if len(batch) > 0 {
		if a.Season != "" {
			seasons[a.Season] = true
		}
		var failed []string
		for season := range seasons {
			if err := a.refreshStandings(ctx, season, now); err != nil {
				failed = append(failed, fmt.Sprintf("season %s: %v", season, err))
			}
		}
		if len(failed) > 0 {
			rep.StandingsError = strings.Join(failed, "; ")
		}
	}

	rep.Message = fmt.Sprintf("league time advanced to %s, %d match(es) processed", now.Format(time.RFC3339), len(batch))
	a.log.Info("league time advanced",
		zap.Time("newDate", now),
		zap.Int("matches", len(batch)),
	)
	return rep, nil
}

// process nunca falha: erros ficam no MatchReport
func (a *Advancer) process(ctx context.Context, m *model.Match) MatchReport {
	entry := MatchReport{
		MatchID:     m.ID,
		Season:      m.Season,
		HomeTeamID:  m.HomeTeamID,
		AwayTeamID:  m.AwayTeamID,
		ScheduledAt: m.ScheduledAt,
		Status:      m.Status,
		Errors:      []string{},
	}
	log := a.log.With(zap.String("matchId", m.ID.String()))

	if m.Status == model.MatchScheduled {
		if err := a.markLive(ctx, m.ID); err != nil {
			log.Error("failed to mark match live", zap.Error(err))
			entry.Errors = append(entry.Errors, "mark live: "+err.Error())
			a.hookError("live")
			return entry
		}
		entry.Status = model.MatchLive
	}

	finished, err := a.Simulator.Simulate(ctx, m.ID)
	if err != nil {
		log.Error("failed to simulate match", zap.Error(err))
		entry.Errors = append(entry.Errors, "simulate: "+err.Error())
		a.hookError("simulate")
		return entry
	}
	entry.Status = finished.Status
	entry.HomeScore = finished.HomeScore
	entry.AwayScore = finished.AwayScore
	entry.Bonus = finished.Bonus
	if a.OnSimulated != nil {
		a.OnSimulated()
	}

	res, err := a.Resolver.ResolveBetsForMatch(ctx, m.ID)
	if err != nil {
		log.Error("failed to resolve bets", zap.Error(err))
		entry.Errors = append(entry.Errors, "resolve: "+err.Error())
		a.hookError("resolve")
		return entry
	}
	entry.Resolved = res.Resolved
	entry.Errors = append(entry.Errors, res.Errors...)
	if a.OnResolved != nil {
		a.OnResolved(res.Resolved)
	}

	a.publishMatch(ctx, finished, res)
	return entry
}

func (a *Advancer) markLive(ctx context.Context, id uuid.UUID) error {
	return a.Store.WithTx(ctx, func(tx store.Store) error {
		m, err := tx.LockMatch(ctx, id)
		if err != nil {
			return err
		}
		if m.Status != model.MatchScheduled {
			return &model.StateError{Entity: "match", ID: m.ID.String(), Current: string(m.Status), Want: string(model.MatchScheduled)}
		}
		m.Status = model.MatchLive
		if err := tx.UpdateMatch(ctx, m); err != nil {
			return &model.TransactionError{Op: "mark match live", Err: err}
		}
		return nil
	})
}

// publishMatch: falha de publicação só é logada; o estado no banco já é final
func (a *Advancer) publishMatch(ctx context.Context, m *model.Match, res *resolution.Result) {
	ev := producer.MatchFinishedEvent(m, res.Resolved, len(res.Errors), a.Clock.Now())
	if err := a.Publisher.PublishMatchFinished(ctx, ev); err != nil {
		a.log.Warn("failed to publish match finished", zap.String("matchId", m.ID.String()), zap.Error(err))
		a.hookError("publish")
	}
	if len(res.Settled) == 0 {
		return
	}
	if err := a.Publisher.PublishBetsSettled(ctx, producer.BetsSettledEvent(m, res.Settled)); err != nil {
		a.log.Warn("failed to publish bets settled", zap.String("matchId", m.ID.String()), zap.Error(err))
		a.hookError("publish")
	}
}

// RecomputeStandings recalcula sob o mesmo lock do avanço (operação de admin)
func (a *Advancer) RecomputeStandings(ctx context.Context, season string) ([]model.Standing, error) {
	ctx = context.WithoutCancel(ctx)
	unlock, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if season == "" {
		season = a.Season
	}
	table, err := a.Standings.Recompute(ctx, season)
	if err != nil {
		a.hookError("standings")
		a.dropCachedStandings(ctx, season)
		return nil, err
	}
	a.afterStandings(ctx, season, table, a.Clock.Now())
	return table, nil
}

func (a *Advancer) refreshStandings(ctx context.Context, season string, now time.Time) error {
	table, err := a.Standings.Recompute(ctx, season)
	if err != nil {
		a.log.Error("failed to recompute standings", zap.String("season", season), zap.Error(err))
		a.hookError("standings")
		a.dropCachedStandings(ctx, season)
		return err
	}
	a.afterStandings(ctx, season, table, now)
	return nil
}

// dropCachedStandings tira do cache a tabela que deixou de refletir os resultados
func (a *Advancer) dropCachedStandings(ctx context.Context, season string) {
	if a.Cache == nil {
		return
	}
	if err := a.Cache.Invalidate(ctx, season); err != nil {
		a.log.Warn("failed to invalidate standings cache", zap.String("season", season), zap.Error(err))
	}
}

func (a *Advancer) afterStandings(ctx context.Context, season string, table []model.Standing, now time.Time) {
	if a.Cache != nil {
		if err := a.Cache.Set(ctx, season, table); err != nil {
			a.log.Warn("failed to refresh standings cache", zap.String("season", season), zap.Error(err))
		}
	}
	if err := a.Publisher.PublishStandingsUpdated(ctx, producer.StandingsUpdatedEvent(season, table, now)); err != nil {
		a.log.Warn("failed to publish standings", zap.String("season", season), zap.Error(err))
		a.hookError("publish")
	}
}

func (a *Advancer) hookError(stage string) {
	if a.OnError != nil {
		a.OnError(stage)
	}
}
