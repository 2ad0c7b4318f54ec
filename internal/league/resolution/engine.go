// Package resolution decide o desfecho das apostas de uma partida encerrada
// e entrega cada decisão ao ledger.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

// Applier grava a decisão junto com o crédito (ledger.Ledger)
type Applier interface {
	ApplyResolution(ctx context.Context, bet *model.Bet) error
}

// Result segue o formato exposto pela API: {resolved, errors}
type Result struct {
	MatchID  uuid.UUID    `json:"matchId"`
	Resolved int          `json:"resolved"`
	Errors   []string     `json:"errors"`
	Settled  []*model.Bet `json:"-"`
}

type Engine struct {
	log    *zap.Logger
	st     store.Store
	ledger Applier
	now    func() time.Time

	// Hooks opcionais para métricas (setados no main)
	OnResolved     func(status model.BetStatus)
	OnBetError     func()
	OnInconsistent func()
}

// New recebe now para carimbar ResolvedAt com a data da liga
func New(log *zap.Logger, st store.Store, ledger Applier, now func() time.Time) *Engine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{log: log, st: st, ledger: ledger, now: now}
}

// ResolveBetsForMatch resolve toda aposta pending da partida. Falha numa aposta
// vira entrada em Errors e o loop segue. Apostas já resolvidas são ignoradas,
// então chamar de novo é seguro.
func (e *Engine) ResolveBetsForMatch(ctx context.Context, matchID uuid.UUID) (*Result, error) {
	m, err := e.st.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.MatchFinished && m.Status != model.MatchCancelled {
		return nil, &model.StateError{Entity: "match", ID: m.ID.String(), Current: string(m.Status), Want: "finished or cancelled"}
	}

	bets, err := e.st.ListBetsByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list bets for match %s: %w", matchID, err)
	}

	res := &Result{MatchID: matchID, Errors: []string{}}
	for _, b := range bets {
		if b.Status != model.BetPending {
			if err := b.CheckConsistency(); err != nil {
				e.log.Error("resolved bet failed consistency check",
					zap.String("betId", b.ID.String()),
					zap.String("matchId", matchID.String()),
					zap.Error(err),
				)
				res.Errors = append(res.Errors, betError(b.ID, err))
				if e.OnInconsistent != nil {
					e.OnInconsistent()
				}
			}
			continue
		}

		status, payout, err := Decide(b, m)
		if err != nil {
			e.fail(res, b, err)
			continue
		}

		settled := b.Clone()
		settled.Status = status
		settled.Payout = &payout
		resolvedAt := e.now()
		settled.ResolvedAt = &resolvedAt

		if err := e.ledger.ApplyResolution(ctx, settled); err != nil {
			if errors.Is(err, model.ErrAlreadyResolved) {
				// resolvida por outro processo entre a listagem e o lock
				continue
			}
			e.fail(res, b, err)
			continue
		}

		res.Resolved++
		res.Settled = append(res.Settled, settled)
		if e.OnResolved != nil {
			e.OnResolved(status)
		}
	}

	e.log.Info("bets resolved",
		zap.String("matchId", matchID.String()),
		zap.Int("resolved", res.Resolved),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

func (e *Engine) fail(res *Result, b *model.Bet, err error) {
	e.log.Warn("bet resolution failed", zap.String("betId", b.ID.String()), zap.Error(err))
	res.Errors = append(res.Errors, betError(b.ID, err))
	if e.OnBetError != nil {
		e.OnBetError()
	}
}

func betError(id uuid.UUID, err error) string {
	return fmt.Sprintf("bet %s: %v", id, err)
}
