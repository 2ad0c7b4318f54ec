// Package odds fornece a cotação vigente de cada seleção. Não há modelagem de
// odds: vale o override gravado no Redis ou a tabela padrão.
package odds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/model"
)

// Quote é uma linha do mercado de uma partida
type Quote struct {
	WagerType model.WagerType `json:"wagerType"`
	Selection string          `json:"selection"`
	Odds      decimal.Decimal `json:"odds"`
}

// DefaultTable são os preços usados sem override
func DefaultTable() map[model.WagerType]map[string]decimal.Decimal {
	d := decimal.RequireFromString
	return map[model.WagerType]map[string]decimal.Decimal{
		model.WagerMatchWinner: {
			"home": d("1.90"),
			"away": d("1.90"),
			"draw": d("3.50"),
		},
		model.WagerBonusEvent: {
			"home": d("1.85"),
			"away": d("1.85"),
		},
		model.WagerMargin: {
			"0-49":    d("2.10"),
			"50-99":   d("3.00"),
			"100-149": d("4.50"),
			"150+":    d("6.00"),
		},
	}
}

type Quoter struct {
	log      *zap.Logger
	r        *redis.Client
	defaults map[model.WagerType]map[string]decimal.Decimal
}

// NewQuoter aceita r nil (sem overrides)
func NewQuoter(log *zap.Logger, r *redis.Client) *Quoter {
	return &Quoter{log: log, r: r, defaults: DefaultTable()}
}

func keyOverride(matchID uuid.UUID, t model.WagerType, selection string) string {
	return fmt.Sprintf("odds:%s:%s:%s", matchID, t, selection)
}

// CurrentOdd retorna a cotação vigente. Falha do Redis cai para a tabela padrão.
func (q *Quoter) CurrentOdd(ctx context.Context, matchID uuid.UUID, t model.WagerType, selection string) (decimal.Decimal, error) {
	if err := model.ValidateSelection(t, selection); err != nil {
		return decimal.Zero, err
	}

	if q.r != nil {
		raw, err := q.r.Get(ctx, keyOverride(matchID, t, selection)).Result()
		switch {
		case err == nil:
			v, perr := decimal.NewFromString(raw)
			if perr == nil && v.GreaterThanOrEqual(decimal.NewFromInt(1)) {
				return v, nil
			}
			q.log.Warn("ignoring malformed odds override", zap.String("matchId", matchID.String()), zap.String("raw", raw))
		case err != redis.Nil:
			q.log.Warn("odds override lookup failed", zap.String("matchId", matchID.String()), zap.Error(err))
		}
	}

	v, ok := q.defaults[t][selection]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no price for %s/%s", model.ErrInvalidArgument, t, selection)
	}
	return v, nil
}

// SetOverride publica um preço específico para a partida; ttl zero não expira
func (q *Quoter) SetOverride(ctx context.Context, matchID uuid.UUID, t model.WagerType, selection string, odd decimal.Decimal, ttl time.Duration) error {
	if q.r == nil {
		return fmt.Errorf("%w: odds overrides need redis", model.ErrInvalidState)
	}
	if err := model.ValidateSelection(t, selection); err != nil {
		return err
	}
	if odd.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: odds must be at least 1.0", model.ErrInvalidArgument)
	}
	// bets.odds é NUMERIC(10,4); a aposta tem que gravar o preço cotado
	if !odd.Round(4).Equal(odd) {
		return fmt.Errorf("%w: odds must have at most 4 decimal places", model.ErrInvalidArgument)
	}
	return q.r.Set(ctx, keyOverride(matchID, t, selection), odd.String(), ttl).Err()
}

// Market lista todas as seleções da partida com a cotação vigente
func (q *Quoter) Market(ctx context.Context, matchID uuid.UUID) ([]Quote, error) {
	var out []Quote
	for _, t := range []model.WagerType{model.WagerMatchWinner, model.WagerBonusEvent, model.WagerMargin} {
		for _, sel := range selections(t) {
			v, err := q.CurrentOdd(ctx, matchID, t, sel)
			if err != nil {
				return nil, err
			}
			out = append(out, Quote{WagerType: t, Selection: sel, Odds: v})
		}
	}
	return out, nil
}

func selections(t model.WagerType) []string {
	switch t {
	case model.WagerMatchWinner:
		return []string{"home", "draw", "away"}
	case model.WagerBonusEvent:
		return []string{"home", "away"}
	}
	out := make([]string, 0, len(model.MarginBrackets))
	for _, b := range model.MarginBrackets {
		out = append(out, b.String())
	}
	return out
}
