package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
	BetVoid    BetStatus = "void"
)

func (s BetStatus) Resolved() bool {
	return s == BetWon || s == BetLost || s == BetVoid
}

type WagerType string

const (
	WagerMatchWinner WagerType = "match_winner"
	WagerBonusEvent  WagerType = "bonus_event"
	WagerMargin      WagerType = "margin"
)

// Selection de match_winner
const SelectionDraw = "draw"

// Bet é a aposta persistida. Stake e Odds são congelados na colocação;
// Payout fica nil enquanto a aposta estiver pending.
type Bet struct {
	ID         uuid.UUID        `json:"id"`
	UserID     string           `json:"userId"`
	MatchID    uuid.UUID        `json:"matchId"`
	WagerType  WagerType        `json:"wagerType"`
	Selection  string           `json:"selection"`
	Stake      decimal.Decimal  `json:"stake"`
	Odds       decimal.Decimal  `json:"odds"`
	Status     BetStatus        `json:"status"`
	Payout     *decimal.Decimal `json:"payout,omitempty"`
	PlacedAt   time.Time        `json:"placedAt"`
	ResolvedAt *time.Time       `json:"resolvedAt,omitempty"`
}

func (b *Bet) Clone() *Bet {
	if b == nil {
		return nil
	}
	c := *b
	if b.Payout != nil {
		p := *b.Payout
		c.Payout = &p
	}
	if b.ResolvedAt != nil {
		t := *b.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// CheckConsistency detecta aposta resolvida sem payout (ou pendente com payout)
// e payout divergente da regra won/lost/void. Nunca corrige nada.
func (b *Bet) CheckConsistency() error {
	switch {
	case b.Status == BetPending && b.Payout != nil:
		return &ConsistencyError{BetID: b.ID, Detail: "pending bet has payout recorded"}
	case b.Status.Resolved() && b.Payout == nil:
		return &ConsistencyError{BetID: b.ID, Detail: fmt.Sprintf("%s bet has no payout recorded", b.Status)}
	case b.Status == BetPending:
		return nil
	}

	want, err := ExpectedPayout(b.Status, b.Stake, b.Odds)
	if err != nil {
		return &ConsistencyError{BetID: b.ID, Detail: err.Error()}
	}
	if !b.Payout.Equal(want) {
		return &ConsistencyError{BetID: b.ID, Detail: fmt.Sprintf("payout %s does not match %s rule (%s)", b.Payout, b.Status, want)}
	}
	return nil
}

// ExpectedPayout aplica a regra: won = stake x odds, lost = 0, void = stake
func ExpectedPayout(status BetStatus, stake, odds decimal.Decimal) (decimal.Decimal, error) {
	switch status {
	case BetWon:
		return stake.Mul(odds).Round(2), nil
	case BetLost:
		return decimal.Zero, nil
	case BetVoid:
		return stake, nil
	}
	return decimal.Zero, fmt.Errorf("no payout rule for status %q", status)
}

// MarginBracket é uma faixa fechada de diferença de pontos; Max < 0 significa sem limite
type MarginBracket struct {
	Min int
	Max int
}

func (b MarginBracket) Contains(margin int) bool {
	if margin < b.Min {
		return false
	}
	return b.Max < 0 || margin <= b.Max
}

func (b MarginBracket) String() string {
	if b.Max < 0 {
		return fmt.Sprintf("%d+", b.Min)
	}
	return fmt.Sprintf("%d-%d", b.Min, b.Max)
}

// MarginBrackets são as faixas aceitas em apostas do tipo margin
var MarginBrackets = []MarginBracket{
	{Min: 0, Max: 49},
	{Min: 50, Max: 99},
	{Min: 100, Max: 149},
	{Min: 150, Max: -1},
}

// ParseMarginBracket aceita só a forma canônica ("0-49", "150+") de uma faixa publicada
func ParseMarginBracket(s string) (MarginBracket, error) {
	for _, known := range MarginBrackets {
		if known.String() == s {
			return known, nil
		}
	}
	return MarginBracket{}, fmt.Errorf("unknown margin bracket %q", s)
}

// ValidateSelection confere se a seleção faz sentido para o tipo de aposta
func ValidateSelection(t WagerType, selection string) error {
	switch t {
	case WagerMatchWinner:
		switch selection {
		case string(SideHome), string(SideAway), SelectionDraw:
			return nil
		}
		return fmt.Errorf("%w: selection %q is not valid for %s", ErrInvalidArgument, selection, t)
	case WagerBonusEvent:
		switch selection {
		case string(SideHome), string(SideAway):
			return nil
		}
		return fmt.Errorf("%w: selection %q is not valid for %s", ErrInvalidArgument, selection, t)
	case WagerMargin:
		if _, err := ParseMarginBracket(selection); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown wager type %q", ErrInvalidArgument, t)
}
