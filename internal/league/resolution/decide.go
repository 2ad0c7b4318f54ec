package resolution

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/league-bet-platform/internal/league/model"
)

var errMalformedBet = errors.New("malformed bet")

// Decide avalia a aposta contra o resultado registrado da partida.
// Partida cancelada anula a aposta (void, devolve o stake).
func Decide(bet *model.Bet, m *model.Match) (model.BetStatus, decimal.Decimal, error) {
	if bet.Odds.LessThan(decimal.NewFromInt(1)) {
		return "", decimal.Zero, fmt.Errorf("%w: odds %s below 1.0", errMalformedBet, bet.Odds)
	}
	if !bet.Stake.IsPositive() {
		return "", decimal.Zero, fmt.Errorf("%w: stake %s is not positive", errMalformedBet, bet.Stake)
	}

	var status model.BetStatus
	switch m.Status {
	case model.MatchCancelled:
		status = model.BetVoid
	case model.MatchFinished:
		won, err := predicate(bet, m)
		if err != nil {
			return "", decimal.Zero, err
		}
		status = model.BetLost
		if won {
			status = model.BetWon
		}
	default:
		return "", decimal.Zero, &model.StateError{Entity: "match", ID: m.ID.String(), Current: string(m.Status), Want: "finished or cancelled"}
	}

	payout, err := model.ExpectedPayout(status, bet.Stake, bet.Odds)
	return status, payout, err
}

func predicate(bet *model.Bet, m *model.Match) (bool, error) {
	if err := model.ValidateSelection(bet.WagerType, bet.Selection); err != nil {
		return false, fmt.Errorf("%w: %v", errMalformedBet, err)
	}

	switch bet.WagerType {
	case model.WagerMatchWinner:
		if bet.Selection == model.SelectionDraw {
			return m.Winner() == "", nil
		}
		return m.Winner() == model.Side(bet.Selection), nil
	case model.WagerBonusEvent:
		if m.Bonus == nil {
			return false, fmt.Errorf("match %s finished without bonus event", m.ID)
		}
		return m.Bonus.Side == model.Side(bet.Selection), nil
	case model.WagerMargin:
		bracket, _ := model.ParseMarginBracket(bet.Selection)
		return bracket.Contains(m.Margin()), nil
	}
	return false, fmt.Errorf("%w: unknown wager type %q", errMalformedBet, bet.WagerType)
}
