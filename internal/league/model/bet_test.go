package model

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func TestParseMarginBracket(t *testing.T) {
	tests := []struct {
		in      string
		want    MarginBracket
		wantErr bool
	}{
		{in: "0-49", want: MarginBracket{Min: 0, Max: 49}},
		{in: "50-99", want: MarginBracket{Min: 50, Max: 99}},
		{in: "100-149", want: MarginBracket{Min: 100, Max: 149}},
		{in: "150+", want: MarginBracket{Min: 150, Max: -1}},
		// a seleção gravada precisa ser igual à faixa publicada
		{in: " 150+ ", wantErr: true},
		{in: "050-99", wantErr: true},
		{in: "+50-99", wantErr: true},
		{in: "150", wantErr: true},
		{in: "10-20", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "x+", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMarginBracket(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarginBracketContains(t *testing.T) {
	assert.True(t, MarginBracket{Min: 0, Max: 49}.Contains(0))
	assert.True(t, MarginBracket{Min: 0, Max: 49}.Contains(49))
	assert.False(t, MarginBracket{Min: 0, Max: 49}.Contains(50))
	assert.True(t, MarginBracket{Min: 150, Max: -1}.Contains(420))
	assert.Equal(t, "150+", MarginBracket{Min: 150, Max: -1}.String())
}

func TestValidateSelection(t *testing.T) {
	assert.NoError(t, ValidateSelection(WagerMatchWinner, "draw"))
	assert.NoError(t, ValidateSelection(WagerBonusEvent, "away"))
	assert.NoError(t, ValidateSelection(WagerMargin, "100-149"))

	err := ValidateSelection(WagerBonusEvent, "draw")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Error(t, ValidateSelection(WagerType("parlay"), "home"))

	err = ValidateSelection(WagerMargin, "050-99")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestBetCheckConsistency(t *testing.T) {
	base := Bet{ID: uuid.New(), Stake: dec("10"), Odds: dec("2.5")}

	tests := []struct {
		name   string
		status BetStatus
		payout *decimal.Decimal
		ok     bool
	}{
		{name: "pending without payout", status: BetPending, ok: true},
		{name: "pending with payout", status: BetPending, payout: ptr(dec("1"))},
		{name: "won without payout", status: BetWon},
		{name: "won with stake x odds", status: BetWon, payout: ptr(dec("25")), ok: true},
		{name: "won with wrong payout", status: BetWon, payout: ptr(dec("20"))},
		{name: "lost with zero", status: BetLost, payout: ptr(decimal.Zero), ok: true},
		{name: "void refunds stake", status: BetVoid, payout: ptr(dec("10")), ok: true},
		{name: "void with zero", status: BetVoid, payout: ptr(decimal.Zero)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base
			b.Status = tt.status
			b.Payout = tt.payout
			err := b.CheckConsistency()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ce *ConsistencyError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, b.ID, ce.BetID)
			assert.ErrorIs(t, err, ErrConsistency)
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	assert.ErrorIs(t, &StateError{Entity: "match"}, ErrInvalidState)
	assert.ErrorIs(t, &NotFoundError{Entity: "bet"}, ErrNotFound)

	cause := errors.New("conn reset")
	txErr := &TransactionError{Op: "apply resolution", Err: cause}
	assert.ErrorIs(t, txErr, ErrTransaction)
	assert.ErrorIs(t, txErr, cause)

	_, err := ParseID("match", "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMatchWinnerAndMargin(t *testing.T) {
	m := &Match{HomeScore: 40, AwayScore: 190}
	assert.Equal(t, SideAway, m.Winner())
	assert.Equal(t, 150, m.Margin())

	m = &Match{HomeScore: 60, AwayScore: 60}
	assert.Equal(t, Side(""), m.Winner())
}
