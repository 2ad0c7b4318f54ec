package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	UserID    string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type LedgerKind string

const (
	LedgerDeposit LedgerKind = "deposit"
	LedgerStake   LedgerKind = "stake"
	LedgerPayout  LedgerKind = "payout"
	LedgerRefund  LedgerKind = "refund"
)

// LedgerEntry registra cada movimentação de saldo (append-only).
// Amount é sempre positivo; o sinal vem do Kind (stake debita, o resto credita).
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id"`
	UserID       string          `json:"userId"`
	Kind         LedgerKind      `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	BetID        *uuid.UUID      `json:"betId,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Delta retorna a variação de saldo com sinal
func (e LedgerEntry) Delta() decimal.Decimal {
	if e.Kind == LedgerStake {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Standing é derivado só de partidas finalizadas; sempre recalculado do zero
type Standing struct {
	Season        string    `json:"season"`
	TeamID        uuid.UUID `json:"teamId"`
	TeamCode      string    `json:"teamCode"`
	TeamName      string    `json:"teamName"`
	Position      int       `json:"position"`
	Played        int       `json:"played"`
	Wins          int       `json:"wins"`
	Draws         int       `json:"draws"`
	Losses        int       `json:"losses"`
	PointsFor     int       `json:"pointsFor"`
	PointsAgainst int       `json:"pointsAgainst"`
	PointDiff     int       `json:"pointDiff"`
	Points        int       `json:"points"`
}
