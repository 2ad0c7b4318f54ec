package dto

import "github.com/shopspring/decimal"

type PlaceBetRequest struct {
	MatchID   string          `json:"matchId" validate:"required,uuid"`
	WagerType string          `json:"wagerType" validate:"required,oneof=match_winner bonus_event margin"`
	Selection string          `json:"selection" validate:"required,max=16"`
	Stake     decimal.Decimal `json:"stake"`
	Odds      decimal.Decimal `json:"odds"` // odd que o cliente viu; zero pula a conferência
}

type AdvanceRequest struct {
	Amount int    `json:"amount" validate:"required,gt=0,lte=520"`
	Unit   string `json:"unit" validate:"required"`
}

type DepositRequest struct {
	UserID    string          `json:"userId" validate:"required,max=64"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" validate:"max=128"`
}

type OddsOverrideRequest struct {
	WagerType string          `json:"wagerType" validate:"required,oneof=match_winner bonus_event margin"`
	Selection string          `json:"selection" validate:"required,max=16"`
	Odds      decimal.Decimal `json:"odds"`
	TTLSecs   int             `json:"ttlSeconds" validate:"gte=0"`
}
