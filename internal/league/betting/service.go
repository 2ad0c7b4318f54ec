// Package betting valida e registra apostas e atende as consultas do usuário
// (apostas, conta e extrato).
package betting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/dto"
	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/producer"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type Quoter interface {
	CurrentOdd(ctx context.Context, matchID uuid.UUID, t model.WagerType, selection string) (decimal.Decimal, error)
}

type Stakes interface {
	PlaceStake(ctx context.Context, bet *model.Bet) (*model.Account, error)
}

type Clock interface {
	Now() time.Time
}

// OddsChangedError carrega a cotação vigente para o cliente refazer a aposta
type OddsChangedError struct {
	Seen    decimal.Decimal
	Current decimal.Decimal
}

func (e *OddsChangedError) Error() string {
	return fmt.Sprintf("odds changed: seen %s, current %s", e.Seen, e.Current)
}

func (e *OddsChangedError) Unwrap() error { return model.ErrOddsChanged }

type Service struct {
	log      *zap.Logger
	st       store.Store
	quoter   Quoter
	stakes   Stakes
	clock    Clock
	pub      producer.Publisher
	validate *validator.Validate

	OnPlaced func(t model.WagerType)
}

func NewService(log *zap.Logger, st store.Store, q Quoter, s Stakes, c Clock, pub producer.Publisher) *Service {
	if pub == nil {
		pub = producer.Noop{}
	}
	return &Service{log: log, st: st, quoter: q, stakes: s, clock: c, pub: pub, validate: validator.New()}
}

// Validate aplica as tags `validate` do dto; erro vira ErrInvalidArgument
func (s *Service) Validate(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}
	return nil
}

// PlaceBet: partida agendada e ainda não iniciada no relógio da liga, seleção
// válida, odd conferida com a cotação vigente. O débito do stake e a gravação
// da aposta acontecem na mesma transação.
func (s *Service) PlaceBet(ctx context.Context, userID string, req dto.PlaceBetRequest) (*model.Bet, *model.Account, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: user is required", model.ErrInvalidArgument)
	}
	if err := s.Validate(req); err != nil {
		return nil, nil, err
	}
	matchID, err := model.ParseID("match", req.MatchID)
	if err != nil {
		return nil, nil, err
	}
	if !req.Stake.IsPositive() || !req.Stake.Round(2).Equal(req.Stake) {
		return nil, nil, fmt.Errorf("%w: stake must be positive with at most 2 decimal places", model.ErrInvalidArgument)
	}
	wager := model.WagerType(req.WagerType)
	if err := model.ValidateSelection(wager, req.Selection); err != nil {
		return nil, nil, err
	}

	m, err := s.st.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	now := s.clock.Now()
	if m.Status != model.MatchScheduled {
		return nil, nil, &model.StateError{Entity: "match", ID: m.ID.String(), Current: string(m.Status), Want: string(model.MatchScheduled)}
	}
	if !m.ScheduledAt.After(now) {
		return nil, nil, &model.StateError{Entity: "match", ID: m.ID.String(), Current: "kicked off", Want: "a kickoff after " + now.Format(time.RFC3339)}
	}

	current, err := s.quoter.CurrentOdd(ctx, matchID, wager, req.Selection)
	if err != nil {
		return nil, nil, err
	}
	if !req.Odds.IsZero() && !req.Odds.Equal(current) {
		return nil, nil, &OddsChangedError{Seen: req.Odds, Current: current}
	}

	bet := &model.Bet{
		ID:        uuid.New(),
		UserID:    userID,
		MatchID:   matchID,
		WagerType: wager,
		Selection: req.Selection,
		Stake:     req.Stake,
		Odds:      current,
		Status:    model.BetPending,
		PlacedAt:  now,
	}
	acc, err := s.stakes.PlaceStake(ctx, bet)
	if err != nil {
		return nil, nil, err
	}

	if err := s.pub.PublishBetPlaced(ctx, producer.BetPlacedEvent(bet)); err != nil {
		s.log.Warn("failed to publish bet placed", zap.String("betId", bet.ID.String()), zap.Error(err))
	}
	if s.OnPlaced != nil {
		s.OnPlaced(wager)
	}
	s.log.Info("bet placed",
		zap.String("betId", bet.ID.String()),
		zap.String("userId", userID),
		zap.String("matchId", matchID.String()),
		zap.String("stake", bet.Stake.String()),
		zap.String("odds", bet.Odds.String()),
	)
	return bet, acc, nil
}

// GetBet só devolve apostas do próprio usuário, exceto para admin
func (s *Service) GetBet(ctx context.Context, userID string, isAdmin bool, id uuid.UUID) (*model.Bet, error) {
	b, err := s.st.GetBet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.UserID != userID {
		return nil, &model.NotFoundError{Entity: "bet", ID: id.String()}
	}
	return b, nil
}

func (s *Service) ListBets(ctx context.Context, userID string, limit int) ([]*model.Bet, error) {
	return s.st.ListBetsByUser(ctx, userID, clampLimit(limit))
}

// Account devolve saldo zero para quem ainda não tem conta
func (s *Service) Account(ctx context.Context, userID string) (*model.Account, error) {
	a, err := s.st.GetAccount(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return &model.Account{UserID: userID, Balance: decimal.Zero}, nil
	}
	return a, err
}

func (s *Service) Ledger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	return s.st.ListLedger(ctx, userID, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
