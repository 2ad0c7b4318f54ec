// Package ledger aplica toda movimentação de saldo. Cada operação é uma
// única transação: a mudança da aposta, o saldo e a linha de ledger entram
// juntos ou nenhum entra.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

type Ledger struct {
	log *zap.Logger
	st  store.Store
	now func() time.Time
}

func New(log *zap.Logger, st store.Store) *Ledger {
	return &Ledger{log: log, st: st, now: func() time.Time { return time.Now().UTC() }}
}

// txFail converte falha do store em TransactionError, preservando erros de domínio
func txFail(op string, err error) error {
	if errors.Is(err, model.ErrInvalidState) ||
		errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrInsufficientFunds) ||
		errors.Is(err, model.ErrAlreadyResolved) ||
		errors.Is(err, model.ErrConsistency) ||
		errors.Is(err, model.ErrTransaction) {
		return err
	}
	return &model.TransactionError{Op: op, Err: err}
}

// ApplyResolution grava o desfecho da aposta e, para won/void, credita o payout.
// A aposta precisa continuar pending no momento do lock; caso contrário
// retorna model.ErrAlreadyResolved sem alterar nada.
func (l *Ledger) ApplyResolution(ctx context.Context, bet *model.Bet) error {
	if !bet.Status.Resolved() {
		return fmt.Errorf("%w: bet %s has status %s", model.ErrInvalidArgument, bet.ID, bet.Status)
	}
	if err := bet.CheckConsistency(); err != nil {
		return err
	}

	err := l.st.WithTx(ctx, func(tx store.Store) error {
		cur, err := tx.LockBet(ctx, bet.ID)
		if err != nil {
			return err
		}
		if cur.Status != model.BetPending {
			return model.ErrAlreadyResolved
		}

		if err := tx.UpdateBetResolution(ctx, bet); err != nil {
			return err
		}

		kind := model.LedgerPayout
		if bet.Status == model.BetVoid {
			kind = model.LedgerRefund
		}
		if bet.Status == model.BetLost || !bet.Payout.IsPositive() {
			return nil
		}
		_, err = l.credit(ctx, tx, cur.UserID, *bet.Payout, kind, &bet.ID, string(kind)+":"+bet.ID.String())
		return err
	})
	if err != nil {
		return txFail("apply resolution", err)
	}

	l.log.Debug("bet resolution applied",
		zap.String("betId", bet.ID.String()),
		zap.String("status", string(bet.Status)),
		zap.String("payout", bet.Payout.String()),
	)
	return nil
}

// PlaceStake debita o stake e grava a aposta pending na mesma transação
func (l *Ledger) PlaceStake(ctx context.Context, bet *model.Bet) (*model.Account, error) {
	if !bet.Stake.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive", model.ErrInvalidArgument)
	}
	if bet.Status != model.BetPending || bet.Payout != nil {
		return nil, fmt.Errorf("%w: new bet must be pending without payout", model.ErrInvalidArgument)
	}

	var acc *model.Account
	err := l.st.WithTx(ctx, func(tx store.Store) error {
		a, err := tx.GetOrCreateAccountForUpdate(ctx, bet.UserID)
		if err != nil {
			return err
		}
		if a.Balance.LessThan(bet.Stake) {
			return fmt.Errorf("%w: balance %s, stake %s", model.ErrInsufficientFunds, a.Balance.StringFixed(2), bet.Stake.StringFixed(2))
		}

		a.Balance = a.Balance.Sub(bet.Stake)
		a.UpdatedAt = l.now()
		if err := tx.UpdateBalance(ctx, a); err != nil {
			return err
		}
		if err := tx.InsertBet(ctx, bet); err != nil {
			return err
		}
		if err := tx.InsertLedgerEntry(ctx, &model.LedgerEntry{
			ID:           uuid.New(),
			UserID:       bet.UserID,
			Kind:         model.LedgerStake,
			Amount:       bet.Stake,
			BalanceAfter: a.Balance,
			BetID:        &bet.ID,
			Reference:    "stake:" + bet.ID.String(),
			CreatedAt:    a.UpdatedAt,
		}); err != nil {
			return err
		}
		acc = a
		return nil
	})
	if err != nil {
		return nil, txFail("place stake", err)
	}
	return acc, nil
}

// Deposit cria a conta se preciso e credita amount
func (l *Ledger) Deposit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*model.Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", model.ErrInvalidArgument)
	}
	if !amount.IsPositive() || !amount.Round(2).Equal(amount) {
		return nil, fmt.Errorf("%w: deposit amount must be positive with at most 2 decimal places", model.ErrInvalidArgument)
	}
	if ref == "" {
		ref = uuid.NewString()
	}

	var acc *model.Account
	err := l.st.WithTx(ctx, func(tx store.Store) error {
		a, err := l.credit(ctx, tx, userID, amount, model.LedgerDeposit, nil, "deposit:"+ref)
		acc = a
		return err
	})
	if err != nil {
		return nil, txFail("deposit", err)
	}
	return acc, nil
}

// credit roda dentro de uma transação já aberta
func (l *Ledger) credit(ctx context.Context, tx store.Store, userID string, amount decimal.Decimal, kind model.LedgerKind, betID *uuid.UUID, ref string) (*model.Account, error) {
	a, err := tx.GetOrCreateAccountForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = l.now()
	if err := tx.UpdateBalance(ctx, a); err != nil {
		return nil, err
	}
	if err := tx.InsertLedgerEntry(ctx, &model.LedgerEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: a.Balance,
		BetID:        betID,
		Reference:    ref,
		CreatedAt:    a.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return a, nil
}
