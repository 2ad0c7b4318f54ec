package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Store) error {
		acc, err := tx.GetOrCreateAccountForUpdate(ctx, "u1")
		require.NoError(t, err)
		acc.Balance = decimal.NewFromInt(50)
		require.NoError(t, tx.UpdateBalance(ctx, acc))
		require.NoError(t, tx.SaveClock(ctx, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetAccount(ctx, "u1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, ok, err := s.LoadClock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := New()

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx store.Store) error {
			_, _ = tx.GetOrCreateAccountForUpdate(ctx, "u1")
			panic("mid-transaction")
		})
	})
	_, err := s.GetAccount(ctx, "u1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFailOnInjectsFaults(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("disk full")

	s.FailOn("SaveClock", boom)
	assert.ErrorIs(t, s.SaveClock(ctx, time.Now()), boom)

	s.ClearFaults()
	assert.NoError(t, s.SaveClock(ctx, time.Now()))
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := &model.Match{ID: uuid.New(), Season: "2025", Status: model.MatchScheduled, ScheduledAt: time.Now()}
	require.NoError(t, s.InsertMatches(ctx, []*model.Match{m}))

	got, err := s.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	got.Status = model.MatchFinished

	again, err := s.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchScheduled, again.Status)
}

func TestNegativeBalanceRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc, err := s.GetOrCreateAccountForUpdate(ctx, "u1")
	require.NoError(t, err)
	acc.Balance = decimal.NewFromInt(-1)
	assert.Error(t, s.UpdateBalance(ctx, acc))
}
