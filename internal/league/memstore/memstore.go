// Package memstore implementa store.Store em memória. Usado em execução
// local (STORE_DRIVER=memory) e nos testes. Transações são serializadas e o
// rollback restaura um snapshot feito no início.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

type data struct {
	teams     map[uuid.UUID]*model.Team
	matches   map[uuid.UUID]*model.Match
	bets      map[uuid.UUID]*model.Bet
	accounts  map[string]*model.Account
	ledger    []*model.LedgerEntry
	standings map[string][]model.Standing
	clock     *time.Time
}

func newData() *data {
	return &data{
		teams:     make(map[uuid.UUID]*model.Team),
		matches:   make(map[uuid.UUID]*model.Match),
		bets:      make(map[uuid.UUID]*model.Bet),
		accounts:  make(map[string]*model.Account),
		standings: make(map[string][]model.Standing),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.teams {
		t := *v
		c.teams[k] = &t
	}
	for k, v := range d.matches {
		c.matches[k] = v.Clone()
	}
	for k, v := range d.bets {
		c.bets[k] = v.Clone()
	}
	for k, v := range d.accounts {
		a := *v
		c.accounts[k] = &a
	}
	c.ledger = make([]*model.LedgerEntry, len(d.ledger))
	for i, e := range d.ledger {
		cp := *e
		c.ledger[i] = &cp
	}
	for k, v := range d.standings {
		c.standings[k] = append([]model.Standing(nil), v...)
	}
	if d.clock != nil {
		t := *d.clock
		c.clock = &t
	}
	return c
}

// Store é seguro para uso concorrente
type Store struct {
	mu     sync.Mutex
	d      *data
	faults map[string]error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{d: newData(), faults: make(map[string]error)}
}

// FailOn faz toda chamada à operação op (nome do método) falhar com err até ClearFaults
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]error)
}

func (s *Store) Ping(context.Context) error { return nil }

// WithTx segura o lock do store durante fn; em erro ou panic restaura o snapshot
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	committed := false
	defer func() {
		if !committed {
			s.d = snapshot
		}
	}()

	if err := fn(&view{s: s}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) with(fn func(v *view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&view{s: s})
}

func (s *Store) InsertMatches(ctx context.Context, ms []*model.Match) error {
	return s.with(func(v *view) error { return v.InsertMatches(ctx, ms) })
}

func (s *Store) GetMatch(ctx context.Context, id uuid.UUID) (m *model.Match, err error) {
	err = s.with(func(v *view) error { m, err = v.GetMatch(ctx, id); return err })
	return m, err
}

func (s *Store) LockMatch(ctx context.Context, id uuid.UUID) (m *model.Match, err error) {
	err = s.with(func(v *view) error { m, err = v.LockMatch(ctx, id); return err })
	return m, err
}

func (s *Store) UpdateMatch(ctx context.Context, m *model.Match) error {
	return s.with(func(v *view) error { return v.UpdateMatch(ctx, m) })
}

func (s *Store) ListMatches(ctx context.Context, f store.MatchFilter) (out []*model.Match, err error) {
	err = s.with(func(v *view) error { out, err = v.ListMatches(ctx, f); return err })
	return out, err
}

func (s *Store) ListDueMatches(ctx context.Context, now time.Time) (out []*model.Match, err error) {
	err = s.with(func(v *view) error { out, err = v.ListDueMatches(ctx, now); return err })
	return out, err
}

func (s *Store) NextScheduledMatch(ctx context.Context) (m *model.Match, err error) {
	err = s.with(func(v *view) error { m, err = v.NextScheduledMatch(ctx); return err })
	return m, err
}

func (s *Store) InsertTeams(ctx context.Context, ts []*model.Team) error {
	return s.with(func(v *view) error { return v.InsertTeams(ctx, ts) })
}

func (s *Store) ListTeams(ctx context.Context, season string) (out []*model.Team, err error) {
	err = s.with(func(v *view) error { out, err = v.ListTeams(ctx, season); return err })
	return out, err
}

func (s *Store) InsertBet(ctx context.Context, b *model.Bet) error {
	return s.with(func(v *view) error { return v.InsertBet(ctx, b) })
}

func (s *Store) GetBet(ctx context.Context, id uuid.UUID) (b *model.Bet, err error) {
	err = s.with(func(v *view) error { b, err = v.GetBet(ctx, id); return err })
	return b, err
}

func (s *Store) LockBet(ctx context.Context, id uuid.UUID) (b *model.Bet, err error) {
	err = s.with(func(v *view) error { b, err = v.LockBet(ctx, id); return err })
	return b, err
}

func (s *Store) UpdateBetResolution(ctx context.Context, b *model.Bet) error {
	return s.with(func(v *view) error { return v.UpdateBetResolution(ctx, b) })
}

func (s *Store) ListBetsByMatch(ctx context.Context, matchID uuid.UUID) (out []*model.Bet, err error) {
	err = s.with(func(v *view) error { out, err = v.ListBetsByMatch(ctx, matchID); return err })
	return out, err
}

func (s *Store) ListBetsByUser(ctx context.Context, userID string, limit int) (out []*model.Bet, err error) {
	err = s.with(func(v *view) error { out, err = v.ListBetsByUser(ctx, userID, limit); return err })
	return out, err
}

func (s *Store) GetAccount(ctx context.Context, userID string) (a *model.Account, err error) {
	err = s.with(func(v *view) error { a, err = v.GetAccount(ctx, userID); return err })
	return a, err
}

func (s *Store) GetOrCreateAccountForUpdate(ctx context.Context, userID string) (a *model.Account, err error) {
	err = s.with(func(v *view) error { a, err = v.GetOrCreateAccountForUpdate(ctx, userID); return err })
	return a, err
}

func (s *Store) UpdateBalance(ctx context.Context, a *model.Account) error {
	return s.with(func(v *view) error { return v.UpdateBalance(ctx, a) })
}

func (s *Store) InsertLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	return s.with(func(v *view) error { return v.InsertLedgerEntry(ctx, e) })
}

func (s *Store) ListLedger(ctx context.Context, userID string, limit int) (out []*model.LedgerEntry, err error) {
	err = s.with(func(v *view) error { out, err = v.ListLedger(ctx, userID, limit); return err })
	return out, err
}

func (s *Store) LoadClock(ctx context.Context) (t time.Time, ok bool, err error) {
	err = s.with(func(v *view) error { t, ok, err = v.LoadClock(ctx); return err })
	return t, ok, err
}

func (s *Store) SaveClock(ctx context.Context, t time.Time) error {
	return s.with(func(v *view) error { return v.SaveClock(ctx, t) })
}

func (s *Store) ReplaceStandings(ctx context.Context, season string, ss []model.Standing) error {
	return s.with(func(v *view) error { return v.ReplaceStandings(ctx, season, ss) })
}

func (s *Store) ListStandings(ctx context.Context, season string) (out []model.Standing, err error) {
	err = s.with(func(v *view) error { out, err = v.ListStandings(ctx, season); return err })
	return out, err
}

// view opera direto sobre os dados; quem chama já segura s.mu
type view struct {
	s *Store
}

func (v *view) d() *data { return v.s.d }

func (v *view) fault(op string) error {
	if err, ok := v.s.faults[op]; ok {
		return err
	}
	return nil
}

func (v *view) Ping(context.Context) error { return nil }

func (v *view) WithTx(_ context.Context, fn func(tx store.Store) error) error {
	return fn(v)
}

func (v *view) InsertMatches(_ context.Context, ms []*model.Match) error {
	if err := v.fault("InsertMatches"); err != nil {
		return err
	}
	for _, m := range ms {
		if _, ok := v.d().matches[m.ID]; ok {
			return fmt.Errorf("match %s already exists", m.ID)
		}
		v.d().matches[m.ID] = m.Clone()
	}
	return nil
}

func (v *view) GetMatch(_ context.Context, id uuid.UUID) (*model.Match, error) {
	if err := v.fault("GetMatch"); err != nil {
		return nil, err
	}
	m, ok := v.d().matches[id]
	if !ok {
		return nil, &model.NotFoundError{Entity: "match", ID: id.String()}
	}
	return m.Clone(), nil
}

func (v *view) LockMatch(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	if err := v.fault("LockMatch"); err != nil {
		return nil, err
	}
	return v.GetMatch(ctx, id)
}

func (v *view) UpdateMatch(_ context.Context, m *model.Match) error {
	if err := v.fault("UpdateMatch"); err != nil {
		return err
	}
	if _, ok := v.d().matches[m.ID]; !ok {
		return &model.NotFoundError{Entity: "match", ID: m.ID.String()}
	}
	v.d().matches[m.ID] = m.Clone()
	return nil
}

func sortMatches(out []*model.Match) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
}

func (v *view) ListMatches(_ context.Context, f store.MatchFilter) ([]*model.Match, error) {
	if err := v.fault("ListMatches"); err != nil {
		return nil, err
	}
	out := make([]*model.Match, 0)
	for _, m := range v.d().matches {
		if f.Season != "" && m.Season != f.Season {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		out = append(out, m.Clone())
	}
	sortMatches(out)
	return out, nil
}

func (v *view) ListDueMatches(_ context.Context, now time.Time) ([]*model.Match, error) {
	if err := v.fault("ListDueMatches"); err != nil {
		return nil, err
	}
	out := make([]*model.Match, 0)
	for _, m := range v.d().matches {
		if m.Status == model.MatchScheduled && !m.ScheduledAt.After(now) {
			out = append(out, m.Clone())
		}
	}
	sortMatches(out)
	return out, nil
}

func (v *view) NextScheduledMatch(ctx context.Context) (*model.Match, error) {
	all, err := v.ListMatches(ctx, store.MatchFilter{Status: model.MatchScheduled})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, &model.NotFoundError{Entity: "match", ID: "next scheduled"}
	}
	return all[0], nil
}

func (v *view) InsertTeams(_ context.Context, ts []*model.Team) error {
	if err := v.fault("InsertTeams"); err != nil {
		return err
	}
	for _, t := range ts {
		cp := *t
		v.d().teams[t.ID] = &cp
	}
	return nil
}

func (v *view) ListTeams(_ context.Context, season string) ([]*model.Team, error) {
	if err := v.fault("ListTeams"); err != nil {
		return nil, err
	}
	out := make([]*model.Team, 0)
	for _, t := range v.d().teams {
		if season != "" && t.Season != season {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (v *view) InsertBet(_ context.Context, b *model.Bet) error {
	if err := v.fault("InsertBet"); err != nil {
		return err
	}
	if _, ok := v.d().matches[b.MatchID]; !ok {
		return &model.NotFoundError{Entity: "match", ID: b.MatchID.String()}
	}
	if _, ok := v.d().bets[b.ID]; ok {
		return fmt.Errorf("bet %s already exists", b.ID)
	}
	v.d().bets[b.ID] = b.Clone()
	return nil
}

func (v *view) GetBet(_ context.Context, id uuid.UUID) (*model.Bet, error) {
	if err := v.fault("GetBet"); err != nil {
		return nil, err
	}
	b, ok := v.d().bets[id]
	if !ok {
		return nil, &model.NotFoundError{Entity: "bet", ID: id.String()}
	}
	return b.Clone(), nil
}

func (v *view) LockBet(ctx context.Context, id uuid.UUID) (*model.Bet, error) {
	if err := v.fault("LockBet"); err != nil {
		return nil, err
	}
	return v.GetBet(ctx, id)
}

func (v *view) UpdateBetResolution(_ context.Context, b *model.Bet) error {
	if err := v.fault("UpdateBetResolution"); err != nil {
		return err
	}
	cur, ok := v.d().bets[b.ID]
	if !ok {
		return &model.NotFoundError{Entity: "bet", ID: b.ID.String()}
	}
	next := cur.Clone()
	next.Status = b.Status
	next.Payout = b.Clone().Payout
	next.ResolvedAt = b.Clone().ResolvedAt
	v.d().bets[b.ID] = next
	return nil
}

func (v *view) ListBetsByMatch(_ context.Context, matchID uuid.UUID) ([]*model.Bet, error) {
	if err := v.fault("ListBetsByMatch"); err != nil {
		return nil, err
	}
	out := make([]*model.Bet, 0)
	for _, b := range v.d().bets {
		if b.MatchID == matchID {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.Before(out[j].PlacedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (v *view) ListBetsByUser(_ context.Context, userID string, limit int) ([]*model.Bet, error) {
	if err := v.fault("ListBetsByUser"); err != nil {
		return nil, err
	}
	out := make([]*model.Bet, 0)
	for _, b := range v.d().bets {
		if b.UserID == userID {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.After(out[j].PlacedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *view) GetAccount(_ context.Context, userID string) (*model.Account, error) {
	if err := v.fault("GetAccount"); err != nil {
		return nil, err
	}
	a, ok := v.d().accounts[userID]
	if !ok {
		return nil, &model.NotFoundError{Entity: "account", ID: userID}
	}
	cp := *a
	return &cp, nil
}

func (v *view) GetOrCreateAccountForUpdate(ctx context.Context, userID string) (*model.Account, error) {
	if err := v.fault("GetOrCreateAccountForUpdate"); err != nil {
		return nil, err
	}
	if _, ok := v.d().accounts[userID]; !ok {
		v.d().accounts[userID] = &model.Account{UserID: userID, UpdatedAt: time.Now().UTC()}
	}
	return v.GetAccount(ctx, userID)
}

func (v *view) UpdateBalance(_ context.Context, a *model.Account) error {
	if err := v.fault("UpdateBalance"); err != nil {
		return err
	}
	if _, ok := v.d().accounts[a.UserID]; !ok {
		return &model.NotFoundError{Entity: "account", ID: a.UserID}
	}
	if a.Balance.IsNegative() {
		return fmt.Errorf("account %s: balance cannot be negative", a.UserID)
	}
	cp := *a
	v.d().accounts[a.UserID] = &cp
	return nil
}

func (v *view) InsertLedgerEntry(_ context.Context, e *model.LedgerEntry) error {
	if err := v.fault("InsertLedgerEntry"); err != nil {
		return err
	}
	cp := *e
	v.d().ledger = append(v.d().ledger, &cp)
	return nil
}

func (v *view) ListLedger(_ context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	if err := v.fault("ListLedger"); err != nil {
		return nil, err
	}
	out := make([]*model.LedgerEntry, 0)
	for i := len(v.d().ledger) - 1; i >= 0; i-- {
		e := v.d().ledger[i]
		if userID != "" && e.UserID != userID {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (v *view) LoadClock(context.Context) (time.Time, bool, error) {
	if err := v.fault("LoadClock"); err != nil {
		return time.Time{}, false, err
	}
	if v.d().clock == nil {
		return time.Time{}, false, nil
	}
	return *v.d().clock, true, nil
}

func (v *view) SaveClock(_ context.Context, t time.Time) error {
	if err := v.fault("SaveClock"); err != nil {
		return err
	}
	v.d().clock = &t
	return nil
}

func (v *view) ReplaceStandings(_ context.Context, season string, ss []model.Standing) error {
	if err := v.fault("ReplaceStandings"); err != nil {
		return err
	}
	v.d().standings[season] = append([]model.Standing(nil), ss...)
	return nil
}

func (v *view) ListStandings(_ context.Context, season string) ([]model.Standing, error) {
	if err := v.fault("ListStandings"); err != nil {
		return nil, err
	}
	return append([]model.Standing{}, v.d().standings[season]...), nil
}
