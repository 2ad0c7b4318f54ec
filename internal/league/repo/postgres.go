// Package repo implementa store.Store sobre Postgres (lib/pq).
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

// querier é satisfeito por *sql.DB e *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implementa store.Store. Fora de WithTx cada chamada roda em
// autocommit; dentro, todas usam a mesma *sql.Tx.
type Postgres struct {
	db *sql.DB
	q  querier
	tx *sql.Tx
}

var _ store.Store = (*Postgres)(nil)

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db, q: db} }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// WithTx abre a transação e faz commit se fn não retornar erro.
// Rollback é garantido pelo defer mesmo em panic.
func (p *Postgres) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	if p.tx != nil {
		return fn(p)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Postgres{db: p.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ----- matches -----

const matchColumns = `id, season, round, home_team_id, away_team_id, scheduled_at, status,
	home_score, away_score, bonus, events, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(r rowScanner) (*model.Match, error) {
	var (
		m          model.Match
		status     string
		bonus      []byte
		events     []byte
		finishedAt sql.NullTime
	)
	if err := r.Scan(&m.ID, &m.Season, &m.Round, &m.HomeTeamID, &m.AwayTeamID, &m.ScheduledAt, &status,
		&m.HomeScore, &m.AwayScore, &bonus, &events, &finishedAt); err != nil {
		return nil, err
	}
	m.Status = model.MatchStatus(status)
	m.ScheduledAt = m.ScheduledAt.UTC()
	if len(bonus) > 0 && string(bonus) != "null" {
		m.Bonus = &model.BonusEvent{}
		if err := json.Unmarshal(bonus, m.Bonus); err != nil {
			return nil, fmt.Errorf("decode bonus of match %s: %w", m.ID, err)
		}
	}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &m.Events); err != nil {
			return nil, fmt.Errorf("decode events of match %s: %w", m.ID, err)
		}
		if len(m.Events) == 0 {
			m.Events = nil
		}
	}
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		m.FinishedAt = &t
	}
	return &m, nil
}

func matchJSON(m *model.Match) (bonus, events []byte, err error) {
	if m.Bonus != nil {
		if bonus, err = json.Marshal(m.Bonus); err != nil {
			return nil, nil, err
		}
	}
	ev := m.Events
	if ev == nil {
		ev = []model.MatchEvent{}
	}
	if events, err = json.Marshal(ev); err != nil {
		return nil, nil, err
	}
	return bonus, events, nil
}

func (p *Postgres) InsertMatches(ctx context.Context, ms []*model.Match) error {
	for _, m := range ms {
		bonus, events, err := matchJSON(m)
		if err != nil {
			return err
		}
		if _, err := p.q.ExecContext(ctx, `INSERT INTO matches(`+matchColumns+`)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			m.ID, m.Season, m.Round, m.HomeTeamID, m.AwayTeamID, m.ScheduledAt, string(m.Status),
			m.HomeScore, m.AwayScore, nullJSON(bonus), events, m.FinishedAt); err != nil {
			return fmt.Errorf("insert match %s: %w", m.ID, err)
		}
	}
	return nil
}

func (p *Postgres) getMatch(ctx context.Context, id uuid.UUID, forUpdate bool) (*model.Match, error) {
	q := `SELECT ` + matchColumns + ` FROM matches WHERE id=$1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	m, err := scanMatch(p.q.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Entity: "match", ID: id.String()}
	}
	return m, err
}

func (p *Postgres) GetMatch(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	return p.getMatch(ctx, id, false)
}

func (p *Postgres) LockMatch(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	return p.getMatch(ctx, id, true)
}

func (p *Postgres) UpdateMatch(ctx context.Context, m *model.Match) error {
	bonus, events, err := matchJSON(m)
	if err != nil {
		return err
	}
	res, err := p.q.ExecContext(ctx, `UPDATE matches SET scheduled_at=$2, status=$3, home_score=$4, away_score=$5,
		bonus=$6, events=$7, finished_at=$8 WHERE id=$1`,
		m.ID, m.ScheduledAt, string(m.Status), m.HomeScore, m.AwayScore, nullJSON(bonus), events, m.FinishedAt)
	if err != nil {
		return fmt.Errorf("update match %s: %w", m.ID, err)
	}
	return expectOne(res, "match", m.ID.String())
}

func (p *Postgres) queryMatches(ctx context.Context, q string, args ...any) ([]*model.Match, error) {
	rows, err := p.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) ListMatches(ctx context.Context, f store.MatchFilter) ([]*model.Match, error) {
	return p.queryMatches(ctx, `SELECT `+matchColumns+` FROM matches
		WHERE ($1 = '' OR season = $1) AND ($2 = '' OR status = $2)
		ORDER BY scheduled_at, id`, f.Season, string(f.Status))
}

func (p *Postgres) ListDueMatches(ctx context.Context, now time.Time) ([]*model.Match, error) {
	return p.queryMatches(ctx, `SELECT `+matchColumns+` FROM matches
		WHERE status='scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at, id`, now)
}

func (p *Postgres) NextScheduledMatch(ctx context.Context) (*model.Match, error) {
	m, err := scanMatch(p.q.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches
		WHERE status='scheduled' ORDER BY scheduled_at, id LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Entity: "match", ID: "next scheduled"}
	}
	return m, err
}

// ----- teams -----

func (p *Postgres) InsertTeams(ctx context.Context, ts []*model.Team) error {
	for _, t := range ts {
		if _, err := p.q.ExecContext(ctx, `INSERT INTO teams(id, season, code, name) VALUES($1,$2,$3,$4)`,
			t.ID, t.Season, t.Code, t.Name); err != nil {
			return fmt.Errorf("insert team %s: %w", t.Code, err)
		}
	}
	return nil
}

func (p *Postgres) ListTeams(ctx context.Context, season string) ([]*model.Team, error) {
	rows, err := p.q.QueryContext(ctx, `SELECT id, season, code, name FROM teams
		WHERE ($1 = '' OR season = $1) ORDER BY code`, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Team, 0)
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Season, &t.Code, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// ----- bets -----

const betColumns = `id, user_id, match_id, wager_type, selection, stake, odds, status, payout, placed_at, resolved_at`

func scanBet(r rowScanner) (*model.Bet, error) {
	var (
		b          model.Bet
		wager      string
		status     string
		payout     decimal.NullDecimal
		resolvedAt sql.NullTime
	)
	if err := r.Scan(&b.ID, &b.UserID, &b.MatchID, &wager, &b.Selection, &b.Stake, &b.Odds, &status,
		&payout, &b.PlacedAt, &resolvedAt); err != nil {
		return nil, err
	}
	b.WagerType = model.WagerType(wager)
	b.Status = model.BetStatus(status)
	b.PlacedAt = b.PlacedAt.UTC()
	if payout.Valid {
		v := payout.Decimal
		b.Payout = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		b.ResolvedAt = &t
	}
	return &b, nil
}

func (p *Postgres) InsertBet(ctx context.Context, b *model.Bet) error {
	if _, err := p.q.ExecContext(ctx, `INSERT INTO bets(`+betColumns+`)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		b.ID, b.UserID, b.MatchID, string(b.WagerType), b.Selection, b.Stake, b.Odds, string(b.Status),
		nullDecimal(b.Payout), b.PlacedAt, b.ResolvedAt); err != nil {
		if isForeignKeyViolation(err) {
			return &model.NotFoundError{Entity: "match", ID: b.MatchID.String()}
		}
		return fmt.Errorf("insert bet %s: %w", b.ID, err)
	}
	return nil
}

func (p *Postgres) getBet(ctx context.Context, id uuid.UUID, forUpdate bool) (*model.Bet, error) {
	q := `SELECT ` + betColumns + ` FROM bets WHERE id=$1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	b, err := scanBet(p.q.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Entity: "bet", ID: id.String()}
	}
	return b, err
}

func (p *Postgres) GetBet(ctx context.Context, id uuid.UUID) (*model.Bet, error) {
	return p.getBet(ctx, id, false)
}

func (p *Postgres) LockBet(ctx context.Context, id uuid.UUID) (*model.Bet, error) {
	return p.getBet(ctx, id, true)
}

func (p *Postgres) UpdateBetResolution(ctx context.Context, b *model.Bet) error {
	res, err := p.q.ExecContext(ctx, `UPDATE bets SET status=$2, payout=$3, resolved_at=$4 WHERE id=$1`,
		b.ID, string(b.Status), nullDecimal(b.Payout), b.ResolvedAt)
	if err != nil {
		return fmt.Errorf("update bet %s: %w", b.ID, err)
	}
	return expectOne(res, "bet", b.ID.String())
}

func (p *Postgres) queryBets(ctx context.Context, q string, args ...any) ([]*model.Bet, error) {
	rows, err := p.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Bet, 0)
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) ListBetsByMatch(ctx context.Context, matchID uuid.UUID) ([]*model.Bet, error) {
	return p.queryBets(ctx, `SELECT `+betColumns+` FROM bets WHERE match_id=$1 ORDER BY placed_at, id`, matchID)
}

func (p *Postgres) ListBetsByUser(ctx context.Context, userID string, limit int) ([]*model.Bet, error) {
	return p.queryBets(ctx, `SELECT `+betColumns+` FROM bets WHERE user_id=$1
		ORDER BY placed_at DESC, id LIMIT $2`, userID, nullLimit(limit))
}

// ----- accounts / ledger -----

func (p *Postgres) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	var a model.Account
	err := p.q.QueryRowContext(ctx, `SELECT user_id, balance, updated_at FROM accounts WHERE user_id=$1`, userID).
		Scan(&a.UserID, &a.Balance, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Entity: "account", ID: userID}
	}
	if err != nil {
		return nil, err
	}
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func (p *Postgres) GetOrCreateAccountForUpdate(ctx context.Context, userID string) (*model.Account, error) {
	if _, err := p.q.ExecContext(ctx, `INSERT INTO accounts(user_id, balance) VALUES($1, 0)
		ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("create account %s: %w", userID, err)
	}
	var a model.Account
	if err := p.q.QueryRowContext(ctx, `SELECT user_id, balance, updated_at FROM accounts WHERE user_id=$1 FOR UPDATE`, userID).
		Scan(&a.UserID, &a.Balance, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func (p *Postgres) UpdateBalance(ctx context.Context, a *model.Account) error {
	if a.Balance.IsNegative() {
		return fmt.Errorf("account %s: balance cannot be negative", a.UserID)
	}
	res, err := p.q.ExecContext(ctx, `UPDATE accounts SET balance=$2, updated_at=$3 WHERE user_id=$1`,
		a.UserID, a.Balance, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update balance %s: %w", a.UserID, err)
	}
	return expectOne(res, "account", a.UserID)
}

func (p *Postgres) InsertLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	if _, err := p.q.ExecContext(ctx, `INSERT INTO ledger_entries(id, user_id, kind, amount, balance_after, bet_id, reference, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.UserID, string(e.Kind), e.Amount, e.BalanceAfter, e.BetID, e.Reference, e.CreatedAt); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (p *Postgres) ListLedger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	rows, err := p.q.QueryContext(ctx, `SELECT id, user_id, kind, amount, balance_after, bet_id, reference, created_at
		FROM ledger_entries WHERE ($1 = '' OR user_id = $1) ORDER BY seq DESC LIMIT $2`, userID, nullLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.LedgerEntry, 0)
	for rows.Next() {
		var (
			e     model.LedgerEntry
			kind  string
			betID uuid.NullUUID
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Amount, &e.BalanceAfter, &betID, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = model.LedgerKind(kind)
		e.CreatedAt = e.CreatedAt.UTC()
		if betID.Valid {
			id := betID.UUID
			e.BetID = &id
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ----- clock -----

func (p *Postgres) LoadClock(ctx context.Context) (time.Time, bool, error) {
	var t time.Time
	err := p.q.QueryRowContext(ctx, `SELECT now FROM league_clock WHERE id=1`).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}

func (p *Postgres) SaveClock(ctx context.Context, t time.Time) error {
	_, err := p.q.ExecContext(ctx, `INSERT INTO league_clock(id, now) VALUES(1, $1)
		ON CONFLICT (id) DO UPDATE SET now = EXCLUDED.now`, t)
	return err
}

// ----- standings -----

func (p *Postgres) ReplaceStandings(ctx context.Context, season string, ss []model.Standing) error {
	return p.WithTx(ctx, func(tx store.Store) error {
		q := tx.(*Postgres).q
		if _, err := q.ExecContext(ctx, `DELETE FROM standings WHERE season=$1`, season); err != nil {
			return fmt.Errorf("clear standings %s: %w", season, err)
		}
		for _, s := range ss {
			if _, err := q.ExecContext(ctx, `INSERT INTO standings(season, team_id, team_code, team_name, position,
				played, wins, draws, losses, points_for, points_against, point_diff, points)
				VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
				season, s.TeamID, s.TeamCode, s.TeamName, s.Position,
				s.Played, s.Wins, s.Draws, s.Losses, s.PointsFor, s.PointsAgainst, s.PointDiff, s.Points); err != nil {
				return fmt.Errorf("insert standing %s: %w", s.TeamCode, err)
			}
		}
		return nil
	})
}

func (p *Postgres) ListStandings(ctx context.Context, season string) ([]model.Standing, error) {
	rows, err := p.q.QueryContext(ctx, `SELECT season, team_id, team_code, team_name, position,
		played, wins, draws, losses, points_for, points_against, point_diff, points
		FROM standings WHERE season=$1 ORDER BY position`, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Standing, 0)
	for rows.Next() {
		var s model.Standing
		if err := rows.Scan(&s.Season, &s.TeamID, &s.TeamCode, &s.TeamName, &s.Position,
			&s.Played, &s.Wins, &s.Draws, &s.Losses, &s.PointsFor, &s.PointsAgainst, &s.PointDiff, &s.Points); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
