package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/league-bet-platform/internal/league/model"
)

// MatchFilter filtra a listagem de partidas; campos vazios não filtram
type MatchFilter struct {
	Season string
	Status model.MatchStatus
}

type Matches interface {
	InsertMatches(ctx context.Context, ms []*model.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*model.Match, error)
	// LockMatch trava a linha da partida até o fim da transação
	LockMatch(ctx context.Context, id uuid.UUID) (*model.Match, error)
	UpdateMatch(ctx context.Context, m *model.Match) error
	ListMatches(ctx context.Context, f MatchFilter) ([]*model.Match, error)
	// ListDueMatches retorna partidas scheduled com horário <= now, em ordem de horário
	ListDueMatches(ctx context.Context, now time.Time) ([]*model.Match, error)
	// NextScheduledMatch retorna a próxima partida scheduled ou model.ErrNotFound
	NextScheduledMatch(ctx context.Context) (*model.Match, error)
}

type Teams interface {
	InsertTeams(ctx context.Context, ts []*model.Team) error
	ListTeams(ctx context.Context, season string) ([]*model.Team, error)
}

type Bets interface {
	InsertBet(ctx context.Context, b *model.Bet) error
	GetBet(ctx context.Context, id uuid.UUID) (*model.Bet, error)
	// LockBet trava a aposta até o fim da transação
	LockBet(ctx context.Context, id uuid.UUID) (*model.Bet, error)
	UpdateBetResolution(ctx context.Context, b *model.Bet) error
	ListBetsByMatch(ctx context.Context, matchID uuid.UUID) ([]*model.Bet, error)
	ListBetsByUser(ctx context.Context, userID string, limit int) ([]*model.Bet, error)
}

type Accounts interface {
	GetAccount(ctx context.Context, userID string) (*model.Account, error)
	// GetOrCreateAccountForUpdate cria a conta com saldo zero se não existir e trava a linha
	GetOrCreateAccountForUpdate(ctx context.Context, userID string) (*model.Account, error)
	UpdateBalance(ctx context.Context, a *model.Account) error
	InsertLedgerEntry(ctx context.Context, e *model.LedgerEntry) error
	ListLedger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error)
}

type Clock interface {
	LoadClock(ctx context.Context) (time.Time, bool, error)
	SaveClock(ctx context.Context, t time.Time) error
}

type Standings interface {
	// ReplaceStandings substitui por completo a tabela da temporada
	ReplaceStandings(ctx context.Context, season string, ss []model.Standing) error
	ListStandings(ctx context.Context, season string) ([]model.Standing, error)
}

// Store agrega todos os repositórios. WithTx executa fn numa transação:
// erro (ou panic) em fn faz rollback de tudo; dentro de fn, tx implementa o
// mesmo contrato e chamadas aninhadas a WithTx reaproveitam a transação.
type Store interface {
	Matches
	Teams
	Bets
	Accounts
	Clock
	Standings
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
