package schedule

import (
	"context"
	"fmt"

	"github.com/radieske/league-bet-platform/internal/league/store"
)

// Seed grava times e calendário da temporada numa única transação. Se a
// temporada já tem times, não faz nada e devolve seeded=false.
func Seed(ctx context.Context, st store.Store, s *Season) (seeded bool, err error) {
	existing, err := st.ListTeams(ctx, s.Name)
	if err != nil {
		return false, fmt.Errorf("list teams: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	teams, matches := Generate(s)
	err = st.WithTx(ctx, func(tx store.Store) error {
		if err := tx.InsertTeams(ctx, teams); err != nil {
			return fmt.Errorf("insert teams: %w", err)
		}
		if err := tx.InsertMatches(ctx, matches); err != nil {
			return fmt.Errorf("insert matches: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
