// Package simulator joga uma partida agendada e grava o resultado.
// O modelo de pontuação é aleatório; o que importa para o resto do sistema é
// que placares são não-negativos e o evento bônus é definido uma única vez.
package simulator

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

type Config struct {
	GoalPoints  int
	BonusPoints int
	// janela (em minutos) em que o evento bônus pode acontecer
	BonusWindowMin int
	BonusWindowMax int
	PeriodMinutes  int
	// probabilidade de cada lado marcar num período
	GoalChance float64
}

func DefaultConfig() Config {
	return Config{
		GoalPoints:     10,
		BonusPoints:    150,
		BonusWindowMin: 30,
		BonusWindowMax: 120,
		PeriodMinutes:  10,
		GoalChance:     0.35,
	}
}

type Simulator struct {
	log *zap.Logger
	st  store.Store
	cfg Config
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New cria o simulador. seed fixo gera sempre a mesma sequência de partidas;
// now fornece a data da liga usada em FinishedAt.
func New(log *zap.Logger, st store.Store, cfg Config, seed int64, now func() time.Time) *Simulator {
	if cfg.PeriodMinutes <= 0 {
		cfg.PeriodMinutes = 10
	}
	if cfg.BonusWindowMax < cfg.BonusWindowMin {
		cfg.BonusWindowMax = cfg.BonusWindowMin
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Simulator{
		log: log,
		st:  st,
		cfg: cfg,
		now: now,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Simulate trava a partida, exige status scheduled ou live, joga e persiste
// o resultado como finished
func (s *Simulator) Simulate(ctx context.Context, matchID uuid.UUID) (*model.Match, error) {
	var out *model.Match
	err := s.st.WithTx(ctx, func(tx store.Store) error {
		m, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if m.Status != model.MatchScheduled && m.Status != model.MatchLive {
			return &model.StateError{
				Entity:  "match",
				ID:      m.ID.String(),
				Current: string(m.Status),
				Want:    "scheduled or live",
			}
		}

		out = s.Play(m)
		if err := tx.UpdateMatch(ctx, out); err != nil {
			return &model.TransactionError{Op: "persist simulated match", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("match simulated",
		zap.String("matchId", out.ID.String()),
		zap.Int("homeScore", out.HomeScore),
		zap.Int("awayScore", out.AwayScore),
		zap.String("bonusSide", string(out.Bonus.Side)),
		zap.Int("bonusMinute", out.Bonus.Minute),
	)
	return out, nil
}

// Play gera o resultado sobre uma cópia da partida, sem tocar no store.
// Gols saem por período até o minuto do evento bônus, que encerra a partida.
func (s *Simulator) Play(m *model.Match) *model.Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := m.Clone()
	out.HomeScore, out.AwayScore = 0, 0
	out.Events = nil

	catchMinute := s.cfg.BonusWindowMin + s.rng.Intn(s.cfg.BonusWindowMax-s.cfg.BonusWindowMin+1)

	for start := 0; start < catchMinute; start += s.cfg.PeriodMinutes {
		for _, side := range []model.Side{model.SideHome, model.SideAway} {
			if s.rng.Float64() >= s.cfg.GoalChance {
				continue
			}
			minute := start + s.rng.Intn(s.cfg.PeriodMinutes)
			if minute >= catchMinute {
				continue
			}
			out.Events = append(out.Events, model.MatchEvent{
				Minute: minute,
				Side:   side,
				Kind:   model.EventGoal,
				Points: s.cfg.GoalPoints,
			})
			s.addPoints(out, side, s.cfg.GoalPoints)
		}
	}

	catcher := model.SideHome
	if s.rng.Intn(2) == 1 {
		catcher = model.SideAway
	}
	out.Events = append(out.Events, model.MatchEvent{
		Minute: catchMinute,
		Side:   catcher,
		Kind:   model.EventBonusCatch,
		Points: s.cfg.BonusPoints,
	})
	s.addPoints(out, catcher, s.cfg.BonusPoints)
	out.Bonus = &model.BonusEvent{Side: catcher, Minute: catchMinute}

	sort.SliceStable(out.Events, func(i, j int) bool { return out.Events[i].Minute < out.Events[j].Minute })

	finished := s.now()
	out.Status = model.MatchFinished
	out.FinishedAt = &finished
	return out
}

func (s *Simulator) addPoints(m *model.Match, side model.Side, pts int) {
	if side == model.SideHome {
		m.HomeScore += pts
		return
	}
	m.AwayScore += pts
}
