// Package schedule lê a definição de temporada (TOML) e gera o calendário
// em turno único ou ida e volta.
package schedule

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/radieske/league-bet-platform/internal/league/model"
)

// Duration aceita strings como "168h" ou "90m" no TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type TeamDef struct {
	Code string `toml:"code"`
	Name string `toml:"name"`
}

// Season é o conteúdo do arquivo de temporada
type Season struct {
	Name             string    `toml:"name"`
	Start            time.Time `toml:"start"`
	KickoffInterval  Duration  `toml:"kickoff_interval"`
	MatchSpacing     Duration  `toml:"match_spacing"`
	DoubleRoundRobin bool      `toml:"double_round_robin"`
	Teams            []TeamDef `toml:"teams"`
}

// Defaults usados quando o arquivo omite os intervalos
const (
	DefaultKickoffInterval = 7 * 24 * time.Hour
	DefaultMatchSpacing    = 2 * time.Hour
)

// namespace para ids determinísticos: a mesma temporada gera os mesmos ids
var namespace = uuid.MustParse("6f1c1f0e-4f8e-4b8a-9a52-3c7d1f2a9b10")

func LoadFile(path string) (*Season, error) {
	var s Season
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("decode season file %s: %w", path, err)
	}
	return &s, s.normalize()
}

func Decode(r io.Reader) (*Season, error) {
	var s Season
	if _, err := toml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode season: %w", err)
	}
	return &s, s.normalize()
}

func (s *Season) normalize() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return fmt.Errorf("%w: season name is required", model.ErrInvalidArgument)
	}
	if s.Start.IsZero() {
		return fmt.Errorf("%w: season start is required", model.ErrInvalidArgument)
	}
	if s.KickoffInterval.Duration <= 0 {
		s.KickoffInterval.Duration = DefaultKickoffInterval
	}
	if s.MatchSpacing.Duration <= 0 {
		s.MatchSpacing.Duration = DefaultMatchSpacing
	}
	if len(s.Teams) < 2 {
		return fmt.Errorf("%w: a season needs at least 2 teams, got %d", model.ErrInvalidArgument, len(s.Teams))
	}
	seen := make(map[string]bool, len(s.Teams))
	for i, t := range s.Teams {
		code := strings.ToUpper(strings.TrimSpace(t.Code))
		if code == "" {
			return fmt.Errorf("%w: team %d has no code", model.ErrInvalidArgument, i)
		}
		if seen[code] {
			return fmt.Errorf("%w: duplicated team code %s", model.ErrInvalidArgument, code)
		}
		seen[code] = true
		s.Teams[i].Code = code
		if strings.TrimSpace(t.Name) == "" {
			s.Teams[i].Name = code
		}
	}
	s.Start = s.Start.UTC()
	return nil
}

func TeamID(season, code string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("team:"+season+":"+code))
}

func matchID(season string, leg, round, slot int) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("match:%s:%d:%d:%d", season, leg, round, slot)))
}

// Generate monta times e partidas pelo método do círculo: cada par se enfrenta
// uma vez por turno e o returno inverte mando. Com número ímpar de times, um
// folga por rodada. Rodada r começa em Start + r*KickoffInterval e as partidas
// da rodada são espaçadas por MatchSpacing.
func Generate(s *Season) ([]*model.Team, []*model.Match) {
	teams := make([]*model.Team, len(s.Teams))
	for i, def := range s.Teams {
		teams[i] = &model.Team{
			ID:     TeamID(s.Name, def.Code),
			Season: s.Name,
			Code:   def.Code,
			Name:   def.Name,
		}
	}

	slots := make([]*model.Team, len(teams))
	copy(slots, teams)
	if len(slots)%2 == 1 {
		slots = append(slots, nil) // folga
	}
	n := len(slots)
	roundsPerLeg := n - 1

	type pairing struct{ home, away *model.Team }
	firstLeg := make([][]pairing, roundsPerLeg)
	for r := 0; r < roundsPerLeg; r++ {
		for i := 0; i < n/2; i++ {
			home, away := slots[i], slots[n-1-i]
			if home == nil || away == nil {
				continue
			}
			// alterna o mando do time fixo para não jogar sempre em casa
			if i == 0 && r%2 == 1 {
				home, away = away, home
			}
			firstLeg[r] = append(firstLeg[r], pairing{home: home, away: away})
		}
		// rotaciona todos menos o primeiro
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}

	legs := 1
	if s.DoubleRoundRobin {
		legs = 2
	}

	matches := make([]*model.Match, 0, legs*roundsPerLeg*n/2)
	for leg := 0; leg < legs; leg++ {
		for r, pairs := range firstLeg {
			round := leg*roundsPerLeg + r
			kickoff := s.Start.Add(time.Duration(round) * s.KickoffInterval.Duration)
			for slot, p := range pairs {
				home, away := p.home, p.away
				if leg == 1 {
					home, away = away, home
				}
				matches = append(matches, &model.Match{
					ID:          matchID(s.Name, leg, r, slot),
					Season:      s.Name,
					Round:       round + 1,
					HomeTeamID:  home.ID,
					AwayTeamID:  away.ID,
					ScheduledAt: kickoff.Add(time.Duration(slot) * s.MatchSpacing.Duration),
					Status:      model.MatchScheduled,
				})
			}
		}
	}
	return teams, matches
}
