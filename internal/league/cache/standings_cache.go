// Package cache guarda no Redis leituras quentes da liga (tabela) e o lock
// distribuído do avanço de tempo.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/league-bet-platform/internal/league/model"
)

// StandingsCache guarda a tabela por temporada com TTL
type StandingsCache struct {
	R   *redis.Client
	TTL time.Duration
}

func NewStandingsCache(r *redis.Client, ttl time.Duration) *StandingsCache {
	return &StandingsCache{R: r, TTL: ttl}
}

func keyStandings(season string) string { return "standings:" + season }

// Get retorna (nil, false, nil) em cache miss
func (c *StandingsCache) Get(ctx context.Context, season string) ([]model.Standing, bool, error) {
	b, err := c.R.Get(ctx, keyStandings(season)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out []model.Standing
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *StandingsCache) Set(ctx context.Context, season string, table []model.Standing) error {
	b, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyStandings(season), b, c.TTL).Err()
}

func (c *StandingsCache) Invalidate(ctx context.Context, season string) error {
	return c.R.Del(ctx, keyStandings(season)).Err()
}
