// Package cache lê os snapshots que o league-events-worker grava no Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/league-bet-platform/pkg/contracts/live"
)

type Cache struct {
	R      *redis.Client
	Season string // temporada do canal "standings"
}

func New(r *redis.Client, season string) *Cache { return &Cache{R: r, Season: season} }

func (c *Cache) get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(b), true, nil
}

// Match devolve o último match_finished da partida
func (c *Cache) Match(ctx context.Context, matchID string) (json.RawMessage, bool, error) {
	return c.get(ctx, live.MatchKey(matchID))
}

// Standings devolve a última tabela publicada da temporada
func (c *Cache) Standings(ctx context.Context, season string) (json.RawMessage, bool, error) {
	if season == "" {
		season = c.Season
	}
	return c.get(ctx, live.StandingsKey(season))
}

// Snapshot monta o live.Update inicial de um canal do WebSocket
func (c *Cache) Snapshot(ctx context.Context, channel string) (live.Update, bool) {
	var (
		payload json.RawMessage
		ok      bool
		typ     string
	)
	switch {
	case channel == live.StandingsChannel:
		payload, ok, _ = c.Standings(ctx, "")
		typ = live.TypeStandingsUpdated
	case strings.HasPrefix(channel, "match:"):
		payload, ok, _ = c.Match(ctx, strings.TrimPrefix(channel, "match:"))
		typ = live.TypeMatchFinished
	}
	if !ok {
		return live.Update{}, false
	}
	return live.Update{Channel: channel, Type: typ, Payload: payload}, true
}
