package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadPortsByService(t *testing.T) {
	t.Setenv("SERVICE_NAME", "league-service")
	t.Setenv("HTTP_PORT_LEAGUE", "9999")

	cfg := Load()
	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.Equal(t, "9098", cfg.MetricsPort)
	assert.Equal(t, "match_finished", cfg.TopicMatchFinished)
}

func TestLoadTypedValues(t *testing.T) {
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("SIM_SEED", "42")
	t.Setenv("LEAGUE_START", "2026-01-10T12:00:00Z")
	t.Setenv("STANDINGS_CACHE_TTL", "30s")

	cfg := Load()
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, int64(42), cfg.SimSeed)
	assert.Equal(t, time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC), cfg.LeagueStart)
	assert.Equal(t, 30*time.Second, cfg.StandingsTTL)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SIM_SEED", "abc")
	t.Setenv("LEAGUE_START", "yesterday")

	cfg := Load()
	assert.Equal(t, int64(0), cfg.SimSeed)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), cfg.LeagueStart)
}
