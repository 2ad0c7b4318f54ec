// Command season-seeder aplica as migrations e grava os times e o calendário
// de uma temporada definida em TOML.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/repo"
	"github.com/radieske/league-bet-platform/internal/league/schedule"
	"github.com/radieske/league-bet-platform/internal/shared/config"
	"github.com/radieske/league-bet-platform/internal/shared/db"
	"github.com/radieske/league-bet-platform/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	file := flag.String("file", cfg.SeasonFile, "path to the season TOML file")
	dryRun := flag.Bool("dry-run", false, "print the generated schedule without writing it")
	flag.Parse()

	log, err := logger.New("season-seeder", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	s, err := schedule.LoadFile(*file)
	if err != nil {
		log.Fatal("load season", zap.Error(err))
	}

	if *dryRun {
		teams, matches := schedule.Generate(s)
		log.Info("season generated", zap.String("season", s.Name), zap.Int("teams", len(teams)), zap.Int("matches", len(matches)))
		for _, m := range matches {
			log.Info("match",
				zap.Int("round", m.Round),
				zap.Time("kickoff", m.ScheduledAt),
				zap.String("home", m.HomeTeamID.String()),
				zap.String("away", m.AwayTeamID.String()))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, err := db.Migrate(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	log.Info("migrations applied", zap.Uint("version", v))

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	seeded, err := schedule.Seed(ctx, repo.NewPostgres(pg), s)
	if err != nil {
		log.Error("seed failed", zap.Error(err))
		os.Exit(1)
	}
	if !seeded {
		log.Info("season already present, nothing to do", zap.String("season", s.Name))
		return
	}
	log.Info("season seeded", zap.String("season", s.Name), zap.Int("teams", len(s.Teams)))
}
