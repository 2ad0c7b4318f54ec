package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/league-bet-platform/internal/league/advancer"
	"github.com/radieske/league-bet-platform/internal/league/betting"
	leaguecache "github.com/radieske/league-bet-platform/internal/league/cache"
	"github.com/radieske/league-bet-platform/internal/league/clock"
	httpapi "github.com/radieske/league-bet-platform/internal/league/http"
	"github.com/radieske/league-bet-platform/internal/league/ledger"
	"github.com/radieske/league-bet-platform/internal/league/memstore"
	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/odds"
	"github.com/radieske/league-bet-platform/internal/league/producer"
	"github.com/radieske/league-bet-platform/internal/league/repo"
	"github.com/radieske/league-bet-platform/internal/league/resolution"
	"github.com/radieske/league-bet-platform/internal/league/schedule"
	"github.com/radieske/league-bet-platform/internal/league/simulator"
	"github.com/radieske/league-bet-platform/internal/league/standings"
	"github.com/radieske/league-bet-platform/internal/league/store"
	"github.com/radieske/league-bet-platform/internal/shared/cache"
	"github.com/radieske/league-bet-platform/internal/shared/config"
	"github.com/radieske/league-bet-platform/internal/shared/db"
	"github.com/radieske/league-bet-platform/internal/shared/kafka"
	"github.com/radieske/league-bet-platform/internal/shared/logger"
	"github.com/radieske/league-bet-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "league-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, log, cfg)
	if err != nil {
		log.Fatal("store init", zap.Error(err))
	}
	defer closeStore()

	// Redis é opcional: sem ele não há cache de tabela, lock distribuído nem override de odds
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("redis connected")
	}

	var pub producer.Publisher = producer.Noop{}
	if cfg.KafkaBrokers != "" {
		out := producer.Topics{
			MatchFinished:    cfg.TopicMatchFinished,
			BetsSettled:      cfg.TopicBetsSettled,
			StandingsUpdated: cfg.TopicStandingsUpdated,
			BetPlaced:        cfg.TopicBetPlaced,
		}
		tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := kafka.EnsureTopics(tctx, cfg.KafkaBrokers, out.MatchFinished, out.BetsSettled, out.StandingsUpdated, out.BetPlaced); err != nil {
			log.Warn("kafka topics not ensured", zap.Error(err))
		}
		cancel()
		pub = producer.NewKafkaPublisher(log, cfg.KafkaBrokers, out)
		log.Info("kafka publisher ready")
	}
	defer pub.Close()

	if err := seedSeason(ctx, log, st, cfg); err != nil {
		log.Fatal("season seed", zap.Error(err))
	}

	clk := clock.New(st, cfg.LeagueStart)
	if err := clk.Load(ctx); err != nil {
		log.Fatal("league clock load", zap.Error(err))
	}
	log.Info("league clock loaded", zap.Time("now", clk.Now()))

	// Métricas Prometheus
	reg := metrics.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "league_http_requests_total", Help: "requests por rota e status"}, []string{"route", "method", "status"})
	betsPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "league_bets_placed_total", Help: "apostas aceitas por tipo"}, []string{"wager_type"})
	betsResolved := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "league_bets_resolved_total", Help: "apostas resolvidas por status"}, []string{"status"})
	betErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "league_bet_resolution_errors_total", Help: "falhas ao resolver apostas"})
	inconsistent := prometheus.NewCounter(prometheus.CounterOpts{Name: "league_bets_inconsistent_total", Help: "apostas com estado inconsistente"})
	simulated := prometheus.NewCounter(prometheus.CounterOpts{Name: "league_matches_simulated_total", Help: "partidas simuladas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "league_advance_errors_total", Help: "erros do avanço por estágio"}, []string{"stage"})
	reg.MustRegister(requests, betsPlaced, betsResolved, betErrors, inconsistent, simulated, errorsBy)

	led := ledger.New(log, st)
	quoter := odds.NewQuoter(log, redisClient)

	resolver := resolution.New(log, st, led, clk.Now)
	resolver.OnResolved = func(s model.BetStatus) { betsResolved.WithLabelValues(string(s)).Inc() }
	resolver.OnBetError = func() { betErrors.Inc() }
	resolver.OnInconsistent = func() { inconsistent.Inc() }

	deps := advancer.Deps{
		Store:     st,
		Clock:     clk,
		Simulator: simulator.New(log, st, simulator.DefaultConfig(), cfg.SimSeed, clk.Now),
		Resolver:  resolver,
		Standings: standings.NewService(log, st),
		Publisher: pub,
		Season:    cfg.Season,
	}
	api := &httpapi.API{
		Log:       log,
		Store:     st,
		Deposits:  led,
		Odds:      quoter,
		Clock:     clk,
		Season:    cfg.Season,
		JWTSecret: []byte(cfg.JWTSecret),
		OnRequest: func(route, method string, status int) {
			requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		},
	}
	if redisClient != nil {
		sc := leaguecache.NewStandingsCache(redisClient, cfg.StandingsTTL)
		deps.Cache = sc
		deps.Locker = leaguecache.NewLocker(redisClient)
		api.Cache = sc
	}

	adv := advancer.New(log, deps)
	adv.OnSimulated = func() { simulated.Inc() }
	adv.OnError = func(stage string) { errorsBy.WithLabelValues(stage).Inc() }
	api.League = adv

	bets := betting.NewService(log, st, quoter, led, clk, pub)
	bets.OnPlaced = func(t model.WagerType) { betsPlaced.WithLabelValues(string(t)).Inc() }
	api.Betting = bets

	health := func(ctx context.Context) error {
		if err := st.Ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	msrv := metrics.NewServer(cfg.MetricsPort, reg, health)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", msrv.Addr))
		if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(srv.Shutdown(sctx), msrv.Shutdown(sctx))
	})

	if err := g.Wait(); err != nil {
		log.Error("league-service stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("league-service stopped")
}

// openStore escolhe o backend pelo STORE_DRIVER
func openStore(ctx context.Context, log *zap.Logger, cfg config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; state is lost on restart")
		return memstore.New(), func() {}, nil
	case "postgres":
		if cfg.AutoMigrate {
			v, err := db.Migrate(ctx, cfg.PostgresDSN)
			if err != nil {
				return nil, nil, err
			}
			log.Info("migrations applied", zap.Uint("version", v))
		}
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info("postgres connected")
		return repo.NewPostgres(pg), func() { _ = pg.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// seedSeason carrega o calendário do arquivo quando a temporada ainda não existe
func seedSeason(ctx context.Context, log *zap.Logger, st store.Store, cfg config.Config) error {
	if cfg.SeasonFile == "" {
		return nil
	}
	if _, err := os.Stat(cfg.SeasonFile); errors.Is(err, os.ErrNotExist) {
		log.Info("no season file, skipping seed", zap.String("file", cfg.SeasonFile))
		return nil
	}
	s, err := schedule.LoadFile(cfg.SeasonFile)
	if err != nil {
		return err
	}
	seeded, err := schedule.Seed(ctx, st, s)
	if err != nil {
		return err
	}
	if seeded {
		log.Info("season seeded", zap.String("season", s.Name), zap.String("file", cfg.SeasonFile))
	}
	return nil
}
