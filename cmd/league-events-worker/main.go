package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/events-worker/consumer"
	sharedcache "github.com/radieske/league-bet-platform/internal/shared/cache"
	"github.com/radieske/league-bet-platform/internal/shared/config"
	"github.com/radieske/league-bet-platform/internal/shared/kafka"
	"github.com/radieske/league-bet-platform/internal/shared/logger"
	"github.com/radieske/league-bet-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "league-events-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	tctx, tcancel := context.WithTimeout(ctx, 5*time.Second)
	if err := kafka.EnsureTopics(tctx, cfg.KafkaBrokers, cfg.TopicMatchFinished, cfg.TopicStandingsUpdated, cfg.TopicDLQ); err != nil {
		log.Warn("kafka topics not ensured", zap.Error(err))
	}
	tcancel()

	// Consumer group único para os dois tópicos da liga
	reader := kafka.NewGroupReader(cfg.KafkaBrokers, "league-events-worker", cfg.TopicMatchFinished, cfg.TopicStandingsUpdated)
	defer reader.Close()

	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	reg := metrics.NewRegistry()
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "league_events_consumed_total", Help: "mensagens consumidas"})
	broadcast := prometheus.NewCounter(prometheus.CounterOpts{Name: "league_events_broadcast_total", Help: "atualizações publicadas no pub/sub"})
	dlqSent := prometheus.NewCounter(prometheus.CounterOpts{Name: "league_events_dlq_total", Help: "mensagens enviadas para a DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "league_events_errors_total", Help: "erros por estágio"}, []string{"stage"})
	reg.MustRegister(consumed, broadcast, dlqSent, errorsBy)

	proc := &consumer.Processor{
		Log:            log,
		Reader:         reader,
		DLQ:            dlq,
		Redis:          redisClient,
		Channel:        cfg.RedisPubSubChannel,
		TTL:            24 * time.Hour,
		MatchTopic:     cfg.TopicMatchFinished,
		StandingsTopic: cfg.TopicStandingsUpdated,
		OnConsumed:     func() { consumed.Inc() },
		OnBroadcast:    func() { broadcast.Inc() },
		OnDLQ:          func() { dlqSent.Inc() },
		OnError:        func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	msrv := metrics.NewServer(cfg.MetricsPort, reg, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	go func() {
		log.Info("metrics/health listening", zap.String("addr", msrv.Addr))
		if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = msrv.Shutdown(sctx)
	}()

	log.Info("league-events-worker started",
		zap.String("topics", fmt.Sprintf("%s,%s", cfg.TopicMatchFinished, cfg.TopicStandingsUpdated)),
		zap.String("channel", cfg.RedisPubSubChannel))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("league-events-worker stopped")
}
