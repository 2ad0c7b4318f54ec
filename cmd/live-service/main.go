package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/league-bet-platform/internal/gateway"
	livecache "github.com/radieske/league-bet-platform/internal/live-service/cache"
	httpapi "github.com/radieske/league-bet-platform/internal/live-service/http"
	"github.com/radieske/league-bet-platform/internal/live-service/ws"
	sharedcache "github.com/radieske/league-bet-platform/internal/shared/cache"
	"github.com/radieske/league-bet-platform/internal/shared/config"
	"github.com/radieske/league-bet-platform/internal/shared/logger"
	"github.com/radieske/league-bet-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "live-service"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	reg := metrics.NewRegistry()
	delivered := prometheus.NewCounter(prometheus.CounterOpts{Name: "live_ws_messages_sent_total", Help: "mensagens entregues a clientes websocket"})
	updates := prometheus.NewCounter(prometheus.CounterOpts{Name: "live_updates_received_total", Help: "atualizações recebidas do pub/sub"})
	reg.MustRegister(delivered, updates)

	c := livecache.New(redisClient, cfg.Season)
	allowed := gateway.Origins(cfg.CORSOrigins)
	hub := ws.NewHub(log, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return origin == ""
	}, c.Snapshot)

	// Pub/Sub -> Hub
	ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisPubSubChannel, hub, func(n int) {
		updates.Inc()
		delivered.Add(float64(n))
	})

	api := &httpapi.API{Log: log, Cache: c, Hub: hub}
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: api.Router(), ReadHeaderTimeout: 5 * time.Second}
	msrv := metrics.NewServer(cfg.MetricsPort, reg, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http/ws listening", zap.String("addr", srv.Addr), zap.String("channel", cfg.RedisPubSubChannel))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(srv.Shutdown(sctx), msrv.Shutdown(sctx))
	})

	if err := g.Wait(); err != nil {
		log.Error("live-service stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("live-service stopped")
}
