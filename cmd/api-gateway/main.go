package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/gateway"
	"github.com/radieske/league-bet-platform/internal/shared/config"
	"github.com/radieske/league-bet-platform/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api-gateway"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	h, err := gateway.New(log, gateway.Upstreams{League: cfg.LeagueServiceURL, Live: cfg.LiveServiceURL}, gateway.Origins(cfg.CORSOrigins))
	if err != nil {
		log.Fatal("gateway init", zap.Error(err))
	}

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("api-gateway listening", zap.String("addr", srv.Addr),
		zap.String("league", cfg.LeagueServiceURL), zap.String("live", cfg.LiveServiceURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("gateway failed", zap.Error(err))
	}
}
