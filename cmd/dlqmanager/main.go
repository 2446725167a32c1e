package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/workoutlog/internal/config"
	"example.com/workoutlog/internal/logging"
	"example.com/workoutlog/internal/outbox"
	httptransport "example.com/workoutlog/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", "err", err)
	}

	logCfg := cfg.Log
	logCfg.Prefix = "dlq"
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatal("logger setup failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", "err", err)
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay, logger)

	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler())
	metricsDone := make(chan error, 1)
	go func() {
		logger.Info("dlq manager metrics listening", "addr", cfg.MetricsAddress)
		metricsDone <- httptransport.Serve(ctx, metricsSrv, 10*time.Second)
	}()

	logger.Info("dlq manager started", "interval", cfg.DLQPollInterval, "max_retries", cfg.DLQMaxRetries, "batch", cfg.DLQBatchSize)
	manager.Run(ctx, cfg.DLQPollInterval, cfg.DLQBatchSize)

	logger.Info("dlq manager received shutdown signal")
	if err := <-metricsDone; err != nil {
		logger.Warn("metrics server error", "err", err)
	}
}
