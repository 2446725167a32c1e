package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/workoutlog/internal/api"
	"example.com/workoutlog/internal/auth"
	"example.com/workoutlog/internal/config"
	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/logging"
	httptransport "example.com/workoutlog/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", "err", err)
	}

	logCfg := cfg.Log
	logCfg.Prefix = "api"
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatal("logger setup failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store setup failed", "driver", cfg.StoreDriver, "err", err)
	}

	service := domain.NewService(st.repo,
		domain.WithLocation(cfg.Location()),
		domain.WithWriteMode(cfg.Mode()),
	)

	mux := http.NewServeMux()
	api.NewHandler(service).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	authMiddleware.Skipper = auth.SkipPaths("/healthz", "/metrics")

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.Chain(mux,
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.CORSOrigin),
			authMiddleware.Wrap,
		))

	logger.Info("workout api listening", "addr", cfg.HTTPAddress, "store", cfg.StoreDriver, "write_mode", cfg.Mode(), "time_zone", cfg.Location().String())
	serveErr := httptransport.Serve(ctx, server, 15*time.Second)
	if serveErr != nil {
		logger.Error("server error", "err", serveErr)
	}

	stop()
	st.close()
	logger.Info("workout api stopped")
	if serveErr != nil {
		os.Exit(1)
	}
}
