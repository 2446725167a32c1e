package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/workoutlog/internal/config"
	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/outbox"
	"example.com/workoutlog/internal/persistence/memory"
	"example.com/workoutlog/internal/persistence/postgres"
	"example.com/workoutlog/internal/persistence/sqlite"
)

// store bundles the selected repository with its teardown.
type store struct {
	repo  domain.WorkoutRepository
	close func()
}

// openStore builds the repository named by cfg.StoreDriver. The postgres
// driver also starts the outbox dispatcher, which runs until ctx is cancelled.
func openStore(ctx context.Context, cfg config.Config, logger *log.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; workouts are lost on restart")
		return &store{repo: memory.NewRepository(), close: func() {}}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &store{repo: db, close: func() {
			if err := db.Close(); err != nil {
				logger.Warn("sqlite close failed", "err", err)
			}
		}}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		var repoOpts []postgres.Option
		if cfg.ProjectedLeaderboard {
			repoOpts = append(repoOpts, postgres.WithProjectedTotals())
		}
		repo := postgres.NewRepository(pool, repoOpts...)

		if !cfg.OutboxEnabled {
			return &store{repo: repo, close: pool.Close}, nil
		}

		producer := outbox.NewKafkaProducer(outbox.ProducerConfig{Brokers: cfg.KafkaBrokers})
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(logger.WithPrefix("outbox")))
		go dispatcher.Start(ctx)

		return &store{repo: repo, close: func() {
			dispatcher.Wait()
			if err := producer.Close(); err != nil {
				logger.Warn("kafka producer close failed", "err", err)
			}
			pool.Close()
		}}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
