// Async worker: consumes accepted votes from the queue, persists the audit
// trail and keeps counters, the ticker and metrics current.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/inspireboard/internal/app/worker"
	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/clock"
	"github.com/marcelojr/inspireboard/internal/platform/config"
	"github.com/marcelojr/inspireboard/internal/platform/health"
	"github.com/marcelojr/inspireboard/internal/platform/logger"
	"github.com/marcelojr/inspireboard/internal/platform/migrations"
	postgresstorage "github.com/marcelojr/inspireboard/internal/platform/storage/postgres"
	redisstorage "github.com/marcelojr/inspireboard/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// The worker shares the GORM connection setup with the API so both run
	// against the same schema and models.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("postgres connection failed", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("could not access sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		// Same conditional migration as the API, keeping schemas in step.
		if err := migrations.Run(db); err != nil {
			logger.Fatal("automatic migration failed", "err", err)
		}
	}

	// Redis is mandatory here: queue, counters and ticker live on it.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", "err", err)
	}
	defer redisClient.Close()

	counter := redisstorage.NewCounter(redisClient, cfg.CounterKeyPrefix)
	queue := redisstorage.NewQueue(redisClient, cfg.QueueKeyPrefix)
	ticker := redisstorage.NewTicker(redisClient, cfg.TickerKey, 0)
	clockSystem := clock.NewSystemClock()
	checker := health.NewChecker(sqlDB, redisClient)

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			// Observability keeps running while the main goroutine consumes.
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/readyz", checker.ReadyHandler())
			logger.Info("worker metrics listening", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("worker metrics server error", "err", err)
			}
		}()
	}

	votesRepo := postgresstorage.NewVoteRepository(db)
	processor := worker.NewVoteProcessor(votesRepo, counter, ticker, clockSystem)

	logger.Info("worker started, waiting for votes")
	err = queue.ConsumeVotes(ctx, func(ctx context.Context, vote domain.Vote) error {
		// One vote at a time keeps the simple-queue semantics.
		if err := processor.Process(ctx, vote); err != nil {
			logger.Error("vote processing failed", "vote", vote.ID, "err", err)
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker stopped with error", "err", err)
	}

	logger.Info("worker stopped")
}
