// API binary: loads configuration, wires dependencies and serves HTTP.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/inspireboard/internal/app/assist"
	"github.com/marcelojr/inspireboard/internal/app/httpapi"
	"github.com/marcelojr/inspireboard/internal/app/leaderboard"
	"github.com/marcelojr/inspireboard/internal/app/nomination"
	"github.com/marcelojr/inspireboard/internal/app/sharecard"
	"github.com/marcelojr/inspireboard/internal/app/voting"
	"github.com/marcelojr/inspireboard/internal/app/web"
	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/antibot"
	"github.com/marcelojr/inspireboard/internal/platform/avatar"
	"github.com/marcelojr/inspireboard/internal/platform/clock"
	"github.com/marcelojr/inspireboard/internal/platform/config"
	"github.com/marcelojr/inspireboard/internal/platform/genai"
	"github.com/marcelojr/inspireboard/internal/platform/health"
	"github.com/marcelojr/inspireboard/internal/platform/ids"
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

	// One shared connection for the whole lifetime: pooling plus readiness.
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
		// Automatic migrations only when enabled, to avoid production surprises.
		if err := migrations.Run(db); err != nil {
			logger.Fatal("automatic migration failed", "err", err)
		}
	}

	// Redis carries the queue, counters, ticker and bot guard state.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", "err", err)
	}
	defer redisClient.Close()

	people := postgresstorage.NewPersonRepository(db)
	counter := redisstorage.NewCounter(redisClient, cfg.CounterKeyPrefix)
	queue := redisstorage.NewQueue(redisClient, cfg.QueueKeyPrefix)
	ticker := redisstorage.NewTicker(redisClient, cfg.TickerKey, 0)
	clockSystem := clock.NewSystemClock()
	idGen := ids.NewGenerator()

	cooldown := time.Duration(cfg.CooldownSeconds) * time.Second
	var guard domain.BotGuard = antibot.NewNoop()
	if cfg.BotGuardEnabled && cooldown > 0 {
		store := redisstorage.NewCooldownStore(redisClient, cfg.CooldownKeyPrefix, cooldown)
		guard = antibot.NewGuard(store, cooldown, clockSystem, logger.L())
	}

	genaiClient := genai.NewClient(cfg.GenAIBaseURL, cfg.GenAIModel, cfg.GenAIAPIKey)
	suggestCache := redisstorage.NewSuggestCache(redisClient, cfg.SuggestCachePrefix, 0)
	assistSvc := assist.NewService(genaiClient, suggestCache, logger.L())

	board := leaderboard.NewStore(people, cfg.LeaderboardLimit)
	votesSvc := voting.NewService(people, counter, queue, ticker, clockSystem, idGen, logger.L())
	nominations := nomination.NewManager(guard, assistSvc, votesSvc, board, clockSystem, idGen, logger.L())
	go nominations.Run(ctx, 5*time.Minute)

	cards := sharecard.NewRenderer(avatar.NewFetcher(cfg.AvatarBaseURL), cfg.SiteURL)

	// Warm the board so the first page view is served from a snapshot.
	if err := board.Refresh(ctx); err != nil {
		logger.Warn("initial leaderboard fetch failed", "err", err)
	}

	mux := http.NewServeMux()
	checker := health.NewChecker(sqlDB, redisClient)

	api := httpapi.New(board, nominations, votesSvc, assistSvc, people, cards, logger.L())
	api.Register(mux)
	frontend, err := web.New(board, nominations, votesSvc)
	if err != nil {
		logger.Fatal("template loading failed", "err", err)
	}
	frontend.Register(mux)
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("api listening", "addr", cfg.HTTPAddress)
	if err := http.ListenAndServe(cfg.HTTPAddress, mux); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
