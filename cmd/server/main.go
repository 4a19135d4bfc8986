package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/memepulse/internal/app"
	"github.com/pscheid92/memepulse/internal/config"
	"github.com/pscheid92/memepulse/internal/domain"
	"github.com/pscheid92/memepulse/internal/extract"
	"github.com/pscheid92/memepulse/internal/fetchcache"
	"github.com/pscheid92/memepulse/internal/history"
	"github.com/pscheid92/memepulse/internal/lexicon"
	"github.com/pscheid92/memepulse/internal/logging"
	"github.com/pscheid92/memepulse/internal/redis"
	"github.com/pscheid92/memepulse/internal/score"
	"github.com/pscheid92/memepulse/internal/server"
	"github.com/pscheid92/memepulse/internal/source"
	"github.com/pscheid92/memepulse/internal/stage"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupHistory(cfg *config.Config, clock clockwork.Clock) (*history.Store, *history.SQLiteRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := history.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		slog.Error("Failed to open history database", "error", err)
		os.Exit(1)
	}

	records, err := repo.LoadAll(ctx)
	if err != nil {
		slog.Error("Failed to load history", "error", err)
		os.Exit(1)
	}

	store := history.NewStore(clock)
	store.Restore(records)
	slog.Info("History restored", "tickers", len(records))
	return store, repo
}

func setupRedis(cfg *config.Config) (*redis.Client, domain.SnapshotPublisher) {
	if cfg.RedisURL == "" {
		slog.Info("Redis not configured, snapshot publishing disabled")
		return nil, nil
	}

	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client, redis.NewPublisher(client)
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	store, repo := setupHistory(cfg, clock)
	defer func() { _ = repo.Close() }()

	redisClient, publisher := setupRedis(cfg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	cache := fetchcache.New(clock, fetchcache.Options{})
	fixtures := source.NewFileSource(cfg.FixtureDir)

	coordinator := app.NewCoordinator(
		clock,
		app.Options{
			Subreddits:     cfg.SubredditList(),
			UpdateInterval: cfg.UpdateInterval,
			CycleTimeout:   cfg.CycleTimeout,
			FetchTimeout:   cfg.FetchTimeout,
			MinPosts:       cfg.MinPosts,
			MinKarma:       cfg.MinKarma,
			EvictionWindow: time.Duration(cfg.EvictionWindowDays) * 24 * time.Hour,
			MaxConcurrent:  cfg.MaxConcurrentFetches,
			Weights:        cfg.Weights(),
			PostsTTL:       cfg.PostsTTL,
			BarsTTL:        cfg.BarsTTL,
			ShortTTL:       cfg.ShortTTL,
		},
		cache,
		app.Sources{Posts: fixtures, Bars: fixtures, Short: fixtures},
		store,
		repo,
		publisher,
		extract.New(extract.DefaultUniverse, extract.DefaultBlacklist),
		lexicon.NewScorer(),
		score.NewEstimator(cfg.LikelihoodPrior),
		stage.New(stage.DefaultThresholds(cfg.MinPosts)),
	)
	service := app.NewService(coordinator, cache)

	var srv *server.Server
	if redisClient != nil {
		srv = server.NewServer(cfg, service, redisClient)
	} else {
		// Pass nil explicitly to avoid a typed-nil interface.
		srv = server.NewServer(cfg, service, nil)
	}

	runCtx, stop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		coordinator.Run(runCtx)
	}()

	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stop()
		wg.Wait()
		close(done)
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
