package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/wordrace/internal/auth"
	"github.com/playperu/wordrace/internal/config"
	"github.com/playperu/wordrace/internal/database"
	"github.com/playperu/wordrace/internal/game"
	"github.com/playperu/wordrace/internal/handler/health"
	"github.com/playperu/wordrace/internal/migrations"
	"github.com/playperu/wordrace/internal/presence"
	"github.com/playperu/wordrace/internal/server"
	"github.com/playperu/wordrace/internal/store"
	"github.com/playperu/wordrace/internal/words"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "migrations_applied", applied)

	st := store.New(db)
	if n, err := st.CountWords(ctx); err == nil && n < cfg.WordsCount() {
		logger.Warn("dictionary is smaller than the configured layout", "words", n, "expected", cfg.WordsCount())
	}

	// --- Redis (optional word cache) ---
	checks := map[string]health.Checker{"sqlite": dbChecker{db}}
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		checks["redis"] = redisChecker{rdb}
		logger.Info("connected to redis")
	}

	// --- Game engine ---
	layout := words.Layout{
		WordsInUnit: cfg.WordsInUnit,
		UnitsInBook: cfg.UnitsInBook,
		Books:       cfg.BooksCount,
	}
	catalog := words.NewCatalog(layout, st, rdb, cfg.WordCacheTTL, logger)
	conns := presence.NewRegistry(logger, presence.ConnOptions{
		SendBuffer:     cfg.WSSendBuffer,
		WriteTimeout:   cfg.WSWriteTimeout,
		OriginPatterns: cfg.OriginPatterns(),
	})
	games := game.NewService(game.NewRegistry(), conns, catalog, st, game.Config{
		Session: game.SessionConfig{
			RoundDuration: cfg.RoundDuration,
			StartDelay:    cfg.StartDelay,
		},
		Rounds: cfg.RoundWords,
	}, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Store:     st,
		Tokens:    auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Presence:  conns,
		Games:     games,
		Catalog:   catalog,
		PublicURL: cfg.PublicURL,
		SPADir:    cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks, map[string]health.Gauge{
			"online_players": health.GaugeFunc(conns.Count),
			"active_games":   health.GaugeFunc(games.Games().Len),
		}).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
