package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/netplay-club/internal/board"
	"github.com/iliyamo/netplay-club/internal/config"
	"github.com/iliyamo/netplay-club/internal/database"
	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/handler"
	"github.com/iliyamo/netplay-club/internal/live"
	"github.com/iliyamo/netplay-club/internal/logger"
	"github.com/iliyamo/netplay-club/internal/metrics"
	"github.com/iliyamo/netplay-club/internal/middleware"
	"github.com/iliyamo/netplay-club/internal/ranking"
	"github.com/iliyamo/netplay-club/internal/repository"
	"github.com/iliyamo/netplay-club/internal/roster"
	"github.com/iliyamo/netplay-club/internal/router"
	"github.com/iliyamo/netplay-club/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	// Redis is mandatory only as the document store.
	rdb, err := config.NewRedisClient()
	if err != nil {
		if cfg.StoreBackend == "redis" {
			log.Error("redis unavailable", slog.Any("error", err))
			os.Exit(1)
		}
		log.Warn("redis unavailable; rate limit and cache disabled", slog.Any("error", err))
	}

	var store docstore.Store
	storeOpts := []docstore.Option{docstore.WithMaxRetries(cfg.StoreTxRetries), docstore.WithMetrics(m)}
	if cfg.StoreBackend == "redis" {
		store = docstore.NewRedis(rdb, cfg.StoreNamespace, storeOpts...)
	} else {
		log.Warn("using in-memory document store; state is lost on restart")
		store = docstore.NewMemory(storeOpts...)
	}

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("mysql unavailable", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	logs := repository.NewParticipationLogRepo(db)
	meetings := repository.NewMeetingRepo(db)
	events := service.NewEventPublisher(cfg.RabbitURL, log.With(slog.String("component", "events")), m)

	mgr := roster.NewManager(store, logs, meetings, events,
		roster.WithLogger(log.With(slog.String("component", "roster"))),
		roster.WithMetrics(m),
		roster.WithLocation(cfg.Timezone),
	)
	ctrl := board.NewController(store, events,
		board.WithCourtCount(cfg.CourtCount),
		board.WithLogger(log.With(slog.String("component", "board"))),
		board.WithMetrics(m),
	)
	if err := ctrl.EnsureCourts(ctx); err != nil {
		log.Error("court setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	hub := live.NewHub(store, m, log.With(slog.String("component", "live")))

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(log))

	deps := router.Deps{
		JWTSecret: cfg.JWTSecret,
		Health:    handler.Health(healthChecks(db, rdb)),
		Metrics:   metrics.Handler(reg),
		Session: &handler.SessionHandler{
			Secret:       cfg.JWTSecret,
			TTL:          cfg.IdentityTTL,
			PasscodeHash: cfg.AdminPasscodeHash,
			Log:          log,
		},
		Polls:    handler.NewPollHandler(mgr, hub, cfg.AppURL, log),
		Board:    handler.NewBoardHandler(ctrl, hub, log),
		Meetings: handler.NewMeetingHandler(meetings, cfg.Timezone, log),
		Ranking:  &handler.RankingHandler{Ranking: ranking.NewService(logs, cfg.Timezone), Log: log},
	}
	if rdb != nil {
		deps.RateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
		deps.Cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log)
		defer rdb.Close()
	}
	router.Register(e, deps)

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env),
			slog.String("store", cfg.StoreBackend), slog.Int("courts", ctrl.CourtCount()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", slog.Any("error", err))
	}
}

func healthChecks(db *sql.DB, rdb *redis.Client) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"mysql": db.PingContext}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}
