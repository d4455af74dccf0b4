package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"wedding-planner/internal/config"
	"wedding-planner/internal/database"
	"wedding-planner/internal/handler"
	"wedding-planner/internal/logger"
	"wedding-planner/internal/metrics"
	"wedding-planner/internal/middleware"
	"wedding-planner/internal/planner"
	"wedding-planner/internal/queue"
	"wedding-planner/internal/repository"
	"wedding-planner/internal/router"
	queue_publisher "wedding-planner/internal/service"
)

// tokenSweepInterval controls how often expired refresh tokens are purged.
const tokenSweepInterval = 12 * time.Hour

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env vars
	cfg := config.Load()

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	guests := repository.NewGuestRepo(db)
	tables := repository.NewTableRepo(db)
	constraints := repository.NewConstraintRepo(db)
	assignments := repository.NewAssignmentRepo(db)

	publish := func(ctx context.Context, ev queue.SeatingOptimizedEvent) error {
		return queue_publisher.PublishSeatingOptimized(ctx, zl, ev)
	}
	runs := planner.NewManager(zl, publish)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	eventH := handler.NewEventHandler(events, guests, tables, constraints, assignments, runs)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(logger.Middleware(zl))
	e.Use(metrics.Middleware())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterEvents(e, eventH, cfg.JWTSecret, cacheMW)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := queue.StartSeatingConsumer(zl); err != nil {
			zl.Warn("seating consumer stopped", zap.Error(err))
		}
	}()

	// Periodically purge refresh tokens that expired long ago.
	go func() {
		t := time.NewTicker(tokenSweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := tokens.DeleteExpired(context.Background())
				if err != nil {
					zl.Warn("token sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					zl.Info("expired refresh tokens purged", zap.Int64("count", n))
				}
			}
		}
	}()

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	runs.Close() // waits for in-flight optimizations to stop
	zl.Info("stopped")
}
