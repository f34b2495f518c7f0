package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-seating/internal/cache"
	"github.com/iliyamo/exam-seating/internal/config"
	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/handler"
	"github.com/iliyamo/exam-seating/internal/lock"
	"github.com/iliyamo/exam-seating/internal/logger"
	"github.com/iliyamo/exam-seating/internal/middleware"
	"github.com/iliyamo/exam-seating/internal/queue"
	"github.com/iliyamo/exam-seating/internal/repository"
	"github.com/iliyamo/exam-seating/internal/router"
	"github.com/iliyamo/exam-seating/internal/service"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.RunMigrations(db, zl); err != nil {
			zl.Fatal("migrations failed", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	} else {
		zl.Warn("redis unavailable: using in-process exam lock, cache and rate limit disabled")
	}

	var locker lock.Locker = lock.NewLocal()
	if rdb != nil {
		locker = lock.NewRedis(rdb, "", cfg.Lock.TTL, cfg.Lock.Wait)
	}

	deps := service.Deps{
		Exams:       repository.NewExamRepo(db),
		Venues:      repository.NewVenueRepo(db),
		Students:    repository.NewStudentRepo(db),
		Allocations: repository.NewAllocationRepo(db),
		Cache:       cache.New(rdb, cfg.Cache.Prefix, cfg.Cache.TTL, cfg.Cache.Enabled),
		Locker:      locker,
		Logger:      zl,
	}
	if cfg.Queue.URL != "" {
		deps.Events = service.NewAMQPPublisher(cfg.Queue.URL, zl)
	}
	svc := service.NewSeatingService(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Queue.URL != "" && cfg.Queue.ConsumerEnabled {
		c := &queue.Consumer{URL: cfg.Queue.URL, LogPath: queue.DefaultLogPath, Logger: zl}
		go func() {
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("seating consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.Logger(zl))
	router.RegisterRoutes(e, router.Deps{
		Seating:      handler.NewSeatingHandler(svc, zl),
		Ready:        handler.Ready(db, rdb),
		JWTSecret:    cfg.JWTSecret,
		WriteLimiter: middleware.NewTokenBucket(cfg.RateLimit, rdb, zl),
	})

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown failed", zap.Error(err))
	}
}
