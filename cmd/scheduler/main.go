package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dim_dashboard_backend/internal/adapters"
	clinicsrepo "dim_dashboard_backend/internal/clinics/repository"
	"dim_dashboard_backend/internal/crmsync"
	"dim_dashboard_backend/internal/scheduler"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/db"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/metrics"
	"dim_dashboard_backend/platform/redislock"
	"dim_dashboard_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "cron", cfg.GetSyncCron())

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the scheduler; use the api's in-process ticker instead")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	opt, err := scheduler.RedisOptions(cfg)
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	rdb := redis.NewClient(opt)
	defer func() { _ = rdb.Close() }()

	// Worker-side sync wiring (no HTTP handlers required).
	syncModule := crmsync.NewModule(pool, cfg, crmsync.Deps{
		Clinics: adapters.NewClinicSyncSource(clinicsrepo.New(pool)),
		Locker:  redislock.NewLocker(rdb, "dim:"),
	}, validator.New(), log)

	periodic, err := scheduler.NewPeriodic(cfg, cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic sweep", "error", err)
		panic("failed to initialize periodic sweep: " + err.Error())
	}
	go periodic.Run(ctx)

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, log)
	}

	worker, err := scheduler.NewWorker(cfg, syncModule.Sweeper(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func serveMetrics(ctx context.Context, addr string, log *logger.Logger) {
	engine := gin.New()
	engine.GET("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server stopped", "error", err)
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
