package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dim_dashboard_backend/internal/adapters"
	"dim_dashboard_backend/internal/analytics"
	"dim_dashboard_backend/internal/auth"
	authsvc "dim_dashboard_backend/internal/auth/service"
	"dim_dashboard_backend/internal/clinics"
	"dim_dashboard_backend/internal/crmsync"
	"dim_dashboard_backend/internal/email"
	apphttp "dim_dashboard_backend/internal/http"
	"dim_dashboard_backend/internal/http/router"
	"dim_dashboard_backend/internal/roles"
	"dim_dashboard_backend/internal/scheduler"
	"dim_dashboard_backend/internal/users"
	usersvc "dim_dashboard_backend/internal/users/service"
	"dim_dashboard_backend/migrations"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/db"
	"dim_dashboard_backend/platform/firebase"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/redislock"
	"dim_dashboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := db.RunMigrations(ctx, pool, migrations.FS); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Firebase is optional locally; without it sign-in and onboarding answer 503.
	var (
		verifier authsvc.TokenVerifier
		accounts usersvc.Accounts
	)
	if cfg.IsFirebaseEnabled() {
		fb, err := firebase.NewClient(ctx, cfg.GetFirebaseCredentialsFile())
		if err != nil {
			log.Error("failed to initialize firebase", "error", err)
			panic("failed to initialize firebase: " + err.Error())
		}
		verifier = fb
		accounts = fb
	} else {
		log.Warn("FIREBASE_CREDENTIALS_FILE not configured; sign-in and onboarding disabled")
	}

	syncDeps, closeRedis := initSyncInfra(cfg, log)
	defer closeRedis()

	sender := email.NewSender(cfg)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	usersModule := users.NewModule(pool, cfg, accounts, sender, val, log)
	assignments := adapters.NewClinicAssignments(usersModule.Repository())

	clinicsModule := clinics.NewModule(pool, assignments, val, log)

	syncDeps.Clinics = adapters.NewClinicSyncSource(clinicsModule.Repository())
	syncDeps.Lifecycle = ctx
	syncModule := crmsync.NewModule(pool, cfg, syncDeps, val, log)

	analyticsModule := analytics.NewModule(pool, cfg, assignments, val, log)
	authModule := auth.NewModule(cfg, verifier, adapters.NewUserDirectory(usersModule.Repository()), val, log)
	rolesModule := roles.NewModule(pool, val, log)

	// Without Redis the sweep runs on an in-process ticker.
	if syncDeps.Enqueuer == nil {
		ticker := scheduler.NewSweepTicker(syncModule.Sweeper(), cfg.GetSyncInterval(), log)
		go ticker.Run(ctx)
		log.Info("in-process sync ticker started", "interval", cfg.GetSyncInterval())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewHealthChecker(pool),
		Modules: []apphttp.Module{
			authModule,
			clinicsModule,
			syncModule,
			analyticsModule,
			usersModule,
			rolesModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err, ok := <-srvErr:
		if ok && err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initSyncInfra wires the Redis-backed sweep lock and task client. Without
// REDIS_URL both stay nil and sync work runs in this process.
func initSyncInfra(cfg *config.Config, log *logger.Logger) (crmsync.Deps, func()) {
	deps := crmsync.Deps{}
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; sweeps run in-process without a distributed lock")
		return deps, func() {}
	}

	opt, err := scheduler.RedisOptions(cfg)
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	rdb := redis.NewClient(opt)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		_ = rdb.Close()
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}

	deps.Locker = redislock.NewLocker(rdb, "dim:")
	deps.Enqueuer = client

	return deps, func() {
		_ = client.Close()
		_ = rdb.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
