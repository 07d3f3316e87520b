// Command sync-once runs a single CRM sync and exits. With -clinic it syncs
// one clinic regardless of its selected flag.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"dim_dashboard_backend/internal/adapters"
	clinicsrepo "dim_dashboard_backend/internal/clinics/repository"
	"dim_dashboard_backend/internal/crmsync"
	"dim_dashboard_backend/internal/scheduler"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/db"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/redislock"
	"dim_dashboard_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	clinicFlag := flag.String("clinic", "", "sync only this clinic id")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	deps := crmsync.Deps{Clinics: adapters.NewClinicSyncSource(clinicsrepo.New(pool))}
	if cfg.GetRedisURL() != "" {
		opt, err := scheduler.RedisOptions(cfg)
		if err != nil {
			log.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer func() { _ = rdb.Close() }()
		deps.Locker = redislock.NewLocker(rdb, "dim:")
	}

	sweeper := crmsync.NewModule(pool, cfg, deps, validator.New(), log).Sweeper()

	var result any
	if *clinicFlag != "" {
		clinicID, err := uuid.Parse(*clinicFlag)
		if err != nil {
			log.Error("invalid clinic id", "clinic", *clinicFlag)
			os.Exit(2)
		}
		result, err = sweeper.SyncOne(ctx, clinicID)
		if err != nil {
			log.Error("clinic sync failed", "clinic", clinicID, "error", err)
			os.Exit(1)
		}
	} else {
		result, err = sweeper.RunSweep(ctx)
		if err != nil {
			log.Error("sweep failed", "error", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
