package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nftennis/nftennis-backend/internal/activity"
	"github.com/nftennis/nftennis-backend/internal/cron"
	"github.com/nftennis/nftennis-backend/pkg/chain"
	"github.com/nftennis/nftennis-backend/pkg/config"
	"github.com/nftennis/nftennis-backend/pkg/db"
	"github.com/nftennis/nftennis-backend/pkg/instance"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/metrics"
	"github.com/nftennis/nftennis-backend/pkg/migrate"
	"github.com/nftennis/nftennis-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "auction-sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "auction-sweeper"

	logg = logger.New(logger.Options{
		ServiceName: "auction-sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, rpcClient, err := chain.Dial(context.Background(), cfg.Chain, metrics.NewChainMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		logg.Error(context.Background(), "failed to connect to chain", err)
		os.Exit(1)
	}
	defer rpcClient.Close()

	activityRepo := activity.NewRepository(dbClient.DB())
	service, err := cron.NewSweeper(cron.SweeperParams{
		Logger:         logg,
		Config:         cfg.Sweeper,
		Chain:          gateway,
		Store:          redisClient,
		LockKey:        redisClient.LockKey(cron.LockName, cfg.App.Env),
		Pins:           activityRepo,
		Recorder:       activity.NewRecorder(activityRepo, logg),
		Metrics:        metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		ReceiptTimeout: cfg.Chain.ReceiptTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auction sweeper", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"operator":    gateway.Operator().Hex(),
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "sweep cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting auction sweeper")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "auction sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "auction sweeper shutting down gracefully")
}
