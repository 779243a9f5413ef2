package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/nftennis/nftennis-backend/api/controllers"
	"github.com/nftennis/nftennis-backend/api/routes"
	"github.com/nftennis/nftennis-backend/internal/activity"
	"github.com/nftennis/nftennis-backend/internal/auctions"
	"github.com/nftennis/nftennis-backend/internal/auth"
	"github.com/nftennis/nftennis-backend/internal/cron"
	"github.com/nftennis/nftennis-backend/internal/marketplace"
	"github.com/nftennis/nftennis-backend/internal/metadata"
	"github.com/nftennis/nftennis-backend/internal/mint"
	"github.com/nftennis/nftennis-backend/internal/nfts"
	"github.com/nftennis/nftennis-backend/pkg/chain"
	"github.com/nftennis/nftennis-backend/pkg/config"
	"github.com/nftennis/nftennis-backend/pkg/db"
	"github.com/nftennis/nftennis-backend/pkg/instance"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/metrics"
	"github.com/nftennis/nftennis-backend/pkg/migrate"
	"github.com/nftennis/nftennis-backend/pkg/redis"
	"github.com/nftennis/nftennis-backend/pkg/storage/pinata"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pinClient, err := pinata.New(cfg.Pinata, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create pinata client", err)
		os.Exit(1)
	}
	pinClient.LogReady(context.Background(), logg)

	activityRepo := activity.NewRepository(dbClient.DB())
	recorder := activity.NewRecorder(activityRepo, logg)

	fetcher := metadata.NewFetcher(metadata.FetcherParams{
		HTTPClient: &http.Client{Timeout: cfg.Metadata.FetchTimeout},
		GatewayURL: cfg.Pinata.GatewayURL,
		Cache:      redisClient,
		CacheTTL:   cfg.Metadata.CacheTTL,
		MaxBytes:   cfg.Metadata.MaxBytes,
		Logger:     logg,
	})

	nftService, err := nfts.NewService(gateway, recorder, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create nft service", err)
		os.Exit(1)
	}
	auctionService, err := auctions.NewService(gateway, recorder, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auction service", err)
		os.Exit(1)
	}
	marketService, err := marketplace.NewService(gateway, fetcher, cfg.Metadata.Concurrency, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace service", err)
		os.Exit(1)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		Store:  redisClient,
		JWT:    cfg.JWT,
		SignIn: cfg.SignIn,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	mintPipeline, err := mint.NewPipeline(mint.PipelineParams{
		Pinner:   pinClient,
		Minter:   nftService,
		Operator: gateway.Operator(),
		Recorder: recorder,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create mint pipeline", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"contract": gateway.Address().Hex(),
		"operator": gateway.Operator().Hex(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Redis:       redisClient,
			Activity:    activityRepo,
			Auth:        authService,
			Marketplace: marketService,
			NFTs:        nftService,
			Auctions:    auctionService,
			Mint:        mintPipeline,
			Gatherer:    prometheus.DefaultGatherer,
			ReadyChecks: []controllers.ReadyCheck{
				{Name: "database", Pinger: dbClient},
				{Name: "redis", Pinger: redisClient},
				{Name: "rpc", Pinger: gateway},
				{Name: "pinata", Pinger: pinClient},
			},
		}),
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.FeatureFlags.EmbeddedSweeper {
		sweeper, err := cron.NewSweeper(cron.SweeperParams{
			Logger:         logg,
			Config:         cfg.Sweeper,
			Chain:          gateway,
			Store:          redisClient,
			LockKey:        redisClient.LockKey(cron.LockName, cfg.App.Env),
			Pins:           activityRepo,
			Recorder:       recorder,
			Metrics:        metrics.NewJobMetrics(prometheus.DefaultRegisterer),
			ReceiptTimeout: cfg.Chain.ReceiptTimeout,
		})
		if err != nil {
			logg.Error(ctx, "failed to create auction sweeper", err)
			os.Exit(1)
		}
		g.Go(func() error {
			if err := sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownGrace)
		defer cancel()
		logg.Info(ctx, "api server shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
