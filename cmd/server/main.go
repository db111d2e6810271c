package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/ShortURL/config"
	"github.com/sifan077/ShortURL/internal/app/cache"
	"github.com/sifan077/ShortURL/internal/app/encoder"
	appmodel "github.com/sifan077/ShortURL/internal/app/model"
	apprepository "github.com/sifan077/ShortURL/internal/app/repository"
	appserver "github.com/sifan077/ShortURL/internal/app/server"
	appservice "github.com/sifan077/ShortURL/internal/app/service"
	"github.com/sifan077/ShortURL/internal/infra/logger"
	infraNATS "github.com/sifan077/ShortURL/internal/infra/nats"
	infraPostgres "github.com/sifan077/ShortURL/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/ShortURL/internal/infra/prometheus"
	infraRedis "github.com/sifan077/ShortURL/internal/infra/redis"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.MustInit(logger.FromApp(cfg.App))
	defer func() { _ = logger.Sync() }()

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("clicks_mode", cfg.Clicks.Mode),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	enc, err := encoder.New(encoder.Config{Salt: cfg.Shortener.Salt, MinLength: cfg.Shortener.MinLength})
	if err != nil {
		log.Fatal("Failed to build encoder", zap.Error(err))
	}

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.ShortURL{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient, err = infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Connected to Redis successfully")
	}

	var shortURLCache cache.Cache[appmodel.ReadShortURL]
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		shortURLCache = cache.NewRedis[appmodel.ReadShortURL](redisClient, nil)
	default:
		shortURLCache = cache.NewMemory[appmodel.ReadShortURL](cache.WithCleanupInterval(cfg.Cache.CleanupInterval))
	}

	repo := apprepository.NewCachedShortURLRepository(
		apprepository.NewShortURLRepository(gormDB),
		shortURLCache,
		apprepository.CachePolicy{
			KeyPrefix:   cfg.Cache.KeyPrefix,
			AbsoluteTTL: cfg.Cache.AbsoluteTTL,
			SlidingTTL:  cfg.Cache.SlidingTTL,
			NegativeTTL: cfg.Cache.NegativeTTL,
		},
		log.Named("cache"),
	)

	g, gctx := errgroup.WithContext(ctx)

	opts := []appservice.Option{appservice.WithClickTimeout(cfg.Clicks.Timeout)}
	if cfg.Clicks.Mode == config.ClickModeNATS {
		natsConn, js, err := infraNATS.Connect(cfg.NATS, log.Named("nats"))
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()
		log.Info("Connected to NATS successfully")

		if err := appservice.EnsureStream(js); err != nil {
			log.Fatal("Failed to prepare click stream", zap.Error(err))
		}
		opts = append(opts, appservice.WithClickRecorder(appservice.NewClickPublisher(js)))

		consumer := appservice.NewClickConsumer(js, log.Named("clicks"), repo, cfg.Clicks.Timeout)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	svc := appservice.NewShorteningService(repo, enc, log.Named("shortener"), opts...)

	deps := appserver.Dependencies{
		Logger:    log,
		Config:    cfg.HTTP,
		RateLimit: cfg.RateLimit,
		Shortener: svc,
		Postgres:  pool,
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}
	server := appserver.New(deps)

	g.Go(func() error {
		log.Info("Starting HTTP server", zap.String("addr", cfg.HTTP.Addr()))
		return server.Listen(cfg.HTTP.Addr())
	})

	if cfg.Prometheus.Enabled {
		g.Go(func() error {
			return infraPrometheus.Serve(gctx, cfg.Prometheus, log)
		})
	} else {
		log.Info("Prometheus metrics server disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shut down HTTP server", zap.Error(err))
		}
		svc.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server stopped")
}
