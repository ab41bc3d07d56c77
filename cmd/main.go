package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/video-service/internal/auth"
	"github.com/fathima-sithara/video-service/internal/config"
	"github.com/fathima-sithara/video-service/internal/events"
	"github.com/fathima-sithara/video-service/internal/handlers"
	"github.com/fathima-sithara/video-service/internal/metrics"
	"github.com/fathima-sithara/video-service/internal/middleware"
	"github.com/fathima-sithara/video-service/internal/repository"
	service "github.com/fathima-sithara/video-service/internal/services"
	"github.com/fathima-sithara/video-service/internal/storage"
	"github.com/fathima-sithara/video-service/internal/thumbnails"
	"github.com/fathima-sithara/video-service/internal/utils"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file (empty for env only)")
	flag.Parse()

	// load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dev := cfg.App.Env == "development"

	// logger
	logger, err := utils.NewLogger(dev, cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	// video records
	repo, err := repository.Open(ctx, repository.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		ConnectTimeout:  cfg.ConnectTimeout,
		MongoURI:        cfg.Mongo.URI,
		MongoDatabase:   cfg.Mongo.Database,
		MongoCollection: cfg.Mongo.Collection,
		DynamoTable:     cfg.Dynamo.Table,
		DynamoRegion:    cfg.AWS.Region,
	})
	if err != nil {
		logger.Fatalf("database init: %v", err)
	}

	// S3 store behind a circuit breaker
	if err := storage.EnsureDir(cfg.App.AssetsRoot); err != nil {
		logger.Fatalf("assets dir: %v", err)
	}
	s3Store, err := storage.NewS3Store(ctx, cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint)
	if err != nil {
		logger.Fatalf("s3 init: %v", err)
	}
	store := storage.NewBreakerStore(s3Store, storage.BreakerConfig{
		MaxFailures: cfg.Breaker.MaxFailures,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
	}, logger)

	// upload events
	var pub events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Infow("publishing upload events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	thumbs := thumbnails.NewRegistry(cfg.Thumbnails.Capacity)
	thumbs.OnEvict(func(string) { metrics.ThumbnailEvictions.Inc() })

	// service
	vsvc := service.NewVideoService(repo, thumbs, store, pub, logger, service.Options{
		ThumbnailMaxBytes: cfg.Limits.ThumbnailMaxBytes,
		VideoMaxBytes:     cfg.Limits.VideoMaxBytes,
		PublicBaseURL:     cfg.PublicBaseURL(),
		AssetsRoot:        cfg.App.AssetsRoot,
		PresignTTL:        cfg.PresignTTL,
	})

	verifier, err := auth.NewJWTVerifier(cfg.JWT.Secret)
	if err != nil {
		logger.Fatalf("jwt init: %v", err)
	}

	// rate limiting for upload routes
	var uploadMw []fiber.Handler
	var rdb *redis.Client
	switch {
	case cfg.RateLimit.PerMinute <= 0:
	case cfg.Redis.Addr != "":
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			logger.Warnw("redis ping failed, limiter fails open until it recovers", "addr", cfg.Redis.Addr, "error", err)
		}
		cancel()
		uploadMw = append(uploadMw, middleware.NewRedisRateLimiter(rdb, cfg.RateLimit.Prefix, cfg.RateLimit.PerMinute, time.Minute, logger).Handler())
	default:
		rl := middleware.NewIPRateLimiter(cfg.RateLimit.PerMinute, 5, logger)
		go rl.RunSweeper(ctx)
		uploadMw = append(uploadMw, rl.Handler())
	}

	// fiber app & routes
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             int(cfg.Limits.VideoMaxBytes) + 1<<20,
		ErrorHandler:          utils.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))
	handlers.RegisterRoutes(app, handlers.NewHandler(verifier, vsvc), uploadMw...)

	// start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infow("starting video service", "addr", addr, "database", cfg.Database.Driver, "bucket", cfg.AWS.Bucket)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("listen failed: %v", err)
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	logger.Info("shutdown requested")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(timeoutCtx); err != nil {
		logger.Warnw("http shutdown", "error", err)
	}
	vsvc.Drain()
	if err := pub.Close(); err != nil {
		logger.Warnw("event publisher close", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := repo.Close(timeoutCtx); err != nil {
		logger.Warnw("database close", "error", err)
	}
	logger.Info("shutdown completed")
}
