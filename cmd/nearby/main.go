package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/nearby/internal/config"
	"github.com/vbonduro/nearby/internal/db"
	"github.com/vbonduro/nearby/internal/imagestore/local"
	"github.com/vbonduro/nearby/internal/lifecycle"
	"github.com/vbonduro/nearby/internal/location"
	"github.com/vbonduro/nearby/internal/location/replay"
	"github.com/vbonduro/nearby/internal/logging"
	"github.com/vbonduro/nearby/internal/notify"
	"github.com/vbonduro/nearby/internal/notify/logsink"
	"github.com/vbonduro/nearby/internal/notify/redisnotify"
	"github.com/vbonduro/nearby/internal/proximity"
	"github.com/vbonduro/nearby/internal/service"
	"github.com/vbonduro/nearby/internal/store"
	"github.com/vbonduro/nearby/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("nearby exited with error", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	imageFiles, err := local.New(cfg.ImagePath, logger)
	if err != nil {
		return err
	}

	sink, closeSink := newSink(cfg, logger)
	defer closeSink()

	// The push source always backs POST /api/location; a replay file only
	// replaces what the engine subscribes to.
	pushSource := location.NewPushSource(cfg.LocationGranted())
	source, err := newLocationSource(cfg, pushSource, logger)
	if err != nil {
		return err
	}

	engine := proximity.New(proximity.Config{
		Threshold:   cfg.ProximityThreshold,
		SinkTimeout: cfg.NotifyTimeout,
		Location: location.Options{
			MinInterval: cfg.LocationMinInterval,
			MinDistance: cfg.LocationMinDistance,
		},
	}, logger)

	pointService := service.NewPointService(
		store.NewPointStore(database),
		store.NewImageStore(database),
		imageFiles,
		engine,
		logger,
	)
	app := lifecycle.NewController(engine, source, pointService, sink, logger)

	// The process starts in the foreground.
	if err := app.SetState(ctx, lifecycle.StateActive); err != nil {
		logger.Error("failed to start proximity engine", "error", err)
	}

	server := web.NewServer(pointService, pushSource, app, engine, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Clear every live notification before the sink goes away.
		return app.SetState(context.WithoutCancel(gctx), lifecycle.StateInactive)
	})
	return g.Wait()
}

func newSink(cfg *config.Config, logger *slog.Logger) (notify.Sink, func()) {
	if cfg.NotifyBackend != config.NotifyRedis {
		logger.Info("using log notification sink")
		return logsink.New(logger), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	logger.Info("using redis notification sink", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	return redisnotify.New(client, cfg.RedisChannel), func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}
}

func newLocationSource(cfg *config.Config, push *location.PushSource, logger *slog.Logger) (location.Source, error) {
	if cfg.ReplayFile == "" {
		return push, nil
	}
	src, err := replay.Open(cfg.ReplayFile, cfg.ReplaySpeed, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("replaying location track", "file", cfg.ReplayFile, "speed", cfg.ReplaySpeed)
	return src, nil
}
