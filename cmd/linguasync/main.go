package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linguasync/internal/cache"
	"linguasync/internal/config"
	"linguasync/internal/constants"
	"linguasync/internal/database"
	"linguasync/internal/retry"
	"linguasync/internal/service"
	"linguasync/internal/tracing"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", "config.json", "path to configuration file")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingConfig := tracing.DefaultConfig()
	tracingConfig.Enabled = cfg.Tracing.Enabled
	if cfg.Tracing.Endpoint != "" {
		tracingConfig.OTLPEndpoint = cfg.Tracing.Endpoint
		tracingConfig.UseStdout = false
	}
	if cfg.Tracing.ServiceName != "" {
		tracingConfig.ServiceName = cfg.Tracing.ServiceName
	}
	tracingManager := tracing.NewManager(tracingConfig, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	cacheStore := cache.NewRedisStore(redisClient)

	// Redis may still be coming up alongside us; retry the initial ping
	// with backoff before giving up.
	backoff := retry.NewBackoff(retry.DefaultBackoffConfig())
	err = backoff.Retry(ctx, func() error {
		if pingErr := cacheStore.Ping(ctx); pingErr != nil {
			logger.Warnf("Failed to reach redis at %s: %v", cfg.Redis.Addr, pingErr)
			return pingErr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis after retries: %w", err)
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	retryQueue := service.NewRetryQueueService(cacheStore, db, logger)
	mailbox := service.NewOfflineMailboxService(cacheStore, logger)
	deviceStates := service.NewDeviceStateTracker(cacheStore, logger)
	syncEngine := service.NewSyncEngine(cacheStore, db, deviceStates, logger)
	readStatus := service.NewReadStatusService(cacheStore, db, db, db, logger)

	sweepInterval := time.Duration(cfg.Retry.SweepIntervalMin) * time.Minute
	scheduler := service.NewScheduler(retryQueue, sweepInterval, logger)
	go scheduler.Start(ctx)
	defer scheduler.Stop()

	workers := service.NewWorkerPool(cfg.Sync.WorkerPoolSize, logger)
	workers.Start(ctx)
	defer workers.Stop()

	logger.WithFields(logrus.Fields{
		"redis": cfg.Redis.Addr,
		"db":    cfg.Database.Path,
	}).Info("Sync services initialized")

	server := NewServer(cfg, logger, Services{
		Mailbox:      mailbox,
		SyncEngine:   syncEngine,
		DeviceStates: deviceStates,
		ReadStatus:   readStatus,
		Workers:      workers,
		Cache:        cacheStore,
	})
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
