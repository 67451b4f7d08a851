package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/posrelay/internal/cron"
	"github.com/angelmondragon/posrelay/internal/sales"
	"github.com/angelmondragon/posrelay/pkg/config"
	"github.com/angelmondragon/posrelay/pkg/db"
	"github.com/angelmondragon/posrelay/pkg/instance"
	"github.com/angelmondragon/posrelay/pkg/logger"
	"github.com/angelmondragon/posrelay/pkg/metrics"
	"github.com/angelmondragon/posrelay/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	redisClient, err := redis.New(bootCtx, cfg.Redis, cfg.Relay.KeyNamespace, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	var store sales.Store = sales.NewRedisStore(redisClient)
	if cfg.Relay.Backend() == config.QueueBackendPostgres {
		dbClient, dbErr := db.New(bootCtx, cfg.DB, logg)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			err = multierr.Append(err, dbClient.Close())
		}()
		store = sales.NewSQLStore(dbClient)
	}

	salesSvc, err := sales.NewService(sales.ServiceParams{Store: store, Logger: logg})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(reg)

	depthJob, err := cron.NewQueueDepthJob(cron.QueueDepthJobParams{
		Logger:  logg,
		Centres: redisClient,
		Queue:   salesSvc,
		Gauge:   jobMetrics,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL, cron.WithHolder(instance.GetID()))
	if err != nil {
		return err
	}

	registry, err := cron.NewRegistry(depthJob)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    jobMetrics,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Cron.MetricsPort,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if serveErr := metricsServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", serveErr)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, metricsServer.Shutdown(shutdownCtx))
	}()

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}
