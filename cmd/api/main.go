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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/posrelay/api"
	"github.com/angelmondragon/posrelay/api/controllers"
	"github.com/angelmondragon/posrelay/api/routes"
	"github.com/angelmondragon/posrelay/internal/centres"
	"github.com/angelmondragon/posrelay/internal/sales"
	"github.com/angelmondragon/posrelay/pkg/config"
	"github.com/angelmondragon/posrelay/pkg/db"
	"github.com/angelmondragon/posrelay/pkg/instance"
	"github.com/angelmondragon/posrelay/pkg/logger"
	"github.com/angelmondragon/posrelay/pkg/metrics"
	"github.com/angelmondragon/posrelay/pkg/migrate"
	"github.com/angelmondragon/posrelay/pkg/redis"
)

const shutdownGrace = 10 * time.Second

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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
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

	centreSvc, err := centres.NewService(centres.NewRepository(redisClient), nil)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	relayMetrics := metrics.NewRelayMetrics(reg)

	params := sales.ServiceParams{
		Logger:       logg,
		Metrics:      relayMetrics,
		DrainTimeout: cfg.Relay.DrainTimeout,
	}

	var dbPinger controllers.Pinger
	switch cfg.Relay.Backend() {
	case config.QueueBackendPostgres:
		dbClient, dbErr := db.New(bootCtx, cfg.DB, logg)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			err = multierr.Append(err, dbClient.Close())
		}()
		if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
			return err
		}
		params.Store = sales.NewSQLStore(dbClient)
		params.Registrar = centreSvc
		dbPinger = dbClient
	default:
		params.Store = sales.NewRedisStore(redisClient)
	}

	salesSvc, err := sales.NewService(params)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(bootCtx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"instance":      instance.GetID(),
		"queue_backend": cfg.Relay.Backend(),
	})
	logg.Info(ctx, "starting api server")

	server := api.NewServer(addr, cfg, routes.NewRouter(routes.RouterParams{
		Config:   cfg,
		Logger:   logg,
		Redis:    redisClient,
		DB:       dbPinger,
		Centres:  centreSvc,
		Sales:    salesSvc,
		Metrics:  relayMetrics,
		Gatherer: reg,
	}))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
