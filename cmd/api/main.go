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

	"github.com/angelmondragon/condo-backend/api/routes"
	"github.com/angelmondragon/condo-backend/internal/maintenance"
	"github.com/angelmondragon/condo-backend/internal/memberships"
	"github.com/angelmondragon/condo-backend/internal/units"
	"github.com/angelmondragon/condo-backend/internal/users"
	"github.com/angelmondragon/condo-backend/internal/water"
	"github.com/angelmondragon/condo-backend/pkg/config"
	"github.com/angelmondragon/condo-backend/pkg/db"
	"github.com/angelmondragon/condo-backend/pkg/instance"
	"github.com/angelmondragon/condo-backend/pkg/logger"
	"github.com/angelmondragon/condo-backend/pkg/metrics"
	"github.com/angelmondragon/condo-backend/pkg/migrate"
	"github.com/angelmondragon/condo-backend/pkg/outbox"
	"github.com/angelmondragon/condo-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	gdb := dbClient.DB()
	maintenanceRepo := maintenance.NewRepository(gdb)

	unitService, err := units.NewService(
		dbClient,
		units.NewRepository(gdb),
		memberships.NewRepository(gdb),
		users.NewRepository(gdb),
		maintenanceRepo,
		outbox.NewService(outbox.NewRepository(gdb), logg),
		logg,
		units.WithCodeLength(cfg.Units.CodeLength),
		units.WithObserver(metrics.NewUnitMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create unit service", err)
		os.Exit(1)
	}

	maintenanceService, err := maintenance.NewService(dbClient, maintenanceRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create maintenance service", err)
		os.Exit(1)
	}

	waterService, err := water.NewService(dbClient, water.NewRepository(gdb), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create water service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(cfg.Service.Kind),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, prometheus.DefaultGatherer, routes.Services{
			Units:       unitService,
			Maintenance: maintenanceService,
			Water:       waterService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server stopped")
}
