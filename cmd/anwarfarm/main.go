package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"anwarfarm/internal/auth"
	"anwarfarm/internal/cache"
	"anwarfarm/internal/cli"
	"anwarfarm/internal/connectivity"
	apphttp "anwarfarm/internal/http"
	"anwarfarm/internal/ledger"
	applog "anwarfarm/internal/log"
	"anwarfarm/internal/services"
)

const (
	viewCacheSize   = 64
	viewCacheTTL    = 5 * time.Minute
	cacheSweepEvery = time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	led, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", applog.FieldError, err)
		os.Exit(1)
	}
	defer led.Close()

	var online connectivity.Checker = connectivity.AlwaysOnline{}
	var monitor *connectivity.Monitor
	if cfg.ConnectivityProbeAddr != "" {
		monitor = connectivity.NewMonitor(cfg.ConnectivityProbeAddr, cfg.ConnectivityInterval, logger)
		if err := monitor.Start(ctx); err != nil {
			logger.Error("Failed to start connectivity monitor", applog.FieldError, err)
			os.Exit(1)
		}
		online = monitor
	}

	coord := services.NewSyncCoordinator(led.Store, led.Remote.Store, online, services.WithSyncLogger(logger))
	// The startup pull runs alongside serving; the local ledger answers until it lands.
	pullCtx, cancelPull := context.WithCancel(ctx)
	defer cancelPull()
	if coord.Enabled() {
		go coord.Pull(pullCtx)
	}

	var events services.EventPublisher
	amqpClient, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		logger.Warn("Change events disabled", applog.FieldError, err)
	} else if amqpClient != nil {
		defer amqpClient.Close()
		events = amqpClient
	}

	views := cache.NewLRUCache[ledger.View](viewCacheSize, viewCacheTTL)
	svc := services.NewLedgerService(led.Store, coord, events, views, logger)

	gate, err := auth.NewGate(cfg.AdminPassword, cfg.AdminPasswordHash, cfg.SessionTTL, auth.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to configure admin login", applog.FieldError, err)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	caches.Register(views)
	caches.Register(gate.Sessions())
	caches.StartCleanup(cacheSweepEvery)

	srv := apphttp.NewServer(":"+cfg.Port, svc, gate, logger,
		apphttp.WithReadiness(led.Local.Pinger),
		apphttp.WithSecureCookies(cfg.SecureCookies),
	)

	shutdownCtx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		cancelPull()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := coord.Wait(ctx); err != nil {
			logger.Warn("Pending remote pushes abandoned", applog.FieldError, err)
		}
		if monitor != nil {
			_ = monitor.Stop(ctx)
		}
		caches.Stop()
	})

	logger.Info("Starting anwarfarm server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.LocalBackend,
		"remote", cfg.RemoteBackend,
		applog.FieldCount, led.Store.Len())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
