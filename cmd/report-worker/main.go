package main

import (
	"context"
	"errors"
	"os"
	"time"

	"anwarfarm/internal/backend"
	"anwarfarm/internal/cli"
	applog "anwarfarm/internal/log"
	"anwarfarm/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting report-worker", "dir", cfg.ReportDir, "schedule", cfg.ReportSchedule)

	// The worker only reads the ledger; the remote is the server's concern.
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	local, err := backend.NewFactory(logger).CreateLocal(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to open local storage", applog.FieldError, err)
		os.Exit(1)
	}
	defer local.Close()

	rw := worker.NewReportWorker(local.Persister, cfg.ReportDir, worker.WithLogger(logger))

	amqpClient, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		rw.Stop()
	})

	if _, err := rw.Regenerate(ctx); err != nil {
		logger.Error("Startup report run failed", applog.FieldError, err)
	}

	if cfg.ReportSchedule != "" {
		if err := rw.Schedule(ctx, cfg.ReportSchedule); err != nil {
			logger.Error("Invalid report schedule", applog.FieldError, err)
			os.Exit(1)
		}
	}
	rw.Start()

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLedgerEvents(ctx, rw.HandleLedgerEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger event consumption failed", applog.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP_URL not set, running on schedule only")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("report-worker stopped")
}
