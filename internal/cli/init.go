// Package cli provides the initialization shared by cmd/anwarfarm,
// cmd/report-worker and cmd/ledgerctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"anwarfarm/internal/amqp"
	"anwarfarm/internal/backend"
	"anwarfarm/internal/config"
	"anwarfarm/internal/ledger"
	applog "anwarfarm/internal/log"
)

// SetupLogger builds a text logger at the given level and makes it the
// process default.
func SetupLogger(level string) *applog.Logger {
	lvl := applog.ParseLevel(level)
	logger := applog.New(applog.Config{
		Level:   lvl,
		Handler: slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Ledger is a loaded local ledger with its configured remote.
type Ledger struct {
	Store  *ledger.Store
	Local  *backend.LocalResult
	Remote *backend.RemoteResult
}

// OpenLedger builds both backends and loads the local ledger.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Ledger, error) {
	factory := backend.NewFactory(logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}

	local, err := factory.CreateLocal(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	rem, err := factory.CreateRemote(ctx, bcfg)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("create remote store: %w", err)
	}

	store := ledger.NewStore(local.Persister, ledger.WithLogger(logger))
	store.Load(ctx)
	return &Ledger{Store: store, Local: local, Remote: rem}, nil
}

// Close releases both backends.
func (l *Ledger) Close() error {
	return errors.Join(l.Remote.Close(), l.Local.Close())
}

// ConnectAMQP dials the broker when AMQP_URL is set. It returns nil, nil when
// event publishing is not configured.
func ConnectAMQP(cfg *config.Config, logger *applog.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then
// runs cleanup with a deadline of timeout. done closes once cleanup returns.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
