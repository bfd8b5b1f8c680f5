// Package worker regenerates report files from the persisted ledger, on
// ledger change events and on a schedule.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"anwarfarm/internal/amqp"
	"anwarfarm/internal/ledger"
	applog "anwarfarm/internal/log"
	"anwarfarm/internal/report"
)

// ReportWorker writes CSV and XLSX exports of the whole ledger into a directory.
type ReportWorker struct {
	store  *ledger.Store
	dir    string
	logger *applog.Logger
	now    func() time.Time
	cron   *cron.Cron

	mu      sync.Mutex
	lastRun time.Time
}

// Option configures a ReportWorker.
type Option func(*ReportWorker)

func WithClock(now func() time.Time) Option {
	return func(w *ReportWorker) { w.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(w *ReportWorker) { w.logger = l }
}

// NewReportWorker reads the ledger through p, which is typically the same
// SQLite database the server writes.
func NewReportWorker(p ledger.Persister, dir string, opts ...Option) *ReportWorker {
	w := &ReportWorker{
		dir:  dir,
		now:  time.Now,
		cron: cron.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = applog.OrDiscard(w.logger).WithComponent(applog.ComponentReport)
	w.store = ledger.NewStore(p, ledger.WithLogger(w.logger))
	return w
}

// Regenerate reloads the ledger and rewrites the report files.
func (w *ReportWorker) Regenerate(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := w.now()
	count := w.store.Load(ctx)
	view := ledger.BuildView(w.store.Snapshot(), ledger.Filter{})

	paths, err := report.SaveFiles(w.dir, view, started)
	if err != nil {
		return paths, fmt.Errorf("regenerate reports: %w", err)
	}
	w.lastRun = started

	w.logger.InfoContext(ctx, "Reports regenerated",
		applog.FieldOperation, applog.OpExport,
		applog.FieldCount, count,
		"files", paths)
	return paths, nil
}

// HandleLedgerEvent regenerates reports unless a run already started after
// the event was published.
func (w *ReportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.mu.Lock()
	stale := !w.lastRun.IsZero() && !msg.Timestamp.IsZero() && w.lastRun.After(msg.Timestamp)
	w.mu.Unlock()
	if stale {
		w.logger.DebugContext(ctx, "Reports already newer than event",
			applog.FieldOperation, msg.Operation, applog.FieldTransactionID, msg.TransactionID)
		return nil
	}

	_, err := w.Regenerate(ctx)
	return err
}

// Schedule registers periodic regeneration, e.g. "@daily" or "@every 1h".
func (w *ReportWorker) Schedule(ctx context.Context, schedule string) error {
	_, err := w.cron.AddFunc(schedule, func() {
		if _, err := w.Regenerate(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled report run failed", applog.FieldError, err)
		}
	})
	if err != nil {
		return fmt.Errorf("register report schedule %q: %w", schedule, err)
	}
	w.logger.InfoContext(ctx, "Report schedule registered", "schedule", schedule)
	return nil
}

// Start runs the scheduler in the background.
func (w *ReportWorker) Start() {
	w.cron.Start()
}

// Stop halts the scheduler and waits for a running job.
func (w *ReportWorker) Stop() {
	<-w.cron.Stop().Done()
}

// LastRun returns when the last successful regeneration started.
func (w *ReportWorker) LastRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun
}
