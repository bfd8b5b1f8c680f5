// Package services orchestrates ledger mutations across local storage, change
// events and the remote document.
package services

import (
	"context"
	"fmt"

	"anwarfarm/internal/amqp"
	"anwarfarm/internal/cache"
	"anwarfarm/internal/core"
	"anwarfarm/internal/ledger"
	applog "anwarfarm/internal/log"
)

// EventPublisher announces ledger changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// Summary is the whole-ledger aggregate shown on the dashboard cards.
type Summary struct {
	Totals core.Totals `json:"totals"`
	Split  core.Split  `json:"split"`
	Count  int         `json:"count"`
}

// LedgerService saves to the local ledger first, then publishes a change event
// and schedules a remote push. Only the local save decides the outcome.
type LedgerService struct {
	store  *ledger.Store
	sync   *SyncCoordinator
	events EventPublisher
	views  *cache.LRUCache[ledger.View]
	logger *applog.Logger
	audit  *applog.StructuredLogger
}

// NewLedgerService wires the service. events and views may be nil; a nil
// coordinator means syncing is disabled.
func NewLedgerService(store *ledger.Store, sync *SyncCoordinator, events EventPublisher, views *cache.LRUCache[ledger.View], logger *applog.Logger) *LedgerService {
	logger = applog.OrDiscard(logger)
	if sync == nil {
		sync = NewSyncCoordinator(store, nil, nil, WithSyncLogger(logger))
	}
	return &LedgerService{
		store:  store,
		sync:   sync,
		events: events,
		views:  views,
		logger: logger.WithComponent(applog.ComponentLedger),
		audit:  applog.NewStructuredLogger(logger),
	}
}

// Create validates in and adds a transaction. applied is false for guests.
func (s *LedgerService) Create(ctx context.Context, role core.Role, in core.TransactionInput) (core.Transaction, bool, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, false, fmt.Errorf("create transaction: %w", err)
	}
	tx, applied := s.store.Create(ctx, role, in)
	if applied {
		s.afterMutation(ctx, role, applog.OpCreate, tx)
	}
	return tx, applied, nil
}

// Update validates in and replaces the transaction's fields. applied is false
// for guests and unknown ids.
func (s *LedgerService) Update(ctx context.Context, role core.Role, id string, in core.TransactionInput) (core.Transaction, bool, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, false, fmt.Errorf("update transaction: %w", err)
	}
	tx, applied := s.store.Update(ctx, role, id, in)
	if applied {
		s.afterMutation(ctx, role, applog.OpUpdate, tx)
	}
	return tx, applied, nil
}

// Delete removes a transaction. applied is false for guests and unknown ids.
func (s *LedgerService) Delete(ctx context.Context, role core.Role, id string) bool {
	existing, _ := s.store.Get(id)
	applied := s.store.Delete(ctx, role, id)
	if applied {
		s.afterMutation(ctx, role, applog.OpDelete, existing)
	}
	return applied
}

func (s *LedgerService) afterMutation(ctx context.Context, role core.Role, op string, tx core.Transaction) {
	s.audit.LogMutation(ctx, op, tx.ID, tx.Description, tx.Income, tx.Outcome)
	s.publish(ctx, op, tx.ID)
	s.sync.SchedulePush(role)
}

func (s *LedgerService) publish(ctx context.Context, op, id string) {
	if s.events == nil {
		return
	}
	msg := amqp.NewLedgerEventMessage(op, id, s.store.Len())
	if err := s.events.PublishLedgerEvent(ctx, msg); err != nil {
		// The mutation is already saved locally.
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			applog.FieldOperation, op, applog.FieldTransactionID, id, applog.FieldError, err)
	}
}

// Snapshot returns a copy of the ledger.
func (s *LedgerService) Snapshot() []core.Transaction {
	return s.store.Snapshot()
}

// Get looks up one transaction.
func (s *LedgerService) Get(id string) (core.Transaction, bool) {
	return s.store.Get(id)
}

// View returns the filtered display list with whole-ledger running balances.
func (s *LedgerService) View(f ledger.Filter) ledger.View {
	if s.views == nil {
		return ledger.BuildView(s.store.Snapshot(), f)
	}
	key := viewKey(s.store.Version(), f)
	if v, ok := s.views.Get(key); ok {
		return v
	}
	v := ledger.BuildView(s.store.Snapshot(), f)
	s.views.Set(key, v)
	return v
}

// Summary aggregates the whole ledger.
func (s *LedgerService) Summary() Summary {
	records := s.store.Snapshot()
	totals := ledger.Totals(records)
	return Summary{Totals: totals, Split: ledger.SplitOf(totals), Count: len(records)}
}

// Trend returns the last TrendWindow date buckets of the records passing f.
func (s *LedgerService) Trend(f ledger.Filter) []core.TrendBucket {
	records := s.store.Snapshot()
	if f.Active() {
		records = ledger.Apply(records, f)
	}
	return ledger.Trend(records, ledger.TrendWindow)
}

// Sync exposes the coordinator for status and manual pulls.
func (s *LedgerService) Sync() *SyncCoordinator {
	return s.sync
}

func viewKey(version uint64, f ledger.Filter) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s", version, f.Search, f.Type, f.Start, f.End)
}
