// Package ledger holds the authoritative transaction set and the pure
// functions that derive balances, filtered views and aggregates from it.
package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"anwarfarm/internal/core"
	applog "anwarfarm/internal/log"
)

// Persister is the local durable copy of the ledger blob.
// Load returns nil bytes and no error when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// Store owns the ledger collection. All operations are atomic with respect to
// each other; readers only ever see copies.
type Store struct {
	mu          sync.RWMutex
	records     []core.Transaction
	persister   Persister
	logger      *applog.Logger
	newID       func() string
	now         func() time.Time
	lastCreated int64
	version     uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the store logger.
func WithLogger(l *applog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store. Call Load to restore the persisted ledger.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = applog.OrDiscard(s.logger).WithComponent(applog.ComponentLedger)
	return s
}

// Load restores the ledger from local storage. A missing or unparsable blob
// leaves the ledger empty; the problem is logged, never returned.
func (s *Store) Load(ctx context.Context) int {
	blob, err := s.persister.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read local ledger", applog.FieldError, err)
		s.set(nil)
		return 0
	}
	if len(blob) == 0 {
		s.set(nil)
		return 0
	}
	var records []core.Transaction
	if err := json.Unmarshal(blob, &records); err != nil {
		s.logger.WarnContext(ctx, "Discarding malformed local ledger", applog.FieldError, err)
		s.set(nil)
		return 0
	}
	if n := core.CountRounded(records); n > 0 {
		s.logger.WarnContext(ctx, "Rounded fractional amounts in local ledger", applog.FieldCount, n)
	}
	s.set(records)
	s.logger.InfoContext(ctx, "Ledger loaded", applog.FieldCount, len(records))
	return len(records)
}

// Snapshot returns a copy of the ledger in insertion order.
func (s *Store) Snapshot() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version changes whenever the ledger contents change. Derived views can be
// cached against it.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Get looks up a record by id.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], true
	}
	return core.Transaction{}, false
}

// ReplaceAll substitutes the whole ledger and persists it.
func (s *Store) ReplaceAll(ctx context.Context, records []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(records)
	s.changedLocked(ctx, applog.OpReplace)
}

// Create appends a new record built from in. Non-admin callers get applied=false.
func (s *Store) Create(ctx context.Context, role core.Role, in core.TransactionInput) (core.Transaction, bool) {
	if !role.IsAdmin() {
		return core.Transaction{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := core.Transaction{ID: s.newID(), CreatedAt: s.stampLocked()}.Apply(in)
	s.records = append(s.records, tx)
	s.changedLocked(ctx, applog.OpCreate)
	return tx, true
}

// Update replaces the mutable fields of the record with the given id.
// Unknown ids and non-admin callers are no-ops.
func (s *Store) Update(ctx context.Context, role core.Role, id string, in core.TransactionInput) (core.Transaction, bool) {
	if !role.IsAdmin() {
		return core.Transaction{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, false
	}
	s.records[i] = s.records[i].Apply(in)
	s.changedLocked(ctx, applog.OpUpdate)
	return s.records[i], true
}

// Delete removes the record with the given id. Unknown ids and non-admin callers are no-ops.
func (s *Store) Delete(ctx context.Context, role core.Role, id string) bool {
	if !role.IsAdmin() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	s.changedLocked(ctx, applog.OpDelete)
	return true
}

func (s *Store) set(records []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(records)
	s.version++
}

func (s *Store) setLocked(records []core.Transaction) {
	s.records = make([]core.Transaction, len(records))
	copy(s.records, records)
	for _, r := range s.records {
		if r.CreatedAt > s.lastCreated {
			s.lastCreated = r.CreatedAt
		}
	}
}

// stampLocked returns a createdAt strictly greater than any seen so far,
// so same-millisecond creations keep their order.
func (s *Store) stampLocked() int64 {
	ts := s.now().UnixMilli()
	if ts <= s.lastCreated {
		ts = s.lastCreated + 1
	}
	s.lastCreated = ts
	return ts
}

func (s *Store) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// changedLocked bumps the version and writes the ledger through to local storage.
func (s *Store) changedLocked(ctx context.Context, op string) {
	s.version++
	s.persistLocked(ctx, op)
}

func (s *Store) persistLocked(ctx context.Context, op string) {
	blob, err := json.Marshal(s.records)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode ledger", applog.FieldOperation, op, applog.FieldError, err)
		return
	}
	if err := s.persister.Save(ctx, blob); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger", applog.FieldOperation, op, applog.FieldError, err)
	}
}
