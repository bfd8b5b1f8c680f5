package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"anwarfarm/internal/connectivity"
	"anwarfarm/internal/core"
	"anwarfarm/internal/ledger"
	applog "anwarfarm/internal/log"
	"anwarfarm/internal/remote"
)

// SyncState is what the indicator shows.
type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
)

// SyncResult is the outcome of the last finished attempt.
type SyncResult string

const (
	ResultSuccess SyncResult = "success"
	ResultFailure SyncResult = "failure"
)

// legacySpacing separates synthetic createdAt stamps of legacy records.
const legacySpacing = 1000

// SyncStatus is a point-in-time view of the coordinator.
type SyncStatus struct {
	State         SyncState  `json:"state"`
	Online        bool       `json:"online"`
	Enabled       bool       `json:"enabled"`
	Backend       string     `json:"backend,omitempty"`
	LastOperation string     `json:"lastOperation,omitempty"`
	LastResult    SyncResult `json:"lastResult,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	LastAt        *time.Time `json:"lastAt,omitempty"`
}

// SyncCoordinator mirrors the local ledger to a single remote document.
// Local state is always authoritative for the running process: pulls replace
// it wholesale, pushes overwrite the remote wholesale, and nothing is retried.
type SyncCoordinator struct {
	store  *ledger.Store
	remote remote.Store
	online connectivity.Checker
	logger *applog.Logger
	now    func() time.Time

	// pushes run detached from the request that triggered them, one at a
	// time, each sending the ledger as it is when the push starts.
	baseCtx     context.Context
	pushes      errgroup.Group
	inflight    atomic.Int32
	queueMu     sync.Mutex
	pushPending bool
	pushRunning bool

	mu         sync.Mutex
	lastOp     string
	lastResult SyncResult
	lastErr    string
	lastAt     time.Time
}

// SyncOption configures a SyncCoordinator.
type SyncOption func(*SyncCoordinator)

func WithSyncClock(now func() time.Time) SyncOption {
	return func(c *SyncCoordinator) { c.now = now }
}

func WithSyncLogger(l *applog.Logger) SyncOption {
	return func(c *SyncCoordinator) { c.logger = l }
}

// NewSyncCoordinator wires a coordinator. A nil remote disables syncing; a nil
// checker means always online.
func NewSyncCoordinator(store *ledger.Store, rs remote.Store, online connectivity.Checker, opts ...SyncOption) *SyncCoordinator {
	if online == nil {
		online = connectivity.AlwaysOnline{}
	}
	c := &SyncCoordinator{
		store:   store,
		remote:  rs,
		online:  online,
		now:     time.Now,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = applog.OrDiscard(c.logger).WithComponent(applog.ComponentSync)
	return c
}

// Enabled reports whether a remote is configured.
func (c *SyncCoordinator) Enabled() bool {
	return c.remote != nil
}

// Pull fetches the remote document and, if it is a valid array, replaces the
// local ledger with it. Any failure leaves the ledger untouched.
func (c *SyncCoordinator) Pull(ctx context.Context) bool {
	if c.remote == nil {
		return false
	}
	c.begin()

	records, err := c.remote.Get(ctx)
	if err != nil {
		level := c.logger.WarnContext
		if errors.Is(err, remote.ErrNotFound) {
			level = c.logger.InfoContext
		}
		level(ctx, "Remote pull skipped", applog.FieldBackend, remote.NameOf(c.remote), applog.FieldError, err)
		c.end(applog.OpPull, err)
		return false
	}

	if n := core.CountRounded(records); n > 0 {
		c.logger.WarnContext(ctx, "Rounded fractional amounts in remote ledger", applog.FieldCount, n)
	}
	migrated := BackfillCreatedAt(records, c.now())
	c.store.ReplaceAll(ctx, records)
	c.end(applog.OpPull, nil)

	c.logger.InfoContext(ctx, "Ledger replaced from remote",
		applog.FieldBackend, remote.NameOf(c.remote),
		applog.FieldCount, len(records),
		"backfilled", migrated)
	return true
}

// Push sends records as the complete remote document. It does nothing for
// guests, when syncing is disabled, or while offline.
func (c *SyncCoordinator) Push(ctx context.Context, role core.Role, records []core.Transaction) bool {
	if !role.IsAdmin() || c.remote == nil {
		return false
	}
	if !c.online.Online() {
		c.logger.DebugContext(ctx, "Offline, push skipped", applog.FieldCount, len(records))
		return false
	}

	c.begin()
	err := c.remote.Put(ctx, records)
	c.end(applog.OpPush, err)
	if err != nil {
		c.logger.WarnContext(ctx, "Remote push failed",
			applog.FieldBackend, remote.NameOf(c.remote), applog.FieldError, err)
		return false
	}
	c.logger.DebugContext(ctx, "Remote push complete", applog.FieldCount, len(records))
	return true
}

// SchedulePush requests a background push of the whole ledger. The caller
// never waits for the remote. Requests made while a push is running are
// coalesced into one follow-up push, so the last push to finish always
// carries the latest ledger.
func (c *SyncCoordinator) SchedulePush(role core.Role) {
	if !role.IsAdmin() || c.remote == nil {
		return
	}
	c.queueMu.Lock()
	c.pushPending = true
	if c.pushRunning {
		c.queueMu.Unlock()
		return
	}
	c.pushRunning = true
	c.queueMu.Unlock()

	c.pushes.Go(func() error {
		c.drainPushes()
		return nil
	})
}

func (c *SyncCoordinator) drainPushes() {
	for {
		c.queueMu.Lock()
		if !c.pushPending {
			c.pushRunning = false
			c.queueMu.Unlock()
			return
		}
		c.pushPending = false
		c.queueMu.Unlock()

		c.Push(c.baseCtx, core.Admin, c.store.Snapshot())
	}
}

// Wait blocks until background pushes finish or ctx ends.
func (c *SyncCoordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = c.pushes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports the indicator state and the last outcome.
func (c *SyncCoordinator) Status() SyncStatus {
	st := SyncStatus{
		State:   SyncIdle,
		Online:  c.online.Online(),
		Enabled: c.remote != nil,
	}
	if c.remote != nil {
		st.Backend = remote.NameOf(c.remote)
	}
	if c.inflight.Load() > 0 {
		st.State = SyncSyncing
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	st.LastOperation = c.lastOp
	st.LastResult = c.lastResult
	st.LastError = c.lastErr
	if !c.lastAt.IsZero() {
		at := c.lastAt
		st.LastAt = &at
	}
	return st
}

func (c *SyncCoordinator) begin() {
	c.inflight.Add(1)
}

func (c *SyncCoordinator) end(op string, err error) {
	c.mu.Lock()
	c.lastOp = op
	c.lastAt = c.now()
	if err != nil {
		c.lastResult = ResultFailure
		c.lastErr = err.Error()
	} else {
		c.lastResult = ResultSuccess
		c.lastErr = ""
	}
	c.mu.Unlock()
	c.inflight.Add(-1)
}

// BackfillCreatedAt stamps records that lack createdAt with now - (n-i)*1s,
// so legacy records keep their array order among themselves. It assumes the
// array order is insertion order, which remote data does not guarantee.
// Returns the number of records stamped.
func BackfillCreatedAt(records []core.Transaction, now time.Time) int {
	n := len(records)
	base := now.UnixMilli()
	stamped := 0
	for i := range records {
		if records[i].CreatedAt != 0 {
			continue
		}
		records[i].CreatedAt = base - int64(n-i)*legacySpacing
		stamped++
	}
	return stamped
}
