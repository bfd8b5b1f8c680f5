// Package connectivity tracks whether the remote side is reachable, so pushes
// can be skipped while offline instead of failing one by one.
package connectivity

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	applog "anwarfarm/internal/log"
)

// Checker reports the current connectivity state.
type Checker interface {
	Online() bool
}

// AlwaysOnline is used when no probe address is configured.
type AlwaysOnline struct{}

func (AlwaysOnline) Online() bool { return true }

// Static is a fixed state, handy for tests and offline tooling.
type Static bool

func (s Static) Online() bool { return bool(s) }

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Monitor probes a TCP address on an interval. It starts optimistic: until the
// first probe completes the state is online.
type Monitor struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	dial     dialFunc
	logger   *applog.Logger
	online   atomic.Bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMonitor(addr string, interval time.Duration, logger *applog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	d := &net.Dialer{}
	m := &Monitor{
		addr:     addr,
		interval: interval,
		timeout:  5 * time.Second,
		dial:     d.DialContext,
		logger:   applog.OrDiscard(logger).WithComponent(applog.ComponentConnectivity),
	}
	m.online.Store(true)
	return m
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Check runs one probe and records the result.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.dial(ctx, "tcp", m.addr)
	up := err == nil
	if conn != nil {
		conn.Close()
	}

	if prev := m.online.Swap(up); prev != up {
		if up {
			m.logger.InfoContext(ctx, "Connectivity restored", "addr", m.addr)
		} else {
			m.logger.WarnContext(ctx, "Connectivity lost", "addr", m.addr, applog.FieldError, err)
		}
	}
	return up
}

// Start probes immediately and then on every interval until Stop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("connectivity monitor is already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.runLoop(ctx)
	return nil
}

// Stop ends the probe loop and waits for it, bounded by ctx.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) runLoop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
