package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks local storage. The remote is best-effort and never
// makes the service unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.ready != nil {
		if err := s.ready.Ping(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "memory"
	}

	sync := s.ledger.Sync().Status()
	checks["sync"] = map[string]any{
		"enabled": sync.Enabled,
		"online":  sync.Online,
		"backend": sync.Backend,
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metrics := []struct {
		name, help string
		value      int64
	}{
		{"http_requests_total", "Total number of HTTP requests", s.requests.Load()},
		{"rate_limit_hits_total", "Requests rejected by the rate limiter", s.security.rateLimitHits.Load()},
		{"suspicious_requests_total", "Requests flagged as suspicious", s.security.suspiciousRequests.Load()},
		{"rejected_logins_total", "Logins with a wrong passphrase", s.security.rejectedLogins.Load()},
		{"ledger_transactions", "Transactions currently in the ledger", int64(s.ledger.Summary().Count)},
	}
	for _, m := range metrics {
		kind := "counter"
		if m.name == "ledger_transactions" {
			kind = "gauge"
		}
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", m.name, m.help, m.name, kind, m.name, m.value)
	}
}
