package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"anwarfarm/internal/auth"
	"anwarfarm/internal/services"
	applog "anwarfarm/internal/log"
)

const rateLimiterCleanup = 5 * time.Minute

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger *services.LedgerService
	gate   *auth.Gate
	ready  Pinger

	rateLimiter   *rateLimiter
	security      *securityMetrics
	logger        *applog.Logger
	audit         *applog.StructuredLogger
	secureCookies bool
	now           func() time.Time

	startedAt    time.Time
	requests     atomic.Int64
	shutdownOnce sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithReadiness makes /readyz ping p.
func WithReadiness(p Pinger) ServerOption {
	return func(s *Server) { s.ready = p }
}

// WithRateLimit sets the per-IP budget for mutating requests per minute.
func WithRateLimit(perMinute int) ServerOption {
	return func(s *Server) { s.rateLimiter = newRateLimiter(perMinute) }
}

// WithSecureCookies marks the session cookie Secure, for TLS deployments.
func WithSecureCookies(secure bool) ServerOption {
	return func(s *Server) { s.secureCookies = secure }
}

func WithServerClock(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.LedgerService, gate *auth.Gate, logger *applog.Logger, opts ...ServerOption) *Server {
	logger = applog.OrDiscard(logger)
	s := &Server{
		ledger:      svc,
		gate:        gate,
		rateLimiter: newRateLimiter(defaultRateMax),
		security:    &securityMetrics{},
		logger:      logger.WithComponent(applog.ComponentHTTP),
		audit:       applog.NewStructuredLogger(logger),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	go s.rateLimiter.startCleanup(rateLimiterCleanup)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/session", s.handleLogin)
	mux.HandleFunc("DELETE /api/session", s.handleLogout)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/trend", s.handleTrend)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/export.xlsx", s.handleExportXLSX)

	mux.HandleFunc("GET /api/sync", s.handleSyncStatus)
	mux.HandleFunc("POST /api/sync/pull", s.handleSyncPull)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

type requestIDKey struct{}

func requestIDFromContext(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// withMiddleware adds request ids, a request-scoped logger, security headers,
// rate limiting of mutating requests and request logging.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	scoped := applog.Middleware(s.logger)(applog.RequestIDMiddleware(requestIDFromContext)(next))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.requests.Add(1)
		clientIP := extractClientIP(r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w.Header())

		if detectSuspiciousRequest(r, s.security) {
			s.logger.WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.security) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
				Header("Retry-After", "60").
				Write(rw)
		} else {
			scoped.ServeHTTP(rw, r)
		}

		s.audit.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
