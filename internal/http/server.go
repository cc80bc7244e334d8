package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"duoledger/internal/core"
	applog "duoledger/internal/log"
	"duoledger/internal/middleware/ratelimit"
	"duoledger/internal/middleware/security"
	"duoledger/internal/middleware/trace"
	"duoledger/internal/services"
)

// HeaderPIN carries the shared household PIN on every /api request.
const HeaderPIN = "X-Ledger-PIN"

// PINChecker verifies the shared PIN.
type PINChecker interface {
	Check(pin string) error
}

// Options configures NewServer.
type Options struct {
	Addr      string
	Ledger    *services.LedgerService
	Views     *services.ViewService
	PINs      PINChecker
	Household core.Household
	Logger    *applog.Logger

	// ViewCache is only read for metrics and may be nil.
	ViewCache interface{ Size() int }

	// RateLimit is the number of POST requests a client may make per
	// minute; zero means 60.
	RateLimit int
}

type appMetrics struct {
	started           time.Time
	transactionsAdded int64
	importedRows      int64
	deleted           int64
}

type Server struct {
	http.Server
	ledger    *services.LedgerService
	views     *services.ViewService
	pins      PINChecker
	household core.Household
	viewCache interface{ Size() int }
	logger    *applog.Logger
	metrics   appMetrics

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	s := &Server{
		ledger:    opts.Ledger,
		views:     opts.Views,
		pins:      opts.PINs,
		household: opts.Household,
		viewCache: opts.ViewCache,
		metrics:   appMetrics{started: time.Now()},
		logger:    logger.WithComponent(applog.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimit,
			Methods:           []string{http.MethodPost},
		}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("POST /api/transactions/bulk-delete", s.handleBulkDelete)
	api.HandleFunc("POST /api/import", s.handleImport)
	api.HandleFunc("GET /api/budgets/{year}/{month}", s.handleGetBudget)
	api.HandleFunc("PUT /api/budgets/{year}/{month}", s.handlePutBudget)
	api.HandleFunc("GET /api/notes", s.handleListNotes)
	api.HandleFunc("POST /api/notes", s.handleAddNote)
	api.HandleFunc("DELETE /api/notes/{id}", s.handleDeleteNote)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", s.requirePIN(api))

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
	return s
}

// chain wraps h with tracing, security headers, suspicious request logging
// and the POST rate limit, outermost first.
func (s *Server) chain(h http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldComponent, applog.ComponentRateLimit,
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later").Write(w)
	}

	h = s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(h)
	h = s.detector.Middleware(s.logger.With(applog.FieldComponent, applog.ComponentSecurity).Logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

// requirePIN rejects requests without a valid X-Ledger-PIN header.
func (s *Server) requirePIN(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.pins == nil {
			next.ServeHTTP(w, r)
			return
		}
		if err := s.pins.Check(r.Header.Get(HeaderPIN)); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "PIN rejected",
				applog.FieldComponent, applog.ComponentAuth,
				applog.FieldPath, r.URL.Path)
			ErrorFrom(err).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// fail logs err with the request logger and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, _ := statusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, operation, nil)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", applog.FieldOperation, operation, applog.FieldError, err.Error())
	}
	ErrorFrom(err).Write(w)
}
