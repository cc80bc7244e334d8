package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports ready once every mirror holds its first snapshot.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.views == nil:
		checks["mirrors"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	case !s.views.Ready():
		checks["mirrors"] = "syncing"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		checks["mirrors"] = map[string]any{
			"status":               "ok",
			"transactions_version": s.views.Transactions().Version,
			"transactions":         s.views.Transactions().Len(),
		}
	}
	if s.ledger == nil {
		checks["ledger"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("transactions_added_total", "Transactions added through the API", "counter", atomic.LoadInt64(&s.metrics.transactionsAdded))
	metric("imported_rows_total", "Statement rows accepted by imports", "counter", atomic.LoadInt64(&s.metrics.importedRows))
	metric("transactions_deleted_total", "Transactions deleted through the API", "counter", atomic.LoadInt64(&s.metrics.deleted))
	if s.views != nil {
		metric("mirror_transactions", "Transactions in the local mirror", "gauge", s.views.Transactions().Len())
		metric("mirror_version", "Transactions mirror snapshot version", "gauge", s.views.Transactions().Version)
	}
	if s.viewCache != nil {
		metric("cache_entries", "Cached cycle views", "gauge", s.viewCache.Size())
	}
	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.metrics.started).Seconds()))
}
