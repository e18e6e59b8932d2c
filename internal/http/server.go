// Package http exposes the reporting backend as a JSON API.
package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gymops/internal/core"
	"gymops/internal/report"
	"gymops/internal/services"
)

// Importer is the import/edit surface the API drives.
type Importer interface {
	Import(ctx context.Context, r io.Reader, source string) (core.ImportStats, error)
	EditSale(ctx context.Context, saleID string, edit services.SaleEdit) (core.SaleAggregate, error)
}

// Reporter computes the attribution reports.
type Reporter interface {
	EFTCounts(ctx context.Context, ref time.Time) (map[string]report.Totals, error)
	EFTDetails(ctx context.Context, employee, period string, ref time.Time) ([]report.EFTDetail, error)
	AppointmentCounts(ctx context.Context, kind string, ref time.Time) (map[string]report.Counts, error)
	PTRollup(ctx context.Context, ref time.Time) (map[string]report.Totals, error)
}

// SaleReader is the read surface for sale lookups.
type SaleReader interface {
	ListSales(ctx context.Context, profitCenter string) ([]core.SaleAggregate, error)
	GetSale(ctx context.Context, saleID string) (core.SaleAggregate, error)
	AuditTrail(ctx context.Context, saleID string) ([]core.AuditEntry, error)
}

type Server struct {
	http.Server

	imports Importer
	reports Reporter
	sales   SaleReader

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, imports Importer, reports Reporter, sales SaleReader) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		imports:     imports,
		reports:     reports,
		sales:       sales,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /api/imports", s.withMiddleware(s.handleImport))
	mux.HandleFunc("GET /api/sales", s.withMiddleware(s.handleListSales))
	mux.HandleFunc("GET /api/sales/{id}", s.withMiddleware(s.handleGetSale))
	mux.HandleFunc("PUT /api/sales/{id}", s.withMiddleware(s.handleEditSale))
	mux.HandleFunc("GET /api/sales/{id}/audit", s.withMiddleware(s.handleAuditTrail))
	mux.HandleFunc("GET /api/eft/counts", s.withMiddleware(s.handleEFTCounts))
	mux.HandleFunc("GET /api/eft/details/{employee}/{period}", s.withMiddleware(s.handleEFTDetails))
	mux.HandleFunc("GET /api/appointments/{kind}/counts", s.withMiddleware(s.handleAppointmentCounts))
	mux.HandleFunc("GET /api/pt/rollup", s.withMiddleware(s.handlePTRollup))

	return s
}

// withMiddleware adds security headers, rate limiting on mutating requests,
// and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
