package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pricecompare/internal/common/logging"
	"pricecompare/internal/common/metrics"
	"pricecompare/internal/common/types"
	"pricecompare/internal/pricing/api"
	"pricecompare/internal/pricing/application"
	"pricecompare/internal/pricing/infrastructure/secrets"
)

// Pinger checks a dependency for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP handler.
type Options struct {
	Environment    string
	RequestTimeout time.Duration
	Ready          Pinger
}

// NewLedgerService wires the ledger over the given storage.
func NewLedgerService(s *Storage) *application.LedgerService {
	return application.NewLedgerService(
		s.Items,
		s.Suppliers,
		secrets.NewGate(s.Secrets),
		application.LogAlerter{},
	)
}

// NewHandler builds the routed handler with the middleware chain
// metrics -> correlation -> mux.
func NewHandler(service *application.LedgerService, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(opts))
	mux.Handle("GET /metrics", metrics.Handler())

	api.NewHandler(service).RegisterRoutes(mux)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return metrics.Middleware(CorrelationMiddleware(timeout)(mux))
}

// CorrelationMiddleware adds a correlation ID, the calling actor and a
// request timeout to each request context.
func CorrelationMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := types.CorrelationID(r.Header.Get("X-Correlation-ID"))
			if corrID.IsEmpty() {
				corrID = types.NewCorrelationID()
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ctx = logging.WithCorrelationID(ctx, corrID)
			if actorID := r.Header.Get("X-Actor-ID"); actorID != "" {
				ctx = logging.WithActorID(ctx, types.ActorID(actorID))
			}

			w.Header().Set("X-Correlation-ID", corrID.String())

			logging.InfoContext(ctx, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// healthHandler returns basic health status.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readyHandler checks that the document store is reachable.
func readyHandler(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready.Ping(r.Context()); err != nil {
				logging.WarnContext(r.Context(), "Readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"status":      "unavailable",
					"environment": opts.Environment,
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ready",
			"environment": opts.Environment,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
