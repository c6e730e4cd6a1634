package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fleetledger/internal/config"
	"fleetledger/internal/ledger"
	applog "fleetledger/internal/log"
	"fleetledger/internal/middleware/ratelimit"
	"fleetledger/internal/middleware/security"
	"fleetledger/internal/middleware/trace"
)

// Options wires a Server to the ledger.
type Options struct {
	Ledger             *ledger.Service
	Registry           ledger.Registry
	Dashboard          config.DashboardSettings
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	ledger    *ledger.Service
	registry  ledger.Registry
	dashboard config.DashboardSettings
	limiter   *ratelimit.Limiter
	clientIP  *security.ClientIP

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}

	s := &Server{
		ledger:    opts.Ledger,
		registry:  opts.Registry,
		dashboard: opts.Dashboard,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		clientIP:  security.NewClientIP(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("DELETE /api/vehicles/{id}", s.handleDeleteVehicle)
	mux.HandleFunc("GET /api/vehicles/{id}/profitability", s.handleProfitability)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/settings/dashboard", s.handleDashboardSettings)

	mux.HandleFunc("PUT /api/vehicles/{id}", s.handleUpsert(s.registry.UpsertVehicle))
	mux.HandleFunc("PUT /api/employees/{id}", s.handleUpsert(s.registry.UpsertEmployee))
	mux.HandleFunc("PUT /api/invoices/{id}", s.handleUpsert(s.registry.UpsertInvoice))
	mux.HandleFunc("PUT /api/purchase-orders/{id}", s.handleUpsert(s.registry.UpsertPurchaseOrder))
	mux.HandleFunc("PUT /api/quotes/{id}", s.handleUpsert(s.registry.UpsertQuote))

	var handler http.Handler = mux
	handler = s.limitWrites(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = trace.NewMiddleware(logger, s.clientIP.Extract).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// limitWrites rate limits mutating requests per client address. Reads are
// never throttled.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.clientIP.Extract(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeErrorBody(w, http.StatusTooManyRequests, errorBody{
			Error: "Rate limit exceeded. Please try again later.",
			Type:  applog.ErrorTypeRateLimited,
		})
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// Shutdown stops the limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
