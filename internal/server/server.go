// Package server provides the HTTP server setup and wiring.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/claimworks/bountyd/internal/auth"
	bountiesDomain "github.com/claimworks/bountyd/internal/bounties/domain"
	bountiesTransport "github.com/claimworks/bountyd/internal/bounties/transport"
	"github.com/claimworks/bountyd/internal/config"
	"github.com/claimworks/bountyd/internal/events"
	"github.com/claimworks/bountyd/internal/middleware/logging"
	"github.com/claimworks/bountyd/internal/middleware/ratelimit"
	"github.com/claimworks/bountyd/internal/middleware/realip"
	"github.com/claimworks/bountyd/internal/middleware/security"
	"github.com/claimworks/bountyd/internal/observability/metrics"
	payoutsDomain "github.com/claimworks/bountyd/internal/payouts/domain"
	payoutsTransport "github.com/claimworks/bountyd/internal/payouts/transport"
	"github.com/claimworks/bountyd/internal/settlement"
	"github.com/claimworks/bountyd/internal/storage"
	submissionsDomain "github.com/claimworks/bountyd/internal/submissions/domain"
	submissionsTransport "github.com/claimworks/bountyd/internal/submissions/transport"
	verificationsDomain "github.com/claimworks/bountyd/internal/verifications/domain"
	verificationsTransport "github.com/claimworks/bountyd/internal/verifications/transport"
)

// Version is the server version, overridden at build time via ldflags.
var Version = "0.3.0"

// Server is the HTTP server
type Server struct {
	cfg    *config.Config
	store  storage.Store
	ledger settlement.Ledger
	logger *slog.Logger
	router *chi.Mux

	// Services typed via transport interfaces
	submissionsSvc   submissionsTransport.Service
	verificationsSvc verificationsTransport.Service
	bountiesSvc      bountiesTransport.Service
	payoutsSvc       payoutsTransport.Service
}

// New creates a new server
func New(cfg *config.Config, store storage.Store, ledger settlement.Ledger, publisher events.Publisher, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		ledger: ledger,
		logger: logger,
		router: chi.NewRouter(),
	}

	metrics.Init(cfg.Metrics.Enabled, "bountyd")

	settlementTimeout := time.Duration(cfg.Settlement.TimeoutSeconds) * time.Second

	// Create domain services
	s.submissionsSvc = submissionsDomain.NewService(store, ledger, publisher, settlementTimeout)
	s.verificationsSvc = verificationsDomain.NewService(store, ledger, publisher, settlementTimeout)
	s.bountiesSvc = bountiesDomain.NewService(store, ledger, publisher, settlementTimeout)

	// Payouts move money; wrap the coordinator with logging middleware
	payoutsImpl := payoutsDomain.NewService(store, ledger, publisher, settlementTimeout)
	s.payoutsSvc = payoutsDomain.LoggingMiddleware(logger)(payoutsImpl)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the metrics HTTP handler for separate metrics server
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler()
}

func (s *Server) setupMiddleware() {
	// Order matters! Security middleware runs first to block malicious requests early.

	// 1. Real IP extraction (must be first to set client IP for other middleware)
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))

	// 2. Security filter (blocks malicious patterns, bypasses health checks)
	s.router.Use(security.FilterMiddleware(s.cfg.Security.FilterEnabled))

	// 3. Body size limit
	s.router.Use(security.MaxBodySizeMiddleware(s.cfg.Security.MaxBodySizeMB))

	// 4. Rate limiting (bypasses health checks)
	s.router.Use(ratelimit.Middleware(ratelimit.Config{
		Enabled:        s.cfg.RateLimit.Enabled,
		RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
		BurstSize:      s.cfg.RateLimit.BurstSize,
		CleanupMinutes: s.cfg.RateLimit.CleanupMinutes,
	}))

	// 5. Standard middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// 6. CORS
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleHealthz)
	s.router.Get("/version", s.handleVersion)
	s.router.Get("/metrics", metrics.Handler().ServeHTTP)

	// Create HTTP handlers for each domain
	submissionsHandler := submissionsTransport.NewHandler(s.submissionsSvc)
	verificationsHandler := verificationsTransport.NewHandler(s.verificationsSvc)
	bountiesHandler := bountiesTransport.NewHandler(s.bountiesSvc)
	payoutsHandler := payoutsTransport.NewHandler(s.payoutsSvc)

	// Auth middleware for write operations
	requireAuth := func(r chi.Router) {
		if s.cfg.Auth.Type == "api-key" {
			r.Use(auth.Middleware(s.store, writeError))
		}
	}

	// API v1 routes, reads open, writes behind auth
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/submissions", func(r chi.Router) {
			submissionsHandler.RegisterReadRoutes(r)
			r.Group(func(r chi.Router) {
				requireAuth(r)
				submissionsHandler.RegisterWriteRoutes(r)
			})
		})

		r.Route("/verifications", func(r chi.Router) {
			verificationsHandler.RegisterReadRoutes(r)
			r.Group(func(r chi.Router) {
				requireAuth(r)
				verificationsHandler.RegisterWriteRoutes(r)
			})
		})

		r.Route("/bounties", func(r chi.Router) {
			bountiesHandler.RegisterReadRoutes(r)
			r.Group(func(r chi.Router) {
				requireAuth(r)
				bountiesHandler.RegisterWriteRoutes(r)
			})
		})

		r.Route("/payouts", func(r chi.Router) {
			payoutsHandler.RegisterReadRoutes(r)
			r.Group(func(r chi.Router) {
				requireAuth(r)
				payoutsHandler.RegisterWriteRoutes(r)
			})
		})
	})
}

// handleHealth reports component health, including the settlement ledger
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	settlementStatus := "ok"
	status := http.StatusOK
	if err := s.ledger.Status(ctx); err != nil {
		settlementStatus = "unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":     statusWord(status),
		"settlement": settlementStatus,
		"version":    Version,
	})
}

// handleHealthz is the cheap liveness probe
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
