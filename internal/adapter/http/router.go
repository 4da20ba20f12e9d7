package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/spareledger/internal/adapter/http/handler"
	"github.com/iho/spareledger/internal/adapter/http/middleware"
	"github.com/iho/spareledger/internal/infrastructure/metrics"
	"github.com/iho/spareledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	SyncHandler       *handler.SyncHandler
	CategorizeHandler *handler.CategorizeHandler
	ReportHandler     *handler.ReportHandler
	AccountHandler    *handler.AccountHandler
	HealthHandler     *handler.HealthHandler
	IdempotencyStore  usecase.IdempotencyStore
	IdempotencyTTL    time.Duration
	RateLimiter       *middleware.RateLimiter
	Metrics           *metrics.Metrics
	MetricsHandler    http.Handler
	Logger            zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Post("/sync", cfg.SyncHandler.Sync)
		r.Post("/categorize", cfg.CategorizeHandler.Categorize)
		r.Get("/net-worth", cfg.ReportHandler.NetWorth)
		r.Get("/subscriptions", cfg.ReportHandler.Subscriptions)

		// Credentials
		r.Route("/credentials", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.LinkCredential)
			r.Delete("/{id}", cfg.AccountHandler.DeleteCredential)
			r.Post("/{id}/balances", cfg.AccountHandler.RefreshBalances)
		})

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Delete("/{id}", cfg.AccountHandler.Delete)
			r.Post("/{id}/transactions", cfg.AccountHandler.RecordTransaction)
		})
	})

	return r
}
