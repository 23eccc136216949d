package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/pos-promotions/internal/service"
	"github.com/utafrali/pos-promotions/pkg/health"
	"github.com/utafrali/pos-promotions/pkg/middleware"
)

const serviceName = "promotion"

// RouterConfig holds the transport settings for NewRouter.
type RouterConfig struct {
	// RequestTimeout bounds every request. Zero uses 10s.
	RequestTimeout time.Duration

	// PprofCIDRs enables /debug/pprof for the listed networks. Empty disables it.
	PprofCIDRs []string
}

// NewRouter creates a chi router with all promotion service routes registered.
func NewRouter(
	promotionService *service.PromotionService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	// Promotion API endpoints
	promotionHandler := NewPromotionHandler(promotionService, logger)

	r.Route("/api/v1/promotions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", promotionHandler.ListPromotions)
		r.Post("/evaluate", promotionHandler.Evaluate)
		r.Get("/{id}", promotionHandler.GetPromotion)
	})

	r.Route("/api/v1/carts/{cartId}/promotions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/evaluate", promotionHandler.EvaluateCart)
	})

	return r
}
