package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperengineering/pathwise/internal/metrics"
)

// NewRouter creates a new router with all routes configured. A nil gatherer
// leaves /metrics unmounted; a nil limiter leaves analysis unthrottled.
func NewRouter(h *Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, limiter *UserRateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware(m))
	r.Use(RecoveryMiddleware)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)

		// Protected routes (service key + acting user)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey, m))
			r.Use(UserMiddleware(m))

			r.Put("/tasks/{taskID}/completion", h.ToggleTask)
			r.Put("/plans/{planID}/ai-tasks/{taskKey}/completion", h.ToggleAITask)
			r.Get("/achievements", h.ListAchievements)
			r.Post("/achievements/check", h.CheckAchievements)

			// Each analysis may spend an AI request
			if limiter != nil {
				r.With(limiter.Middleware).Post("/plans/{planID}/adaptive/analyze", h.AnalyzePlan)
			} else {
				r.Post("/plans/{planID}/adaptive/analyze", h.AnalyzePlan)
			}
		})
	})

	return r
}
