package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/odiabackend099/callwaiting/internal/api/handlers"
	"github.com/odiabackend099/callwaiting/internal/api/middleware"
	"github.com/odiabackend099/callwaiting/internal/config"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/metrics"
)

// Handlers groups every HTTP handler. AI is nil when no provider is configured.
type Handlers struct {
	Health      *handlers.HealthHandler
	Account     *handlers.AccountHandler
	Usage       *handlers.UsageHandler
	Trial       *handlers.TrialHandler
	Eligibility *handlers.EligibilityHandler
	Billing     *handlers.BillingHandler
	AI          *handlers.AIHandler
}

// New builds the API router. Rate limiter sweepers stop when done closes.
func New(cfg *config.Config, log *logger.Logger, h *Handlers, done <-chan struct{}) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))

	r.Get("/health", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, done))

		r.Route("/billing", func(r chi.Router) {
			r.Get("/plans", h.Billing.ListPlans)
			r.Post("/activations", h.Billing.Activate)
		})

		r.Post("/eligibility", h.Eligibility.Check)

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.Account.Create)
			r.Get("/", h.Account.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.AccountRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, done))

				r.Get("/", h.Account.Get)
				r.Post("/period/reset", h.Account.ResetPeriod)

				r.Get("/usage", h.Usage.Summary)
				r.Post("/usage", h.Usage.Record)
				r.Get("/usage/events", h.Usage.Events)
				r.Get("/usage/export", h.Usage.Export)

				r.Get("/trial", h.Trial.Status)
				r.Post("/trial/usage", h.Trial.RecordUsage)

				r.Post("/calls/complete", h.Eligibility.CompleteCall)

				if h.AI != nil {
					r.Post("/inference", h.AI.Inference)
					r.Post("/speech", h.AI.Speech)
				}
			})
		})
	})

	return r
}
