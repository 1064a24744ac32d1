package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kevin07696/revenue-share-service/internal/handlers/balance"
	"github.com/kevin07696/revenue-share-service/internal/handlers/cron"
	"github.com/kevin07696/revenue-share-service/internal/handlers/webhook"
	"github.com/kevin07696/revenue-share-service/pkg/middleware"
	"github.com/kevin07696/revenue-share-service/pkg/observability"
)

// RouterDeps are the handlers and middleware mounted on the public HTTP server
type RouterDeps struct {
	Webhook        *webhook.Handler
	Cron           *cron.Handler
	Balance        *balance.Handler
	WebhookLimiter *middleware.RateLimiter         // Optional
	InFlight       func(http.Handler) http.Handler // Optional: rejects new work during shutdown
	Logger         *zap.Logger
}

// NewRouter builds the chi router for webhooks, cron jobs and balance reports
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(observability.HTTPMetricsMiddleware)
	if deps.InFlight != nil {
		r.Use(deps.InFlight)
	}

	r.Route("/webhooks", func(r chi.Router) {
		if deps.WebhookLimiter != nil {
			r.Use(deps.WebhookLimiter.Middleware)
		}
		r.Post("/gateway/{"+webhook.EndpointIDParam+"}", deps.Webhook.HandleGatewayEvents)
	})

	r.Route("/cron", func(r chi.Router) {
		r.Get("/health", deps.Cron.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(deps.Cron.Authenticate)
			r.Post("/settle-month", deps.Cron.SettleMonth)
			r.Post("/revert-settlement", deps.Cron.RevertMonth)
			r.Post("/sync-transactions", deps.Cron.SyncTransactions)
			r.Post("/recalculate", deps.Cron.Recalculate)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Compress(5, "application/json"))
		r.Get("/balances", deps.Balance.GetBalance)
	})

	return r
}
